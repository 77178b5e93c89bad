package clean

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/oran-nephio/docrag/model"
)

// Reason classifies why a document was rejected by validation
type Reason string

const (
	ReasonTooShort             Reason = "TooShort"
	ReasonInsufficientKeywords Reason = "InsufficientKeywords"
	ReasonEmptyAfterCleaning   Reason = "EmptyAfterCleaning"
)

// ValidationError is a content-quality rejection. It marks the source as
// skipped for the current run, not a system fault.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("content rejected (%s): %s", e.Reason, e.Detail)
}

// DefaultKeywords is the domain keyword set used for topical validation.
// Matching is case-insensitive over the cleaned text.
var DefaultKeywords = []string{
	"o-ran",
	"oran",
	"nephio",
	"network function",
	"o-cloud",
	"near-rt ric",
	"non-rt ric",
	"xapp",
	"kubernetes",
	"kpt",
	"gitops",
	"orchestration",
}

// Processor cleans fetched markup into prose text and validates it against
// the minimum-length and keyword-density heuristics. It performs no I/O.
type Processor struct {
	cfg      *model.Config
	keywords []string
}

// NewProcessor creates a processor with the default keyword set
func NewProcessor(cfg *model.Config) *Processor {
	return &Processor{
		cfg:      cfg,
		keywords: DefaultKeywords,
	}
}

// NewProcessorWithKeywords creates a processor with a custom keyword set
func NewProcessorWithKeywords(cfg *model.Config, keywords []string) *Processor {
	return &Processor{
		cfg:      cfg,
		keywords: keywords,
	}
}

// Process strips markup and boilerplate from a raw document, computes the
// content hash and enforces the validation heuristics. The returned error
// is a *ValidationError for any content-quality rejection.
func (p *Processor) Process(raw *model.RawDocument) (*model.ProcessedDocument, error) {
	if len(raw.RawContent) < p.cfg.MinContentLength {
		return nil, &ValidationError{
			Reason: ReasonTooShort,
			Detail: fmt.Sprintf("raw content %d chars, need %d", len(raw.RawContent), p.cfg.MinContentLength),
		}
	}

	title, text := StripMarkup(raw.RawContent)
	text = NormalizeWhitespace(text)

	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{
			Reason: ReasonEmptyAfterCleaning,
			Detail: "no prose text left after cleaning",
		}
	}
	if len(text) < p.cfg.MinExtractedContentLength {
		return nil, &ValidationError{
			Reason: ReasonTooShort,
			Detail: fmt.Sprintf("extracted content %d chars, need %d", len(text), p.cfg.MinExtractedContentLength),
		}
	}

	if matches := CountKeywords(text, p.keywords); matches < p.cfg.MinKeywordCount {
		return nil, &ValidationError{
			Reason: ReasonInsufficientKeywords,
			Detail: fmt.Sprintf("%d keyword matches, need %d", matches, p.cfg.MinKeywordCount),
		}
	}

	if title == "" {
		title = raw.Source.Description
	}
	if title == "" {
		title = raw.Source.URL
	}

	return &model.ProcessedDocument{
		SourceURL:      raw.Source.URL,
		Title:          title,
		CleanedContent: text,
		ContentHash:    model.ContentHash(text),
		Metadata: model.Metadata{
			"source_url":  raw.Source.URL,
			"source_type": string(raw.Source.Type),
			"description": raw.Source.Description,
			"priority":    raw.Source.Priority,
			"title":       title,
			"fetched_at":  raw.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	}, nil
}

// boilerplate elements whose entire subtree is dropped
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"iframe":   true,
	"svg":      true,
	"template": true,
	"form":     true,
	"button":   true,
}

// block-level elements that terminate a paragraph
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "br": true,
}

// StripMarkup extracts the title and prose text from an HTML page.
// Boilerplate subtrees (navigation, scripts, styles, headers, footers) are
// dropped; block element boundaries become paragraph breaks. Input without
// any markup passes through unchanged.
func StripMarkup(raw string) (title string, text string) {
	if !strings.Contains(raw, "<") {
		return "", raw
	}

	tokenizer := html.NewTokenizer(strings.NewReader(raw))

	var b strings.Builder
	var skipDepth int
	var inTitle bool

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return title, b.String()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := strings.ToLower(string(name))
			if tag == "title" && tokenType == html.StartTagToken {
				inTitle = true
				continue
			}
			if skippedElements[tag] && tokenType == html.StartTagToken {
				skipDepth++
				continue
			}
			if blockElements[tag] {
				b.WriteString("\n\n")
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := strings.ToLower(string(name))
			if tag == "title" {
				inTitle = false
				continue
			}
			if skippedElements[tag] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if blockElements[tag] {
				b.WriteString("\n\n")
			}

		case html.TextToken:
			content := string(tokenizer.Text())
			if inTitle {
				if title == "" {
					title = strings.TrimSpace(content)
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			b.WriteString(content)
		}
	}
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\f]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
	lineSpace  = regexp.MustCompile(`\n[ \t]+`)
)

// NormalizeWhitespace collapses runs of spaces and blank lines while
// preserving paragraph breaks as exactly one blank line
func NormalizeWhitespace(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = lineSpace.ReplaceAllString(text, "\n")
	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CountKeywords returns the total number of case-insensitive keyword
// occurrences in the text
func CountKeywords(text string, keywords []string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range keywords {
		count += strings.Count(lower, strings.ToLower(kw))
	}
	return count
}
