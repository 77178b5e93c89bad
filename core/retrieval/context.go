package retrieval

import (
	"fmt"
	"strings"

	"github.com/oran-nephio/docrag/model"
)

// BuildContext assembles the retrieved chunks into the context string
// handed to an LLM caller. Each chunk is introduced by a numbered citation
// line carrying its title, source URL and priority, and the same citations
// are listed again in a trailing Sources section.
func BuildContext(result *model.QueryResult) string {
	if result == nil || len(result.Results) == 0 {
		return ""
	}

	var b strings.Builder
	for i, sc := range result.Results {
		title := sc.Chunk.Title()
		if title == "" {
			title = sc.Chunk.SourceURL
		}
		fmt.Fprintf(&b, "[%d] %s (%s, priority %d)\n", i+1, title, sc.Chunk.SourceURL, sc.Chunk.Priority())
		b.WriteString(strings.TrimSpace(sc.Chunk.Text))
		b.WriteString("\n\n")
	}

	b.WriteString("Sources:\n")
	seen := make(map[string]bool)
	for i, sc := range result.Results {
		if seen[sc.Chunk.SourceURL] {
			continue
		}
		seen[sc.Chunk.SourceURL] = true
		fmt.Fprintf(&b, "[%d] %s\n", i+1, sc.Chunk.SourceURL)
	}

	return b.String()
}
