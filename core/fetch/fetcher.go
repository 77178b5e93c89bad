package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/oran-nephio/docrag/model"
)

// ErrorKind classifies fetch failures for the retry and reporting policy
type ErrorKind int

const (
	// KindTransient marks timeouts, 5xx and connection resets; surfaced
	// only after the retry budget is exhausted
	KindTransient ErrorKind = iota
	// KindPermanentHTTP marks 4xx responses other than 429, never retried
	KindPermanentHTTP
	// KindSSL marks certificate verification failures, never retried
	KindSSL
	// KindBadURL marks malformed source URLs, never retried
	KindBadURL
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanentHTTP:
		return "permanent_http"
	case KindSSL:
		return "ssl"
	case KindBadURL:
		return "bad_url"
	}
	return "unknown"
}

// Error is a classified fetch failure
type Error struct {
	Kind   ErrorKind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s failed (%s, status %d): %v", e.URL, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher retrieves raw content for document sources over HTTP.
// Transient failures are retried with exponential backoff and jitter up to
// the configured retry budget; permanent failures are surfaced immediately.
type Fetcher struct {
	client *resty.Client
	cfg    *model.Config
	log    *slog.Logger
}

// NewFetcher creates a fetcher from the given configuration
func NewFetcher(cfg *model.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryDelayBase).
		SetRetryMaxWaitTime(cfg.MaxRetryDelay).
		SetHeader("User-Agent", "docrag/1.0 (documentation indexer)").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				// Certificate failures are permanent when verification
				// is on, everything else network-level is transient.
				return !isCertError(err)
			}
			status := r.StatusCode()
			return status >= 500 || status == 429
		})

	if !cfg.VerifySSL {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) // #nosec G402 -- explicit operator opt-out
	}

	return &Fetcher{
		client: client,
		cfg:    cfg,
		log:    logger,
	}
}

// Fetch performs an HTTP GET for one source and returns the raw document.
// The returned error is always a *Error carrying the failure kind.
func (f *Fetcher) Fetch(ctx context.Context, source *model.DocumentSource) (*model.RawDocument, error) {
	if err := source.Validate(); err != nil {
		return nil, &Error{Kind: KindBadURL, URL: source.URL, Err: err}
	}

	started := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(source.URL)
	if err != nil {
		kind := KindTransient
		if isCertError(err) {
			kind = KindSSL
		}
		f.log.Warn("Fetch failed",
			slog.String("url", source.URL),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
		return nil, &Error{Kind: kind, URL: source.URL, Err: err}
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		f.log.Info("Fetched source",
			slog.String("url", source.URL),
			slog.Int("status", status),
			slog.Int("bytes", len(resp.Body())),
			slog.Duration("took", time.Since(started)))
		return &model.RawDocument{
			Source:     source,
			FetchedAt:  time.Now().UTC(),
			RawContent: string(resp.Body()),
			HTTPStatus: status,
		}, nil
	case status >= 500 || status == 429:
		// Retries already exhausted by the client at this point
		return nil, &Error{
			Kind:   KindTransient,
			URL:    source.URL,
			Status: status,
			Err:    fmt.Errorf("server error after %d attempts", f.cfg.MaxRetries+1),
		}
	default:
		return nil, &Error{
			Kind:   KindPermanentHTTP,
			URL:    source.URL,
			Status: status,
			Err:    fmt.Errorf("client error response"),
		}
	}
}

func isCertError(err error) bool {
	var certInvalid x509.CertificateInvalidError
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var verification *tls.CertificateVerificationError
	if errors.As(err, &certInvalid) || errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) || errors.As(err, &verification) {
		return true
	}
	return strings.Contains(err.Error(), "certificate")
}
