package model

import (
	"fmt"
	"net/url"
)

// SourceType categorizes a document source by its origin
type SourceType string

const (
	SourceTypeNephio SourceType = "nephio"
	SourceTypeORANSC SourceType = "oran_sc"
	SourceTypeCustom SourceType = "custom"
)

// Valid reports whether the source type is one of the known variants
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeNephio, SourceTypeORANSC, SourceTypeCustom:
		return true
	}
	return false
}

const (
	// PriorityHighest and PriorityLowest bound the valid priority range.
	// Lower numbers rank higher.
	PriorityHighest = 1
	PriorityLowest  = 5
)

// DocumentSource is a configured origin of domain documentation.
// The URL is the unique key within the registry. Sources are only ever
// enabled or disabled, never deleted.
type DocumentSource struct {
	URL         string     `json:"url"`
	Type        SourceType `json:"type"`
	Description string     `json:"description,omitempty"`
	Priority    int        `json:"priority"`
	Enabled     bool       `json:"enabled"`
}

// Validate checks URL well-formedness, source type and priority range
func (s *DocumentSource) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("source URL must not be empty")
	}
	parsed, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("source URL %q is malformed: %w", s.URL, err)
	}
	if !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("source URL %q must be absolute with http or https scheme", s.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("source URL %q must have a host", s.URL)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	if s.Priority < PriorityHighest || s.Priority > PriorityLowest {
		return fmt.Errorf("priority %d out of range [%d..%d]", s.Priority, PriorityHighest, PriorityLowest)
	}
	return nil
}
