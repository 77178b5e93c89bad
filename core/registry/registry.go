package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/oran-nephio/docrag/helper"
	"github.com/oran-nephio/docrag/model"
)

var (
	// ErrDuplicateURL is returned when adding a source whose URL is
	// already registered
	ErrDuplicateURL = errors.New("source URL already registered")
	// ErrNotFound is returned for operations on an unknown source URL
	ErrNotFound = errors.New("source not found")
)

// Registry holds the configured document sources. Sources are added and
// enabled/disabled at runtime but never deleted, so insertion order is
// stable and usable as a ranking tie-break.
type Registry struct {
	mu      sync.RWMutex
	sources []*model.DocumentSource
	byURL   map[string]*model.DocumentSource
	log     *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		byURL: make(map[string]*model.DocumentSource),
		log:   logger,
	}
}

// NewDefaultRegistry creates a registry seeded with the built-in
// Nephio and O-RAN SC documentation sources
func NewDefaultRegistry(logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for _, src := range DefaultSources() {
		if err := r.Add(src); err != nil {
			return nil, helper.NewError("seed default sources", err)
		}
	}
	return r, nil
}

// Add registers a new source after validating it
func (r *Registry) Add(src *model.DocumentSource) error {
	if src == nil {
		return fmt.Errorf("source must not be nil")
	}
	if err := src.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byURL[src.URL]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateURL, src.URL)
	}

	cp := *src
	r.sources = append(r.sources, &cp)
	r.byURL[cp.URL] = &cp

	r.log.Info("Registered source",
		slog.String("url", cp.URL),
		slog.String("type", string(cp.Type)),
		slog.Int("priority", cp.Priority))

	return nil
}

// SetEnabled enables or disables a source by URL
func (r *Registry) SetEnabled(url string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, exists := r.byURL[url]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	src.Enabled = enabled

	r.log.Info("Changed source enablement", slog.String("url", url), slog.Bool("enabled", enabled))
	return nil
}

// SetPriority changes the priority of a source by URL
func (r *Registry) SetPriority(url string, priority int) error {
	if priority < model.PriorityHighest || priority > model.PriorityLowest {
		return fmt.Errorf("priority %d out of range [%d..%d]", priority, model.PriorityHighest, model.PriorityLowest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, exists := r.byURL[url]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	src.Priority = priority
	return nil
}

// Get returns a copy of the source with the given URL
func (r *Registry) Get(url string) (*model.DocumentSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, exists := r.byURL[url]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	cp := *src
	return &cp, nil
}

// ListEnabled returns the enabled sources ordered by ascending priority,
// then by insertion order
func (r *Registry) ListEnabled() []*model.DocumentSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var enabled []*model.DocumentSource
	for _, src := range r.sources {
		if src.Enabled {
			cp := *src
			enabled = append(enabled, &cp)
		}
	}

	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})

	return enabled
}

// ListAll returns every registered source in insertion order
func (r *Registry) ListAll() []*model.DocumentSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.DocumentSource, 0, len(r.sources))
	for _, src := range r.sources {
		cp := *src
		out = append(out, &cp)
	}
	return out
}

// Len returns the number of registered sources
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
