package registry

import "github.com/oran-nephio/docrag/model"

// DefaultSources returns the built-in documentation sources for Nephio and
// the O-RAN Software Community, ordered by priority
func DefaultSources() []*model.DocumentSource {
	return []*model.DocumentSource{
		{
			URL:         "https://docs.nephio.org/docs/",
			Type:        model.SourceTypeNephio,
			Description: "Nephio documentation portal",
			Priority:    1,
			Enabled:     true,
		},
		{
			URL:         "https://docs.nephio.org/docs/network-architecture/",
			Type:        model.SourceTypeNephio,
			Description: "Nephio network architecture guide",
			Priority:    1,
			Enabled:     true,
		},
		{
			URL:         "https://docs.nephio.org/docs/guides/user-guides/",
			Type:        model.SourceTypeNephio,
			Description: "Nephio user guides for network function deployment",
			Priority:    2,
			Enabled:     true,
		},
		{
			URL:         "https://docs.o-ran-sc.org/en/latest/",
			Type:        model.SourceTypeORANSC,
			Description: "O-RAN Software Community documentation",
			Priority:    1,
			Enabled:     true,
		},
		{
			URL:         "https://docs.o-ran-sc.org/en/latest/architecture/architecture.html",
			Type:        model.SourceTypeORANSC,
			Description: "O-RAN SC architecture overview",
			Priority:    2,
			Enabled:     true,
		},
		{
			URL:         "https://lf-o-ran-sc.atlassian.net/wiki/spaces/ORAN/overview",
			Type:        model.SourceTypeORANSC,
			Description: "O-RAN SC project wiki",
			Priority:    3,
			Enabled:     true,
		},
	}
}
