package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ManifestPath points at an HCL application manifest. Mutually exclusive
	// with GraphPath.
	ManifestPath string

	// GraphPath points at a single subgraph JSON file, launched directly
	// without a manifest. Prefix applies to its node names.
	GraphPath string
	Prefix    string

	// Modules lists compiled-in modules to activate in addition to those the
	// manifest names.
	Modules []string

	// Overrides are startup config writes in node/component/key=value form.
	Overrides []string

	// OverlayPath points at a JSON config overlay applied at Run. Watch
	// re-applies it whenever the file changes.
	OverlayPath string
	Watch       bool

	// StatusPort serves /health, /metrics, and /graph. 0 disables.
	StatusPort int

	LogFormat string
	LogLevel  string
}

// NewConfig validates a launcher configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" && cfg.GraphPath == "" {
		return nil, errors.New("either a manifest path or a graph path is required")
	}
	if cfg.ManifestPath != "" && cfg.GraphPath != "" {
		return nil, errors.New("manifest path and graph path are mutually exclusive")
	}
	if cfg.Prefix != "" && cfg.GraphPath == "" {
		return nil, errors.New("a node prefix requires a graph path; manifest loads carry their own prefixes")
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, errors.New("status port must be between 0 and 65535")
	}
	if cfg.Watch && cfg.OverlayPath == "" {
		return nil, errors.New("watch requires a config overlay path")
	}
	return &cfg, nil
}
