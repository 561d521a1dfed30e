// # internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"loom/internal/compiler/parser"
)

type Config struct {
	SrcPaths []string `toml:"src_paths"`
	Exclude  Exclude  `toml:"exclude"`
	Watch    Watch    `toml:"watch"`
	Output   Output   `toml:"output"`
	Runtime  Runtime  `toml:"runtime"`
	History  History  `toml:"history"`
	Observe  Observe  `toml:"observability"`
	Alerts   Alerts   `toml:"alerts"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// Rebuild rate cap, builds per second with a small burst.
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

type Output struct {
	// Routes is where the page manifest lands, relative to the working dir.
	Routes string `toml:"routes"`
}

// Runtime overrides the names the compiler recognizes and emits. Empty
// fields keep the defaults.
type Runtime struct {
	Container string `toml:"container"`
	Derive    string `toml:"derive"`
	Builder   string `toml:"builder"`
	When      string `toml:"when"`
	ElseWhen  string `toml:"elsewhen"`
	Otherwise string `toml:"otherwise"`
	Each      string `toml:"each"`
	Module    string `toml:"module"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observe struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

type Alerts struct {
	Beep     bool `toml:"beep"`
	Terminal bool `toml:"terminal"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no loom.toml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if len(cfg.SrcPaths) == 0 {
		cfg.SrcPaths = []string{"."}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.RatePerSecond == 0 {
		cfg.Watch.RatePerSecond = 4
	}
	if cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = 2
	}
	if cfg.Output.Routes == "" {
		cfg.Output.Routes = "routes.gen.json"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = ".loom/history.db"
	}
	if cfg.Observe.ServiceName == "" {
		cfg.Observe.ServiceName = "loomc"
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"node_modules", ".git", "dist"}
	}
}

// Vocabulary resolves the runtime overrides against the defaults.
func (cfg *Config) Vocabulary() parser.Vocabulary {
	v := parser.DefaultVocabulary()
	if cfg.Runtime.Container != "" {
		v.Container = cfg.Runtime.Container
	}
	if cfg.Runtime.Derive != "" {
		v.Derive = cfg.Runtime.Derive
	}
	if cfg.Runtime.Builder != "" {
		v.Builder = cfg.Runtime.Builder
	}
	if cfg.Runtime.When != "" {
		v.When = cfg.Runtime.When
	}
	if cfg.Runtime.ElseWhen != "" {
		v.ElseWhen = cfg.Runtime.ElseWhen
	}
	if cfg.Runtime.Otherwise != "" {
		v.Otherwise = cfg.Runtime.Otherwise
	}
	if cfg.Runtime.Each != "" {
		v.Each = cfg.Runtime.Each
	}
	if cfg.Runtime.Module != "" {
		v.Module = cfg.Runtime.Module
	}
	return v
}
