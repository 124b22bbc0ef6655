// Package config loads the service configuration from YAML or JSON files
// with environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/scheduler"
	"github.com/veeo/driver-dispatch/infra/telemetry"
)

type Config struct {
	Dispatch  dispatch.Config  `json:"dispatch"`
	Scheduler scheduler.Config `json:"scheduler"`
	Notify    NotifyConfig     `json:"notify"`
	Metrics   MetricsConfig    `json:"metrics"`
	Audit     AuditConfig      `json:"audit"`
	Directory DirectoryConfig  `json:"directory"`
	Stream    StreamConfig     `json:"stream"`
	Telemetry telemetry.Config `json:"telemetry"`
	API       APIConfig        `json:"api"`
}

// Load reads the file at path and applies DD_-prefixed environment
// overrides, with "__" standing in for the section separator.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// The callback rewrites DD_SECTION__KEY to section.key, so the provider
	// delimiter must be the dot for the keys to unflatten into sections.
	if err := k.Load(env.Provider("DD_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Dispatch.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Audit.SetDefaults()
	cfg.Directory.SetDefaults()
	cfg.Stream.SetDefaults()
	cfg.Telemetry.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Stream.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
