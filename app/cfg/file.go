package cfg

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML docket configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	slog.Debug("Configuration file loaded", "path", path, "docket_id", file.Docket.ID, "docket_slug", file.Docket.Slug)

	return &file, nil
}

func (f *File) validate() error {
	if f.Docket.ID < 0 {
		return fmt.Errorf("docket id must be non-negative")
	}
	if f.Settings.MaxRetries != nil && *f.Settings.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative")
	}
	if f.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// applyTo fills only the values flags and environment left empty.
func (f *File) applyTo(cfg *Cfg) {
	if cfg.DocketID == 0 {
		cfg.DocketID = f.Docket.ID
	}
	if cfg.DocketSlug == "" {
		cfg.DocketSlug = f.Docket.Slug
	}
	if cfg.SelfURL == "" {
		cfg.SelfURL = f.SelfURL
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = f.Output
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = f.BaseURL
	}
	if cfg.MaxRetries < 0 && f.Settings.MaxRetries != nil {
		cfg.MaxRetries = *f.Settings.MaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Duration(f.Settings.Timeout) * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = f.Settings.UserAgent
	}
}
