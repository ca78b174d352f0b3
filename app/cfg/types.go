package cfg

import (
	"fmt"
	"strings"
	"time"
)

type Cfg struct {
	// Docket configuration
	DocketID   int
	DocketSlug string
	BaseURL    string
	SelfURL    string

	// Build configuration
	OutputPath string
	MaxRetries int
	Timeout    time.Duration
	UserAgent  string

	// Preview server configuration
	Serve        bool
	Port         string
	APIAccessKey string

	// Application metadata
	ConfigFile string
	Debug      bool
	Version    string
}

// SourceFeedURL is the upstream Atom feed for the docket.
func (c *Cfg) SourceFeedURL() string {
	return fmt.Sprintf("%s/docket/%d/feed/", strings.TrimRight(c.BaseURL, "/"), c.DocketID)
}

// DocketPageURL is the human-facing docket page entry links point at.
func (c *Cfg) DocketPageURL() string {
	return fmt.Sprintf("%s/docket/%d/%s/", strings.TrimRight(c.BaseURL, "/"), c.DocketID, c.DocketSlug)
}

// File is the optional YAML docket configuration.
type File struct {
	Docket   FileDocket   `yaml:"docket"`
	SelfURL  string       `yaml:"self_url"`
	Output   string       `yaml:"output"`
	BaseURL  string       `yaml:"base_url"`
	Settings FileSettings `yaml:"settings"`
}

type FileDocket struct {
	ID   int    `yaml:"id"`
	Slug string `yaml:"slug"`
}

type FileSettings struct {
	MaxRetries *int   `yaml:"max_retries"`
	Timeout    int    `yaml:"timeout"` // seconds
	UserAgent  string `yaml:"user_agent"`
}
