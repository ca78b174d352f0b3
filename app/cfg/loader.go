package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	DefaultDocketID   = 68024915
	DefaultDocketSlug = "alter-v-openai-inc"
	DefaultBaseURL    = "https://www.courtlistener.com"
	DefaultOutputPath = "feed.xml"
	DefaultMaxRetries = 4
	DefaultTimeout    = 30 * time.Second
	DefaultUserAgent  = "Mozilla/5.0 (compatible; DocketComb/1.0; +https://github.com/lysyi3m/docket-comb)"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// Fields shared with the YAML file carry no default tag: an empty value means
// "not given" so the file can fill it before the built-in defaults apply.
type rawCfg struct {
	// Docket configuration
	DocketID   int    `long:"docket-id" env:"DOCKET_ID" description:"CourtListener docket ID (default: 68024915)"`
	DocketSlug string `long:"docket-slug" env:"DOCKET_SLUG" description:"Docket slug used in the docket page URL (default: alter-v-openai-inc)"`
	BaseURL    string `long:"base-url" env:"COURTLISTENER_URL" description:"CourtListener base URL (default: https://www.courtlistener.com)"`
	SelfURL    string `long:"self-url" env:"FEED_SELF_URL" description:"Public URL of the published feed, added as rel=self (optional)"`

	// Build configuration
	OutputPath string `long:"output" short:"o" env:"OUTPUT_PATH" description:"Output file (default: feed.xml)"`
	MaxRetries *int   `long:"max-retries" env:"MAX_RETRIES" description:"Retries on transient HTTP failures (default: 4)"`
	Timeout    int    `long:"timeout" env:"FETCH_TIMEOUT" description:"Per-request timeout in seconds (default: 30)"`
	UserAgent  string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`
	ConfigFile string `long:"config" short:"c" env:"CONFIG_FILE" description:"YAML docket configuration file (optional)"`

	// Preview server configuration
	Serve        bool   `long:"serve" env:"SERVE" description:"Serve the built feed over HTTP after building it"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port for --serve"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the rebuild endpoint (optional)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses flags and environment, merges the optional YAML file and
// validates the result. It returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DocketID:     raw.DocketID,
		DocketSlug:   raw.DocketSlug,
		BaseURL:      raw.BaseURL,
		SelfURL:      raw.SelfURL,
		OutputPath:   raw.OutputPath,
		MaxRetries:   -1,
		Timeout:      time.Duration(raw.Timeout) * time.Second,
		UserAgent:    raw.UserAgent,
		Serve:        raw.Serve,
		Port:         raw.Port,
		APIAccessKey: raw.APIAccessKey,
		ConfigFile:   raw.ConfigFile,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}
	if raw.MaxRetries != nil {
		if *raw.MaxRetries < 0 {
			return nil, fmt.Errorf("invalid configuration: max retries must be non-negative")
		}
		cfg.MaxRetries = *raw.MaxRetries
	}

	if cfg.ConfigFile != "" {
		file, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		file.applyTo(cfg)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Cfg) {
	if cfg.DocketID == 0 {
		cfg.DocketID = DefaultDocketID
	}
	cfg.DocketSlug = cmp.Or(cfg.DocketSlug, DefaultDocketSlug)
	cfg.BaseURL = cmp.Or(cfg.BaseURL, DefaultBaseURL)
	cfg.OutputPath = cmp.Or(cfg.OutputPath, DefaultOutputPath)
	cfg.UserAgent = cmp.Or(cfg.UserAgent, DefaultUserAgent)
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
}

func validate(cfg *Cfg) error {
	if cfg.DocketID <= 0 {
		return fmt.Errorf("docket ID must be positive, got %d", cfg.DocketID)
	}
	if strings.Contains(cfg.DocketSlug, "/") {
		return fmt.Errorf("docket slug must not contain '/': %q", cfg.DocketSlug)
	}
	if err := validateURL(cfg.BaseURL); err != nil {
		return fmt.Errorf("base URL: %w", err)
	}
	if cfg.SelfURL != "" {
		if err := validateURL(cfg.SelfURL); err != nil {
			return fmt.Errorf("self URL: %w", err)
		}
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required: %q", raw)
	}
	return nil
}
