package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/format"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/adapters/backend"
	"github.com/aretw0/concierge/pkg/adapters/redis"
	"github.com/aretw0/concierge/pkg/catalog"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/persistence/middleware"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONCIERGE_"

// Config is the full runtime configuration of the concierge binaries.
type Config struct {
	Backend      BackendConfig      `yaml:"backend" mapstructure:"backend"`
	Conversation ConversationConfig `yaml:"conversation" mapstructure:"conversation"`
	Categories   CategoriesConfig   `yaml:"categories" mapstructure:"categories"`
	Redis        RedisConfig        `yaml:"redis" mapstructure:"redis"`
	Archive      ArchiveConfig      `yaml:"archive" mapstructure:"archive"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`

	// Flows replaces the built-in question sequences when set.
	Flows []FlowConfig `yaml:"flows" mapstructure:"flows"`
}

// BackendConfig locates the marketplace API.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	VendorMatch string        `yaml:"vendor_match" mapstructure:"vendor_match"`
	EventAdvice string        `yaml:"event_advice" mapstructure:"event_advice"`
	Categories  string        `yaml:"categories" mapstructure:"categories"`
	// ServiceLink is the link prefix of a vendor service in formatted answers.
	ServiceLink string `yaml:"service_link" mapstructure:"service_link"`
	Currency    string `yaml:"currency" mapstructure:"currency"`
}

// ConversationConfig tunes the dialogue.
type ConversationConfig struct {
	AckDelay time.Duration `yaml:"ack_delay" mapstructure:"ack_delay"`
	// Empty texts keep the built-in wording.
	Apology      string `yaml:"apology" mapstructure:"apology"`
	VendorSearch string `yaml:"vendor_search" mapstructure:"vendor_search"`
	EventSearch  string `yaml:"event_search" mapstructure:"event_search"`
}

// CategoriesConfig controls the vendor category cache.
type CategoriesConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RedisConfig enables the shared category cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// ArchiveConfig enables the dispatch archive when Path is set.
type ArchiveConfig struct {
	Path string `yaml:"path" mapstructure:"path"`

	// KeepPII stores follow-up text verbatim. Otherwise contact details and PIIPatterns
	// matches are masked.
	KeepPII     bool     `yaml:"keep_pii" mapstructure:"keep_pii"`
	PIIPatterns []string `yaml:"pii_patterns" mapstructure:"pii_patterns"`
}

// Middleware returns the archive middlewares the settings ask for.
func (a ArchiveConfig) Middleware() ([]middleware.Middleware, error) {
	if a.KeepPII {
		return nil, nil
	}
	patterns := append(slices.Clone(middleware.DefaultPIIPatterns), a.PIIPatterns...)
	pii, err := middleware.NewPIIMiddleware(patterns)
	if err != nil {
		return nil, fmt.Errorf("archive.pii_patterns: %w", err)
	}
	return []middleware.Middleware{pii}, nil
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxSessions    int           `yaml:"max_sessions" mapstructure:"max_sessions"`
	SessionIdle    time.Duration `yaml:"session_idle" mapstructure:"session_idle"`
	ReapInterval   time.Duration `yaml:"reap_interval" mapstructure:"reap_interval"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// FlowConfig is the question sequence of one domain.
type FlowConfig struct {
	Domain string       `yaml:"domain" mapstructure:"domain"`
	Steps  []StepConfig `yaml:"steps" mapstructure:"steps"`
}

// StepConfig is one guided question.
type StepConfig struct {
	State  string   `yaml:"state" mapstructure:"state"`
	Prompt string   `yaml:"prompt" mapstructure:"prompt"`
	Source string   `yaml:"source" mapstructure:"source"` // "static" (default) or "categories"
	Values []string `yaml:"options" mapstructure:"options"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	paths := backend.DefaultPaths()
	formatter := format.New()
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://localhost:8080/api",
			Timeout:     concierge.DefaultTimeout,
			VendorMatch: paths.VendorMatch,
			EventAdvice: paths.EventAdvice,
			Categories:  paths.Categories,
			ServiceLink: formatter.ServiceLink,
			Currency:    formatter.Currency,
		},
		Conversation: ConversationConfig{AckDelay: concierge.DefaultAckDelay},
		Categories:   CategoriesConfig{TTL: catalog.DefaultTTL},
		Redis:        RedisConfig{Prefix: redis.DefaultPrefix},
		Server: ServerConfig{
			Addr:         ":8090",
			MaxSessions:  1000,
			SessionIdle:  30 * time.Minute,
			ReapInterval: time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// envKeys maps environment variables (without EnvPrefix) onto config keys.
var envKeys = map[string][]string{
	"BACKEND_URL":     {"backend", "base_url"},
	"BACKEND_TIMEOUT": {"backend", "timeout"},
	"ACK_DELAY":       {"conversation", "ack_delay"},
	"CATEGORIES_TTL":  {"categories", "ttl"},
	"REDIS_ADDR":      {"redis", "addr"},
	"REDIS_PASSWORD":  {"redis", "password"},
	"REDIS_DB":        {"redis", "db"},
	"ARCHIVE_PATH":    {"archive", "path"},
	"ADDR":            {"server", "addr"},
	"MAX_SESSIONS":    {"server", "max_sessions"},
	"SESSION_IDLE":    {"server", "session_idle"},
	"LOG_LEVEL":       {"log", "level"},
	"LOG_FORMAT":      {"log", "format"},
}

// Load builds the configuration from the defaults, the optional YAML file at path and the
// CONCIERGE_* environment, in that order. A missing file is only an error when path was
// given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if err := decode(envOverrides(os.LookupEnv), cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(input map[string]any, cfg *Config) error {
	if len(input) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func envOverrides(lookup func(string) (string, bool)) map[string]any {
	out := map[string]any{}
	for name, key := range envKeys {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		section, _ := out[key[0]].(map[string]any)
		if section == nil {
			section = map[string]any{}
			out[key[0]] = section
		}
		section[key[1]] = v
	}
	return out
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Conversation.AckDelay < 0 {
		errs = append(errs, errors.New("conversation.ack_delay must not be negative"))
	}
	if c.Categories.TTL < 0 {
		errs = append(errs, errors.New("categories.ttl must not be negative"))
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, errors.New("server.max_sessions must not be negative"))
	}
	if c.Server.SessionIdle < 0 || c.Server.ReapInterval < 0 {
		errs = append(errs, errors.New("server.session_idle and server.reap_interval must not be negative"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", f))
	}
	if _, err := c.Archive.Middleware(); err != nil {
		errs = append(errs, err)
	}
	for i, flow := range c.Flows {
		if _, err := domain.ParseDomain(flow.Domain); err != nil {
			errs = append(errs, fmt.Errorf("flows[%d]: %w", i, err))
		}
		for j, step := range flow.Steps {
			if strings.TrimSpace(step.Prompt) == "" {
				errs = append(errs, fmt.Errorf("flows[%d].steps[%d]: prompt is required", i, j))
			}
			if step.Source != "" && step.Source != "static" && step.Source != "categories" {
				errs = append(errs, fmt.Errorf("flows[%d].steps[%d]: unknown source %q", i, j, step.Source))
			}
		}
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Logger builds the configured logger.
func (l LogConfig) Logger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if l.Format == "json" {
		return logging.NewJSON(level)
	}
	return logging.New(level)
}

// BuildFlows returns the configured question sequences, or the built-in ones when none are
// configured. categories serves steps whose source is "categories".
func (c *Config) BuildFlows(categories ports.OptionSource) []concierge.Flow {
	if len(c.Flows) == 0 {
		return concierge.DefaultFlows(categories)
	}
	flows := make([]concierge.Flow, 0, len(c.Flows))
	for _, fc := range c.Flows {
		d, _ := domain.ParseDomain(fc.Domain)
		flow := concierge.Flow{Domain: d}
		for _, sc := range fc.Steps {
			step := concierge.Step{
				State:  domain.FlowState(strings.ToUpper(strings.TrimSpace(sc.State))),
				Prompt: sc.Prompt,
			}
			switch {
			case sc.Source == "categories":
				step.Source = categories
			case len(sc.Values) > 0:
				step.Source = concierge.StaticOptions(sc.Values)
			}
			flow.Steps = append(flow.Steps, step)
		}
		flows = append(flows, flow)
	}
	return flows
}

// Texts merges the configured wording over the defaults.
func (c ConversationConfig) Texts() concierge.Texts {
	t := concierge.DefaultTexts()
	if c.Apology != "" {
		t.Apology = c.Apology
	}
	if c.VendorSearch != "" {
		t.VendorSearch = c.VendorSearch
	}
	if c.EventSearch != "" {
		t.EventSearch = c.EventSearch
	}
	return t
}

// Paths returns the backend endpoint paths.
func (b BackendConfig) Paths() backend.Paths {
	return backend.Paths{
		VendorMatch: b.VendorMatch,
		EventAdvice: b.EventAdvice,
		Categories:  b.Categories,
	}
}

// Formatter returns the response formatter for the configured links and currency.
func (b BackendConfig) Formatter() *format.Formatter {
	f := format.New()
	f.ServiceLink = b.ServiceLink
	f.Currency = b.Currency
	return f
}
