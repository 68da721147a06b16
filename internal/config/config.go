package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"TourScanner/internal/domain"
)

const (
	configPathEnv     = "TOURSCANNER_CONFIG"
	logLevelEnv       = "TOURSCANNER_LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	smtpUserEnv       = "SMTP_USER"
	smtpPasswordEnv   = "SMTP_PASSWORD"
	smtpReceiverEnv   = "SMTP_RECEIVER"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"

	defaultSourceURL = "https://www.bandsintown.com/today/genre/all-genres?recommended_artists_filter=All+Artists#search"
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36"
	defaultSQLiteDSN = "data/tours.db"
	defaultTimeout   = 30 * time.Second
)

var (
	unboundedValues = []string{"forever", "inf", "infinite", "∞"}
	knownExtractors = []string{"selectors", "jsonld"}
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Storage       StorageConfig      `yaml:"storage"`
	Sources       []SourceConfig     `yaml:"sources"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig bounds each source's polling loop.
type SchedulerConfig struct {
	// Duration is a Go duration or "forever".
	Duration string `yaml:"duration"`
	Pause    string `yaml:"pause"`
}

// Timing is the parsed form of SchedulerConfig.
type Timing struct {
	Duration  time.Duration
	Unbounded bool
	Pause     time.Duration
}

// Timing parses and checks duration and pause.
func (s SchedulerConfig) Timing() (Timing, error) {
	var t Timing

	pause, err := time.ParseDuration(strings.TrimSpace(s.Pause))
	if err != nil {
		return Timing{}, fmt.Errorf("scheduler.pause: %w", err)
	}
	if pause <= 0 {
		return Timing{}, fmt.Errorf("scheduler.pause must be positive, got %s", s.Pause)
	}
	t.Pause = pause

	raw := strings.ToLower(strings.TrimSpace(s.Duration))
	for _, v := range unboundedValues {
		if raw == v {
			t.Unbounded = true
			return t, nil
		}
	}

	duration, err := time.ParseDuration(raw)
	if err != nil {
		return Timing{}, fmt.Errorf("scheduler.duration: %w", err)
	}
	if duration <= 0 {
		return Timing{}, fmt.Errorf("scheduler.duration must be positive or \"forever\", got %s", s.Duration)
	}
	t.Duration = duration
	return t, nil
}

// StorageConfig selects the dedup store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

// TableDSN returns DSN, defaulting to a local file for sqlite.
func (s StorageConfig) TableDSN() string {
	if s.DSN == "" && s.Driver == "sqlite" {
		return defaultSQLiteDSN
	}
	return s.DSN
}

// SourceConfig describes one polled page and how to read it.
type SourceConfig struct {
	Name        string            `yaml:"name"`
	URL         string            `yaml:"url"`
	Headers     map[string]string `yaml:"headers"`
	Timeout     string            `yaml:"timeout"`
	Extractor   string            `yaml:"extractor"`
	Ruleset     domain.Ruleset    `yaml:"ruleset"`
	RulesetFile string            `yaml:"rulesetFile"`
	Fields      domain.FieldMap   `yaml:"fields"`
}

// TimeoutDuration returns the fetch timeout, defaulting to 30s.
func (s SourceConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
		return d
	}
	return defaultTimeout
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	DryRun   bool           `yaml:"dryRun"`
}

// EmailConfig wires SMTP submission; the channel is active once receivers are set.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Subject  string   `yaml:"subject"`
}

// Enabled reports whether any receiver is configured.
func (e EmailConfig) Enabled() bool {
	return len(e.To) > 0
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration from path (or $TOURSCANNER_CONFIG), applies
// environment overrides, resolves ruleset files and validates the result.
// With no file the defaults are used.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	baseDir := "."
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, eris.Wrapf(err, "config: read %s", path)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, eris.Wrapf(err, "config: parse %s", path)
		}
		cfg = mergeConfig(cfg, fileCfg)
		baseDir = filepath.Dir(path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.resolveRulesets(baseDir); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := c.Scheduler.Timing(); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.Backend {
	case "file":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path is required for the file backend"))
		}
	case "table":
		switch c.Storage.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Errorf("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver))
		}
		if c.Storage.TableDSN() == "" {
			errs = append(errs, errors.New("storage.dsn is required for the table backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be file or table, got %q", c.Storage.Backend))
	}

	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("at least one source is required"))
	}
	seen := map[string]bool{}
	for i, src := range c.Sources {
		label := fmt.Sprintf("sources[%d]", i)
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", label))
		} else if seen[src.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is duplicated", label, src.Name))
		}
		seen[src.Name] = true

		if u, err := url.Parse(src.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s.url must be an absolute http(s) URL, got %q", label, src.URL))
		}
		if !contains(knownExtractors, src.Extractor) {
			errs = append(errs, fmt.Errorf("%s.extractor must be one of %v, got %q", label, knownExtractors, src.Extractor))
		}
		if src.Timeout != "" {
			if d, err := time.ParseDuration(src.Timeout); err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("%s.timeout must be a positive duration, got %q", label, src.Timeout))
			}
		}
	}

	if email := c.Notifications.Email; email.Enabled() && email.Host == "" {
		errs = append(errs, errors.New("notifications.email.host is required when receivers are set"))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(smtpUserEnv); v != "" {
		c.Notifications.Email.Username = v
	}

	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Notifications.Email.Password = v
	}

	if v := os.Getenv(smtpReceiverEnv); v != "" {
		c.Notifications.Email.To = splitList(v)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) resolveRulesets(baseDir string) error {
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Extractor == "" {
			src.Extractor = "selectors"
		}
		if src.RulesetFile == "" {
			continue
		}
		if len(src.Ruleset.Items.Fields) > 0 {
			return eris.Errorf("config: source %s sets both ruleset and rulesetFile", src.Name)
		}

		path := src.RulesetFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "config: read ruleset %s", path)
		}
		if err := yaml.Unmarshal(raw, &src.Ruleset); err != nil {
			return eris.Wrapf(err, "config: parse ruleset %s", path)
		}
	}
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Scheduler.Duration != "" {
		base.Scheduler.Duration = override.Scheduler.Duration
	}
	if override.Scheduler.Pause != "" {
		base.Scheduler.Pause = override.Scheduler.Pause
	}

	if override.Storage.Backend != "" {
		base.Storage.Backend = override.Storage.Backend
	}
	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}
	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	email := override.Notifications.Email
	if email.Host != "" {
		base.Notifications.Email.Host = email.Host
	}
	if email.Port != 0 {
		base.Notifications.Email.Port = email.Port
	}
	if email.Username != "" {
		base.Notifications.Email.Username = email.Username
	}
	if email.Password != "" {
		base.Notifications.Email.Password = email.Password
	}
	if email.From != "" {
		base.Notifications.Email.From = email.From
	}
	if len(email.To) > 0 {
		base.Notifications.Email.To = email.To
	}
	if email.Subject != "" {
		base.Notifications.Email.Subject = email.Subject
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	base.Notifications.DryRun = base.Notifications.DryRun || override.Notifications.DryRun

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{Duration: "10m", Pause: "2m"},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "data/tours_data.json",
			Driver:  "sqlite",
		},
		Sources: []SourceConfig{
			{
				Name:      "bandsintown",
				URL:       defaultSourceURL,
				Headers:   map[string]string{"User-Agent": defaultUserAgent},
				Extractor: "jsonld",
				Ruleset: domain.Ruleset{
					Items: domain.ItemRule{
						Type:      "MusicEvent",
						EmptyText: "No upcoming events",
						Fields: map[string]domain.FieldRule{
							"artist":   {Path: "performer.name"},
							"location": {Path: "location.name"},
							"date":     {Path: "startDate"},
							"url":      {Path: "url", Type: domain.FieldLink},
						},
					},
				},
			},
		},
		Notifications: NotificationConfig{
			Email: EmailConfig{
				Host:    "smtp.gmail.com",
				Port:    587,
				Subject: "New Tour Event coming up!",
			},
		},
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
