package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "ARTICLES_PIPELINE_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	databaseDriverEnv   = "DATABASE_DRIVER"
	llmProviderEnv      = "LLM_PROVIDER"
	llmAPIKeyEnv        = "LLM_API_KEY"
	openAIAPIKeyEnv     = "OPENAI_API_KEY"
	llmModelEnv         = "LLM_MODEL"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	gmailCredentialsEnv = "GMAIL_CREDENTIALS_FILE"
	logLevelEnv         = "LOG_LEVEL"
	pushgatewayURLEnv   = "PUSHGATEWAY_URL"
)

// Table names end up in SQL text, so they are restricted to plain identifiers.
var tableNameExpr = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Browser       BrowserConfig      `yaml:"browser"`
	Resolver      ResolverConfig     `yaml:"resolver"`
	Scraper       ScraperConfig      `yaml:"scraper"`
	LLM           LLMConfig          `yaml:"llm"`
	Summarize     SummarizeConfig    `yaml:"summarize"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Classify      ClassifyConfig     `yaml:"classify"`
	Unify         UnifyConfig        `yaml:"unify"`
	Gmail         GmailConfig        `yaml:"gmail"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the canonical store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the full pipeline should run.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
	Timezone       string `yaml:"timezone"`
	RunOnStart     bool   `yaml:"runOnStart"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.Timezone != "" {
		if loc, err := time.LoadLocation(s.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// BrowserConfig controls the headless browser process.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless"`
	UserAgent string `yaml:"userAgent"`
	ExecPath  string `yaml:"execPath"`
}

// ResolverConfig bounds redirect resolution.
type ResolverConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
}

// ScraperConfig tunes page rendering and extraction.
type ScraperConfig struct {
	MinDelay        time.Duration  `yaml:"minDelay"`
	MaxDelay        time.Duration  `yaml:"maxDelay"`
	MaxScrolls      int            `yaml:"maxScrolls"`
	ScrollPause     time.Duration  `yaml:"scrollPause"`
	ExtractAttempts int            `yaml:"extractAttempts"`
	StaleBackoff    time.Duration  `yaml:"staleBackoff"`
	Layouts         []LayoutConfig `yaml:"layouts"`
}

// LayoutConfig overrides or adds a page layout family.
type LayoutConfig struct {
	Name            string        `yaml:"name"`
	Label           string        `yaml:"label"`
	ContentSelector string        `yaml:"contentSelector"`
	TitleSelector   string        `yaml:"titleSelector"`
	PaywallMarkers  []string      `yaml:"paywallMarkers"`
	WaitTimeout     time.Duration `yaml:"waitTimeout"`
	Scroll          bool          `yaml:"scroll"`
}

// LLMConfig defines how to contact the text-completion provider.
type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"apiKey"`
	Timeout         time.Duration `yaml:"timeout"`
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerCooldown time.Duration `yaml:"breakerCooldown"`
}

// SummarizeConfig configures the summarization stage.
type SummarizeConfig struct {
	Table         string  `yaml:"table"`
	Model         string  `yaml:"model"`
	MaxInputChars int     `yaml:"maxInputChars"`
	MaxTokens     int     `yaml:"maxTokens"`
	Temperature   float64 `yaml:"temperature"`
	SystemPrompt  string  `yaml:"systemPrompt"`
	UserPrompt    string  `yaml:"userPrompt"`
	Concurrency   int     `yaml:"concurrency"`
}

// ClassifyConfig configures the classification stage.
type ClassifyConfig struct {
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"maxTokens"`
	Temperature    float64 `yaml:"temperature"`
	PromptTemplate string  `yaml:"promptTemplate"`
	Concurrency    int     `yaml:"concurrency"`
}

// IngestConfig names the table that receives feed excerpts.
type IngestConfig struct {
	FeedTable string `yaml:"feedTable"`
}

// UnifyConfig lists origin summary tables in merge order; the first wins on collisions.
type UnifyConfig struct {
	Origins []string `yaml:"origins"`
}

// GmailConfig points at the e-mail digest inbox.
type GmailConfig struct {
	CredentialsFile string `yaml:"credentialsFile"`
	User            string `yaml:"user"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// MetricsConfig enables pushing run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

// SourceConfig describes a single link source with its harvester strategy.
type SourceConfig struct {
	Name      string            `yaml:"name"`
	Harvester string            `yaml:"harvester"`
	URL       string            `yaml:"url"`
	Query     string            `yaml:"query"`
	Pattern   string            `yaml:"pattern"`
	Options   map[string]string `yaml:"options"`
}

// Load reads .env, the YAML configuration (if present) and applies environment overrides.
// An explicit path wins over the ARTICLES_PIPELINE_CONFIG variable.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(gmailCredentialsEnv); v != "" {
		c.Gmail.CredentialsFile = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(pushgatewayURLEnv); v != "" {
		c.Metrics.PushgatewayURL = v
	}
}

// applyDefaults refills zero values a partial YAML file may have cleared.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Scheduler.CronExpression == "" {
		c.Scheduler.CronExpression = def.Scheduler.CronExpression
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = defaultTimezone
	}
	if c.Resolver.Timeout <= 0 {
		c.Resolver.Timeout = def.Resolver.Timeout
	}
	if c.Scraper.MaxScrolls <= 0 {
		c.Scraper.MaxScrolls = def.Scraper.MaxScrolls
	}
	if c.Scraper.ExtractAttempts <= 0 {
		c.Scraper.ExtractAttempts = def.Scraper.ExtractAttempts
	}
	if c.Scraper.MaxDelay < c.Scraper.MinDelay {
		c.Scraper.MaxDelay = c.Scraper.MinDelay
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = def.LLM.Timeout
	}
	if c.Summarize.Table == "" {
		c.Summarize.Table = def.Summarize.Table
	}
	if c.Summarize.MaxInputChars <= 0 {
		c.Summarize.MaxInputChars = def.Summarize.MaxInputChars
	}
	if c.Summarize.MaxTokens <= 0 {
		c.Summarize.MaxTokens = def.Summarize.MaxTokens
	}
	if c.Summarize.Concurrency <= 0 {
		c.Summarize.Concurrency = 1
	}
	if c.Classify.MaxTokens <= 0 {
		c.Classify.MaxTokens = def.Classify.MaxTokens
	}
	if c.Classify.Concurrency <= 0 {
		c.Classify.Concurrency = 1
	}
	if c.Ingest.FeedTable == "" {
		c.Ingest.FeedTable = def.Ingest.FeedTable
	}
	if len(c.Unify.Origins) == 0 {
		c.Unify.Origins = def.Unify.Origins
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = def.Metrics.Job
	}
}

// Validate reports misconfiguration that must abort a run.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want postgres or sqlite", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is empty"))
	}

	tables := append([]string{c.Summarize.Table, c.Ingest.FeedTable}, c.Unify.Origins...)
	for _, name := range tables {
		if !tableNameExpr.MatchString(name) {
			errs = append(errs, fmt.Errorf("table name %q is not a plain identifier", name))
		}
	}

	for i, src := range c.Sources {
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: name is empty", i))
		}
		if src.Harvester == "" {
			errs = append(errs, fmt.Errorf("sources[%d] %s: harvester is empty", i, src.Name))
		}
		if src.Pattern != "" {
			if _, err := regexp.Compile(src.Pattern); err != nil {
				errs = append(errs, fmt.Errorf("sources[%d] %s: pattern: %w", i, src.Name, err))
			}
		}
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
	}

	return errors.Join(errs...)
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{Driver: "postgres", DSN: "postgres://postgres@localhost:5432/articles?sslmode=disable"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone},
		Browser:   BrowserConfig{Headless: true},
		Resolver:  ResolverConfig{Timeout: 10 * time.Second, RatePerSecond: 2},
		Scraper: ScraperConfig{
			MinDelay:        2 * time.Second,
			MaxDelay:        5 * time.Second,
			MaxScrolls:      10,
			ScrollPause:     2 * time.Second,
			ExtractAttempts: 3,
			StaleBackoff:    2 * time.Second,
		},
		LLM: LLMConfig{
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			Timeout:         60 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: time.Minute,
		},
		Summarize: SummarizeConfig{
			Table:         "medium_summaries",
			MaxInputChars: 4000,
			MaxTokens:     500,
			Temperature:   0.5,
			Concurrency:   1,
		},
		Classify: ClassifyConfig{
			MaxTokens:   500,
			Temperature: 0,
			Concurrency: 1,
		},
		Ingest:  IngestConfig{FeedTable: "summaries"},
		Unify:   UnifyConfig{Origins: []string{"summaries", "medium_summaries"}},
		Gmail:   GmailConfig{User: "me"},
		Metrics: MetricsConfig{Job: "articles_pipeline"},
		Sources: []SourceConfig{
			{Name: "MIT Technology Review", Harvester: "rss", URL: "https://www.technologyreview.com/feed/"},
			{Name: "TechCrunch", Harvester: "rss", URL: "https://techcrunch.com/tag/artificial-intelligence/feed/"},
			{Name: "AI Trends", Harvester: "rss", URL: "https://www.aitrends.com/feed/"},
		},
	}
}
