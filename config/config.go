package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the pipeline needs. It is built once in main and
// handed to each component constructor.
type Config struct {
	Scraping ScrapingConfig `yaml:"scraping"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Store    StoreConfig    `yaml:"store"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// ScrapingConfig configures the source adapters
type ScrapingConfig struct {
	Fetcher        string        `yaml:"fetcher"` // "colly" or "rod"
	PerSourceLimit int           `yaml:"per_source_limit"`
	Timeout        time.Duration `yaml:"timeout"`
	DetailPages    bool          `yaml:"detail_pages"`
	UserAgent      string        `yaml:"user_agent"`
	BrowserDataDir string        `yaml:"browser_data_dir"`
}

// PipelineConfig holds the politeness delays and target localities
type PipelineConfig struct {
	AdapterDelayMin time.Duration `yaml:"adapter_delay_min"`
	AdapterDelayMax time.Duration `yaml:"adapter_delay_max"`
	ListingDelayMin time.Duration `yaml:"listing_delay_min"`
	ListingDelayMax time.Duration `yaml:"listing_delay_max"`
	TargetSuburbs   []string      `yaml:"target_suburbs"`
}

// AnalysisConfig configures the text-generation client
type AnalysisConfig struct {
	APIKey      string        `yaml:"-"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StoreConfig selects and configures the persistence backend
type StoreConfig struct {
	Kind             string `yaml:"kind"` // "notion", "postgres" or "none"
	NotionToken      string `yaml:"-"`
	NotionDatabaseID string `yaml:"notion_database_id"`
	DatabaseURL      string `yaml:"-"`
}

// NotifyConfig configures the outbound notifications
type NotifyConfig struct {
	TelegramToken     string `yaml:"-"`
	TelegramChatID    string `yaml:"telegram_chat_id"`
	DigestPath        string `yaml:"digest_path"`
	MailTo            string `yaml:"mail_to"`
	MailSubject       string `yaml:"mail_subject"`
	MailTemplate      string `yaml:"mail_template"`
	MailCredentials   string `yaml:"mail_credentials"`
	MailTokenPath     string `yaml:"mail_token_path"`
	ContactEmail      string `yaml:"contact_email"`
	SpreadsheetURL    string `yaml:"spreadsheet_url"`
	SheetsCredentials string `yaml:"-"`
}

// Default returns a configuration with every knob set to its default
func Default() *Config {
	return &Config{
		Scraping: ScrapingConfig{
			Fetcher:        "colly",
			PerSourceLimit: 10,
			Timeout:        20 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			BrowserDataDir: "/tmp/flatshare-browser",
		},
		Pipeline: PipelineConfig{
			AdapterDelayMin: 1 * time.Second,
			AdapterDelayMax: 3 * time.Second,
			ListingDelayMin: 2 * time.Second,
			ListingDelayMax: 5 * time.Second,
			TargetSuburbs:   []string{"Surry Hills", "Darlinghurst", "Newtown"},
		},
		Analysis: AnalysisConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     30 * time.Second,
		},
		Store: StoreConfig{},
		Notify: NotifyConfig{
			DigestPath:      "daily_digest.html",
			MailSubject:     "New LGBTQ+ flatshare listings in Sydney",
			MailTemplate:    "templates/email.html",
			MailCredentials: "credentials.json",
			MailTokenPath:   "token.json",
			ContactEmail:    "owner@example.com",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if it
// exists), then .env and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case os.IsNotExist(err):
			log.Printf("Config file %s not found. Using defaults.\n", path)
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg.applyEnv(os.Getenv)
	cfg.resolveStore()
	return cfg, nil
}

// applyEnv overlays environment variables. lookup is os.Getenv outside tests.
func (c *Config) applyEnv(lookup func(string) string) {
	setString(&c.Store.NotionToken, lookup("NOTION_TOKEN"))
	setString(&c.Store.NotionDatabaseID, lookup("NOTION_DATABASE_ID"))
	setString(&c.Store.DatabaseURL, lookup("DATABASE_URL"))
	setString(&c.Store.Kind, lookup("STORE"))

	setString(&c.Analysis.APIKey, lookup("OPENAI_API_KEY"))
	setString(&c.Analysis.Model, lookup("OPENAI_MODEL"))
	setString(&c.Analysis.BaseURL, lookup("OPENAI_BASE_URL"))

	setString(&c.Notify.TelegramToken, lookup("TELEGRAM_BOT_TOKEN"))
	setString(&c.Notify.TelegramChatID, lookup("TELEGRAM_CHAT_ID"))
	setString(&c.Notify.MailTo, lookup("MAIL_TO"))
	setString(&c.Notify.DigestPath, lookup("DIGEST_PATH"))
	setString(&c.Notify.SpreadsheetURL, lookup("SPREADSHEET_URL"))
	setString(&c.Notify.SheetsCredentials, strings.TrimSpace(lookup("GOOGLE_SHEETS_CREDENTIALS")))

	setString(&c.Scraping.Fetcher, lookup("FETCHER"))
	if v := lookup("PER_SOURCE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scraping.PerSourceLimit = n
		} else {
			log.Printf("Warning: ignoring invalid PER_SOURCE_LIMIT %q\n", v)
		}
	}
}

// resolveStore picks a backend when none was chosen explicitly
func (c *Config) resolveStore() {
	c.Store.Kind = strings.ToLower(strings.TrimSpace(c.Store.Kind))
	if c.Store.Kind != "" {
		return
	}
	switch {
	case c.Store.NotionToken != "" && c.Store.NotionDatabaseID != "":
		c.Store.Kind = "notion"
	case c.Store.DatabaseURL != "":
		c.Store.Kind = "postgres"
	default:
		c.Store.Kind = "none"
	}
}

// TelegramEnabled reports whether the chat notifier has what it needs
func (c *Config) TelegramEnabled() bool {
	return c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != ""
}

// MailEnabled reports whether the email digest should be sent
func (c *Config) MailEnabled() bool {
	return c.Notify.MailTo != ""
}

// SheetsEnabled reports whether the spreadsheet export is configured
func (c *Config) SheetsEnabled() bool {
	return c.Notify.SpreadsheetURL != "" && c.Notify.SheetsCredentials != ""
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
