package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := `
scraping:
  per_source_limit: 4
  detail_pages: true
pipeline:
  listing_delay_min: 0s
  listing_delay_max: 1s
  target_suburbs: ["Erskineville"]
notify:
  digest_path: out/digest.html
`
	if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scraping.PerSourceLimit != 4 {
		t.Errorf("PerSourceLimit = %d, want 4", cfg.Scraping.PerSourceLimit)
	}
	if !cfg.Scraping.DetailPages {
		t.Error("DetailPages = false, want true")
	}
	if cfg.Pipeline.ListingDelayMax != time.Second {
		t.Errorf("ListingDelayMax = %v, want 1s", cfg.Pipeline.ListingDelayMax)
	}
	if len(cfg.Pipeline.TargetSuburbs) != 1 || cfg.Pipeline.TargetSuburbs[0] != "Erskineville" {
		t.Errorf("TargetSuburbs = %v", cfg.Pipeline.TargetSuburbs)
	}
	// untouched keys keep their defaults
	if cfg.Analysis.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want default", cfg.Analysis.Model)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scraping.PerSourceLimit != 10 {
		t.Errorf("PerSourceLimit = %d, want 10", cfg.Scraping.PerSourceLimit)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scraping: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NOTION_TOKEN":       "secret",
		"NOTION_DATABASE_ID": "db123",
		"OPENAI_API_KEY":     "sk-test",
		"TELEGRAM_BOT_TOKEN": "123:abc",
		"PER_SOURCE_LIMIT":   "3",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })
	cfg.resolveStore()

	if cfg.Store.Kind != "notion" {
		t.Errorf("Store.Kind = %q, want notion", cfg.Store.Kind)
	}
	if cfg.Analysis.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Analysis.APIKey)
	}
	if cfg.Scraping.PerSourceLimit != 3 {
		t.Errorf("PerSourceLimit = %d, want 3", cfg.Scraping.PerSourceLimit)
	}
	// chat id missing, so the notifier stays off
	if cfg.TelegramEnabled() {
		t.Error("TelegramEnabled() = true without chat id")
	}
}

func TestResolveStore(t *testing.T) {
	tests := []struct {
		name string
		cfg  StoreConfig
		want string
	}{
		{"explicit kind wins", StoreConfig{Kind: " Postgres ", NotionToken: "x", NotionDatabaseID: "y"}, "postgres"},
		{"notion credentials", StoreConfig{NotionToken: "x", NotionDatabaseID: "y"}, "notion"},
		{"token without database", StoreConfig{NotionToken: "x"}, "none"},
		{"database url", StoreConfig{DatabaseURL: "postgres://localhost/db"}, "postgres"},
		{"nothing configured", StoreConfig{}, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Store = tt.cfg
			cfg.resolveStore()
			if cfg.Store.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", cfg.Store.Kind, tt.want)
			}
		})
	}
}
