package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
participants: [p1, p2, p3]
starting_cash: 400
bank_cash: 8000
packets:
  - items:
      - {id: a, price: 20}
      - {id: b, price: 40, company: X}
companies:
  - {id: X, par: 100}
resources:
  types:
    - {name: "2", count: 4, price: 80}
    - {name: "3", count: 3, price: 180, rusts: "2"}
results:
  secret: ${TEST_RESULT_SECRET}
`

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "game.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv("TEST_RESULT_SECRET", "s3cret")
	path := writeTempFile(t, minimalYAML)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Results.Secret != "s3cret" {
		t.Errorf("Results.Secret = %q, want %q", cfg.Results.Secret, "s3cret")
	}
	if got := cfg.Packets[0].Items[1].Increment; got != DefaultIncrement {
		t.Errorf("item increment = %d, want %d", got, DefaultIncrement)
	}
	if cfg.Auction.Fallback != DefaultFallback {
		t.Errorf("Auction.Fallback = %q, want %q", cfg.Auction.Fallback, DefaultFallback)
	}
	if cfg.Companies[0].Shares != DefaultShares || cfg.Companies[0].FloatPercent != DefaultFloatPercent {
		t.Errorf("company defaults not applied: %+v", cfg.Companies[0])
	}
	if cfg.Results.TTL != DefaultResultTTL {
		t.Errorf("Results.TTL = %v, want %v", cfg.Results.TTL, DefaultResultTTL)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled without a host")
	}
	if cfg.Match.TurnDurationSeconds != DefaultTurnDurationSeconds {
		t.Errorf("Match.TurnDurationSeconds = %d, want %d", cfg.Match.TurnDurationSeconds, DefaultTurnDurationSeconds)
	}
}

func TestLoadSampleConfig(t *testing.T) {
	t.Setenv("RAILS_RESULT_SECRET", "sample")
	cfg, err := LoadAndValidate(filepath.Join("..", "..", "data", "game.yaml"))
	if err != nil {
		t.Fatalf("sample config: %v", err)
	}
	if len(cfg.Participants) != 4 || len(cfg.Packets) != 2 {
		t.Fatalf("unexpected sample shape: %d participants, %d packets", len(cfg.Participants), len(cfg.Packets))
	}
	if cfg.Results.TTL != 72*time.Hour {
		t.Errorf("Results.TTL = %v, want 72h", cfg.Results.TTL)
	}
}

func TestReductionPercent(t *testing.T) {
	cfg := &GameConfig{Auction: AuctionConfig{DecrementPercent: "12.5"}}
	pct, err := cfg.ReductionPercent()
	if err != nil {
		t.Fatalf("ReductionPercent: %v", err)
	}
	if pct.String() != "12.5" {
		t.Errorf("ReductionPercent = %s, want 12.5", pct)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *GameConfig)
		wantErr string
	}{
		{
			name:    "duplicate participant",
			mutate:  func(c *GameConfig) { c.Participants = []string{"p1", "p1"} },
			wantErr: "duplicated",
		},
		{
			name:    "unknown fallback",
			mutate:  func(c *GameConfig) { c.Auction.Fallback = "oldest" },
			wantErr: "auction.fallback",
		},
		{
			name:    "bad percent",
			mutate:  func(c *GameConfig) { c.Auction.DecrementPercent = "abc" },
			wantErr: "decrement_percent",
		},
		{
			name:    "percent too large",
			mutate:  func(c *GameConfig) { c.Auction.DecrementPercent = "100" },
			wantErr: "decrement_percent",
		},
		{
			name:    "unknown company reference",
			mutate:  func(c *GameConfig) { c.Packets[0].Items[0].Exchange = "Y" },
			wantErr: "unknown company",
		},
		{
			name:    "rust refers forward",
			mutate:  func(c *GameConfig) { c.Resources.Types[0].Rusts = "3" },
			wantErr: "earlier type",
		},
		{
			name:    "missing secret",
			mutate:  func(c *GameConfig) { c.Results.Secret = "" },
			wantErr: "results.secret",
		},
		{
			name:    "lua without script",
			mutate:  func(c *GameConfig) { c.Ruleset.Name = "lua" },
			wantErr: "ruleset.script",
		},
		{
			name:    "bot for a stranger",
			mutate:  func(c *GameConfig) { c.Bots = map[string]string{"zed": "passive"} },
			wantErr: "bots.zed",
		},
		{
			name: "database without user",
			mutate: func(c *GameConfig) {
				c.Database = DBConfig{Host: "localhost", Name: "rails", MaxConns: 2}
			},
			wantErr: "database.user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_RESULT_SECRET", "s3cret")
			cfg, err := Parse([]byte(minimalYAML))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
