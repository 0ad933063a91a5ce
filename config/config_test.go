package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dujyo.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token.Symbol != "DYO" || cfg.Token.MaxSupply != 1_000_000_000 {
		t.Fatalf("defaults = %+v", cfg.Token)
	}
	if cfg.DEX.FeeBps != 30 || cfg.DEX.MaxPriceImpactBps != 2_000 {
		t.Fatalf("defaults = %+v", cfg.DEX)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}

	// A second load reads the file back unchanged.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Token != cfg.Token || again.DEX != cfg.DEX || again.Logging != cfg.Logging {
		t.Fatalf("reload mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadOverridesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dujyo.toml")
	body := `
[token]
Symbol = "TST"
MaxSupply = 500000

[dex]
FeeBps = 50

[treasury]
Owners = ["ana", "ben", "cho"]
Threshold = 2
DailyLimit = 100000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token.Symbol != "TST" || cfg.Token.MaxSupply != 500_000 {
		t.Fatalf("token = %+v", cfg.Token)
	}
	if cfg.DEX.FeeBps != 50 {
		t.Fatalf("fee = %d, want 50", cfg.DEX.FeeBps)
	}
	// Unset fields keep their defaults.
	if cfg.DEX.MaxPriceImpactBps != 2_000 {
		t.Fatalf("impact ceiling = %d, want default 2000", cfg.DEX.MaxPriceImpactBps)
	}
	if cfg.Treasury.Threshold != 2 || len(cfg.Treasury.Owners) != 3 {
		t.Fatalf("treasury = %+v", cfg.Treasury)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "[token]\nSymbol = \"X\"\nColour = \"blue\"\n"},
		{name: "fee out of range", body: "[dex]\nFeeBps = 10000\n"},
		{name: "threshold unsatisfiable", body: "[treasury]\nOwners = [\"ana\"]\nThreshold = 2\n"},
		{name: "bad log level", body: "[logging]\nLevel = \"loud\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dujyo.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected load failure")
			}
		})
	}
}
