// internal/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGlobal(t *testing.T) {
	content := `
rewrite:
  client_name_rewrite_rule: "$U-$P"
server:
  listen_address: 0.0.0.0
  listen_port: 9999
  rate_limit_per_minute: 120
logging:
  format: text
  level: debug
stats:
  report_schedule: "@every 1m"
mcp:
  enabled: true
`
	cfg, err := LoadGlobal(writeConfig(t, t.TempDir(), content))
	if err != nil {
		t.Fatalf("LoadGlobal failed: %v", err)
	}

	rule, ok := cfg.Rule()
	if !ok || rule != "$U-$P" {
		t.Errorf("Rule() = %q, %v; want $U-$P, true", rule, ok)
	}
	if cfg.Server.ListenAddress != "0.0.0.0" || cfg.Server.ListenPort != 9999 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RateLimitPerMinute != 120 {
		t.Errorf("expected rate limit 120, got %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Logging.Format != "text" || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
	if !cfg.MCP.Enabled {
		t.Error("expected mcp enabled")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadGlobalDefaults(t *testing.T) {
	cfg, err := LoadGlobal(writeConfig(t, t.TempDir(), "{}\n"))
	if err != nil {
		t.Fatalf("LoadGlobal failed: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default address, got %s", cfg.Server.ListenAddress)
	}
	if cfg.Server.ListenPort != DefaultListenPort {
		t.Errorf("expected default port, got %d", cfg.Server.ListenPort)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Errorf("expected default max size, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Stats.ReportSchedule != "" {
		t.Errorf("stats reporting should stay disabled, got %q", cfg.Stats.ReportSchedule)
	}
}

func TestLoadGlobalZeroMaxSizeUsesDefault(t *testing.T) {
	content := "logging:\n  max_size_mb: 0\n"
	cfg, err := LoadGlobal(writeConfig(t, t.TempDir(), content))
	if err != nil {
		t.Fatalf("LoadGlobal failed: %v", err)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Errorf("max_size_mb: 0 should fall back to %d, got %d", DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg, err = LoadGlobal(writeConfig(t, t.TempDir(), "logging:\n  max_size_mb: 5\n"))
	if err != nil {
		t.Fatalf("LoadGlobal failed: %v", err)
	}
	if cfg.Logging.MaxSizeMB != 5 {
		t.Errorf("expected explicit max size 5, got %d", cfg.Logging.MaxSizeMB)
	}
}

func TestRulePresence(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantRule    string
		wantPresent bool
	}{
		{"absent", "server:\n  listen_port: 9880\n", "", false},
		{"null", "rewrite:\n  client_name_rewrite_rule:\n", "", false},
		{"empty", "rewrite:\n  client_name_rewrite_rule: \"\"\n", "", true},
		{"set", "rewrite:\n  client_name_rewrite_rule: $R$U\n", "$R$U", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.content))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			rule, ok := cfg.Rule()
			if rule != tt.wantRule || ok != tt.wantPresent {
				t.Errorf("Rule() = %q, %v; want %q, %v", rule, ok, tt.wantRule, tt.wantPresent)
			}
		})
	}

	var nilCfg *Global
	if _, ok := nilCfg.Rule(); ok {
		t.Error("nil config should report no rule")
	}
}

func TestLoadGlobalErrors(t *testing.T) {
	if _, err := LoadGlobal(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := LoadGlobal(writeConfig(t, t.TempDir(), "rewrite: [unclosed\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenPort = 70000
	cfg.Logging.Format = "xml"
	cfg.Logging.Level = "loud"
	cfg.Logging.MaxSizeMB = -1
	cfg.Stats.ReportSchedule = "not a schedule"
	cfg.Server.RequireSecret = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"listen_port", "logging.format", "logging.level", "max_size_mb", "report_schedule", "secret_env_var"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error: %v", want, err)
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if rule, ok := cfg.Rule(); !ok || rule != DefaultRule {
		t.Errorf("default rule = %q, %v", rule, ok)
	}
	if cfg.Server.SecretHeader != DefaultSecretHeader {
		t.Errorf("default secret header = %q", cfg.Server.SecretHeader)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg, err := LoadGlobal(path)
	if err != nil {
		t.Fatalf("LoadGlobal failed: %v", err)
	}
	if rule, _ := cfg.Rule(); rule != DefaultRule {
		t.Errorf("rule after save = %q", rule)
	}
	if cfg.Stats.ReportSchedule != DefaultReportSchedule {
		t.Errorf("schedule after save = %q", cfg.Stats.ReportSchedule)
	}
}
