// internal/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults applied to missing settings.
const (
	DefaultListenAddress  = "127.0.0.1"
	DefaultListenPort     = 9880
	DefaultRateLimit      = 600
	DefaultSecretHeader   = "X-Cnrewrite-Secret"
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
	DefaultLogMaxSizeMB   = 50
	DefaultReportSchedule = "0 */5 * * * *"
	DefaultRule           = "$U"
)

// scheduleParser accepts the same expressions as cron.New(cron.WithSeconds()).
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// LoadGlobal loads the global configuration from a YAML file
func LoadGlobal(path string) (*Global, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data and applies defaults.
func Parse(data []byte) (*Global, error) {
	var cfg Global
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyGlobalDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration written by `cnrewrite init`.
func Default() *Global {
	cfg := &Global{
		Rewrite: RewriteConfig{ClientNameRewriteRule: RuleString(DefaultRule)},
		MCP:     MCPConfig{Enabled: true},
		Stats:   StatsConfig{ReportSchedule: DefaultReportSchedule},
	}
	applyGlobalDefaults(cfg)
	return cfg
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *Global) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks settings that defaults cannot repair. The client name rule
// itself is not checked here: an unusable rule only disables rewriting.
func Validate(cfg *Global) error {
	var errs []error

	if cfg.Server.ListenPort < 1 || cfg.Server.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("server.listen_port %d out of range", cfg.Server.ListenPort))
	}
	if cfg.Server.RequireSecret && cfg.Server.SecretEnvVar == "" {
		errs = append(errs, fmt.Errorf("server.require_secret needs server.secret_env_var"))
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or text", cfg.Logging.Format))
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", cfg.Logging.Level))
	}
	if cfg.Logging.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("logging.max_size_mb must not be negative"))
	}
	if cfg.Stats.ReportSchedule != "" {
		if _, err := scheduleParser.Parse(cfg.Stats.ReportSchedule); err != nil {
			errs = append(errs, fmt.Errorf("stats.report_schedule: %w", err))
		}
	}

	return errors.Join(errs...)
}

func applyGlobalDefaults(cfg *Global) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ListenPort == 0 {
		cfg.Server.ListenPort = DefaultListenPort
	}
	if cfg.Server.RateLimitPerMinute <= 0 {
		cfg.Server.RateLimitPerMinute = DefaultRateLimit
	}
	if cfg.Server.SecretHeader == "" {
		cfg.Server.SecretHeader = DefaultSecretHeader
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	// Zero cannot be told apart from absent, so it never disables rotation
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
}
