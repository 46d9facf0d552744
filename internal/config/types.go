// internal/config/types.go
package config

// Global configuration loaded from config.yaml
type Global struct {
	Rewrite RewriteConfig `yaml:"rewrite"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Stats   StatsConfig   `yaml:"stats"`
	MCP     MCPConfig     `yaml:"mcp"`
}

type RewriteConfig struct {
	// nil when the key is missing, so "not configured" and "configured
	// empty" stay distinguishable
	ClientNameRewriteRule *string `yaml:"client_name_rewrite_rule"`
}

type ServerConfig struct {
	ListenAddress      string `yaml:"listen_address"`
	ListenPort         int    `yaml:"listen_port"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	// When set, /v1 requests must carry the secret from SecretEnvVar in
	// SecretHeader.
	RequireSecret bool   `yaml:"require_secret"`
	SecretHeader  string `yaml:"secret_header"`
	SecretEnvVar  string `yaml:"secret_env_var"`
}

type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
	File   string `yaml:"file"` // empty logs to stdout
	// MaxSizeMB is the rotation threshold for File. Zero means
	// DefaultLogMaxSizeMB, so a file log is always rotated.
	MaxSizeMB int `yaml:"max_size_mb"`
}

type StatsConfig struct {
	ReportSchedule string `yaml:"report_schedule"` // cron with seconds; empty disables
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Rule returns the configured client name rewrite rule. The boolean is false
// when the setting is absent.
func (g *Global) Rule() (string, bool) {
	if g == nil || g.Rewrite.ClientNameRewriteRule == nil {
		return "", false
	}
	return *g.Rewrite.ClientNameRewriteRule, true
}

// RuleString returns a pointer to rule, for building configs in code.
func RuleString(rule string) *string {
	return &rule
}
