// Package config provides layered configuration for the anfrage client.
//
// Configuration is resolved from four sources, later ones overriding
// earlier ones:
//
//  1. Built-in defaults (Defaults)
//  2. A YAML config file (explicit path, ANFRAGE_CONFIG, or a discovered
//     anfrage.yaml)
//  3. ANFRAGE_* environment variables
//  4. *_file secret references resolved from disk
//
// The result is validated before use, so a *Config returned by Load is
// always internally consistent.
package config

import (
	"time"

	"github.com/anfrage-dev/anfrage/pkg/recovery"
)

// Config is the root configuration for the anfrage client.
type Config struct {
	Client        ClientConfig        `yaml:"client"`
	Recovery      RecoveryConfig      `yaml:"recovery"`
	Store         StoreConfig         `yaml:"store"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Debug         DebugConfig         `yaml:"debug"`
}

// ClientConfig holds connection settings for the Responses API.
type ClientConfig struct {
	// BaseURL is the API root, default "https://api.openai.com/v1".
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates requests. Prefer APIKeyFile or the
	// ANFRAGE_API_KEY / OPENAI_API_KEY env vars over putting the key
	// in a config file.
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`
	// DefaultModel is used when a request does not name a model.
	DefaultModel string `yaml:"default_model"`
	// Timeout bounds a single HTTP request, including streaming reads.
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent"`
}

// RecoveryConfig mirrors recovery.Policy in YAML form. See Policy for
// the conversion.
type RecoveryConfig struct {
	MaxRetries    int    `yaml:"max_retries"`
	AutoRetry     bool   `yaml:"auto_retry"`
	AutoPrune     bool   `yaml:"auto_prune"`
	NotifyOnReset bool   `yaml:"notify_on_reset"`
	ResetMessage  string `yaml:"reset_message"`
	LogAttempts   bool   `yaml:"log_attempts"`
	// Scope is one of "all", "container", or "transient".
	Scope string `yaml:"scope"`
}

// StoreConfig selects the local response store backend.
type StoreConfig struct {
	// Type is "memory" or "postgres".
	Type string `yaml:"type"`
	// MaxSize caps the number of responses kept by the memory store.
	MaxSize  int            `yaml:"max_size"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds postgres store settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// MCPConfig lists MCP servers whose tools are exposed to requests.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes one MCP server connection.
type MCPServerConfig struct {
	Name string `yaml:"name" json:"name"`
	// Transport is "sse" or "streamable-http". Empty means
	// streamable-http.
	Transport string            `yaml:"transport" json:"transport"`
	URL       string            `yaml:"url" json:"url"`
	Headers   map[string]string `yaml:"headers" json:"headers,omitempty"`
	Auth      MCPAuthConfig     `yaml:"auth" json:"auth,omitempty"`
}

// MCPAuthConfig configures how the client authenticates to an MCP
// server. Type "oauth" uses the OAuth2 client-credentials grant,
// "jwt-bearer" the urn:ietf:params:oauth:grant-type:jwt-bearer grant
// with a locally signed assertion. "none" or empty disables auth.
type MCPAuthConfig struct {
	Type             string   `yaml:"type" json:"type"`
	TokenURL         string   `yaml:"token_url" json:"token_url,omitempty"`
	ClientID         string   `yaml:"client_id" json:"client_id,omitempty"`
	ClientIDFile     string   `yaml:"client_id_file" json:"client_id_file,omitempty"`
	ClientSecret     string   `yaml:"client_secret" json:"client_secret,omitempty"`
	ClientSecretFile string   `yaml:"client_secret_file" json:"client_secret_file,omitempty"`
	Scopes           []string `yaml:"scopes" json:"scopes,omitempty"`

	// jwt-bearer fields. PrivateKey is a PEM-encoded RSA key used to
	// sign the assertion.
	Issuer         string `yaml:"issuer" json:"issuer,omitempty"`
	Subject        string `yaml:"subject" json:"subject,omitempty"`
	Audience       string `yaml:"audience" json:"audience,omitempty"`
	PrivateKey     string `yaml:"private_key" json:"private_key,omitempty"`
	PrivateKeyFile string `yaml:"private_key_file" json:"private_key_file,omitempty"`
	KeyID          string `yaml:"key_id" json:"key_id,omitempty"`
}

// ObservabilityConfig toggles client instrumentation.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig controls the Prometheus request instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DebugConfig seeds the debug package when the client is built from
// config rather than from env vars alone.
type DebugConfig struct {
	// Categories is a comma-separated list, see pkg/debug.
	Categories string `yaml:"categories"`
	LogLevel   string `yaml:"log_level"`
}

// Defaults returns the built-in configuration. Load starts from this
// and layers file, env, and secret sources on top.
func Defaults() Config {
	return Config{
		Client: ClientConfig{
			BaseURL: "https://api.openai.com/v1",
			Timeout: 120 * time.Second,
		},
		Recovery: RecoveryConfig{
			MaxRetries:  1,
			AutoRetry:   true,
			AutoPrune:   true,
			LogAttempts: true,
			Scope:       string(recovery.ScopeAllRecoverable),
		},
		Store: StoreConfig{
			Type:    "memory",
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true},
		},
		Debug: DebugConfig{
			LogLevel: "info",
		},
	}
}

// Policy converts the recovery section into the policy consumed by
// recovery.New. An unknown or empty scope falls back to
// ScopeAllRecoverable; configs that went through Load rejected unknown
// scopes during validation.
func (r RecoveryConfig) Policy() recovery.Policy {
	p := recovery.Policy{
		AutoRetryOnExpiredContainer: r.AutoRetry,
		NotifyOnReset:               r.NotifyOnReset,
		MaxRetries:                  r.MaxRetries,
		AutoPruneExpiredContainers:  r.AutoPrune,
		ResetMessage:                r.ResetMessage,
		LogRecoveryAttempts:         r.LogAttempts,
		RetryScope:                  recovery.ScopeAllRecoverable,
	}
	if s, ok := recovery.ParseScope(r.Scope); ok {
		p.RetryScope = s
	}
	return p
}
