package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anfrage-dev/anfrage/pkg/recovery"
)

// EnvConfig names the env var holding an explicit config file path.
const EnvConfig = "ANFRAGE_CONFIG"

// Load builds a Config from defaults, an optional YAML file, ANFRAGE_*
// environment variables, and *_file secret references, then validates
// it. An empty configPath triggers file discovery; a missing discovered
// file is not an error, a missing explicit one is.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	path := discoverConfigFile(configPath)
	if path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile resolves the config file path. Order: explicit
// path, ANFRAGE_CONFIG, ./anfrage.yaml, then the per-user config dir.
// Explicit paths are returned as-is so a typo surfaces as a read error
// instead of silently falling back to defaults.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath
	}

	candidates := []string{"anfrage.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "anfrage", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANFRAGE_BASE_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("ANFRAGE_API_KEY"); v != "" {
		cfg.Client.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Client.APIKey == "" {
		cfg.Client.APIKey = v
	}
	if v := os.Getenv("ANFRAGE_MODEL"); v != "" {
		cfg.Client.DefaultModel = v
	}
	if v := os.Getenv("ANFRAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.Timeout = d
		}
	}
	if v := os.Getenv("ANFRAGE_STORE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("ANFRAGE_STORE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Store.MaxSize = size
		}
	}

	// Recovery overrides share env var names with
	// recovery.PolicyFromEnvironment so both entry points agree.
	if v := os.Getenv(recovery.EnvMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Recovery.MaxRetries = n
		}
	}
	if v := os.Getenv(recovery.EnvAutoRetry); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Recovery.AutoRetry = b
		}
	}
	if v := os.Getenv(recovery.EnvAutoPrune); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Recovery.AutoPrune = b
		}
	}
	if v := os.Getenv(recovery.EnvLogRecovery); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Recovery.LogAttempts = b
		}
	}
	if v := os.Getenv(recovery.EnvRetryScope); v != "" {
		if s, ok := recovery.ParseScope(v); ok {
			cfg.Recovery.Scope = string(s)
		}
	}

	if v := os.Getenv("ANFRAGE_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("ANFRAGE_DEBUG"); v != "" {
		cfg.Debug.Categories = v
	}
	if v := os.Getenv("ANFRAGE_LOG_LEVEL"); v != "" {
		cfg.Debug.LogLevel = v
	}

	// ANFRAGE_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("ANFRAGE_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err == nil && len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]MCPServerConfig, error) {
	var servers []MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}

// resolveFileReferences reads _file fields and populates the
// corresponding value fields. The value field wins when both are set.
func resolveFileReferences(cfg *Config) error {
	if cfg.Client.APIKey == "" && cfg.Client.APIKeyFile != "" {
		v, err := readSecretFile(cfg.Client.APIKeyFile)
		if err != nil {
			return fmt.Errorf("reading client.api_key_file: %w", err)
		}
		cfg.Client.APIKey = v
	}

	if cfg.Store.Postgres.DSN == "" && cfg.Store.Postgres.DSNFile != "" {
		v, err := readSecretFile(cfg.Store.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("reading store.postgres.dsn_file: %w", err)
		}
		cfg.Store.Postgres.DSN = v
	}

	for i := range cfg.MCP.Servers {
		auth := &cfg.MCP.Servers[i].Auth
		name := cfg.MCP.Servers[i].Name
		if auth.ClientID == "" && auth.ClientIDFile != "" {
			v, err := readSecretFile(auth.ClientIDFile)
			if err != nil {
				return fmt.Errorf("reading mcp server %q client_id_file: %w", name, err)
			}
			auth.ClientID = v
		}
		if auth.ClientSecret == "" && auth.ClientSecretFile != "" {
			v, err := readSecretFile(auth.ClientSecretFile)
			if err != nil {
				return fmt.Errorf("reading mcp server %q client_secret_file: %w", name, err)
			}
			auth.ClientSecret = v
		}
		if auth.PrivateKey == "" && auth.PrivateKeyFile != "" {
			v, err := readSecretFile(auth.PrivateKeyFile)
			if err != nil {
				return fmt.Errorf("reading mcp server %q private_key_file: %w", name, err)
			}
			auth.PrivateKey = v
		}
	}

	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
