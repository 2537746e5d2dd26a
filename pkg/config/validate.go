package config

import (
	"errors"
	"fmt"

	"github.com/anfrage-dev/anfrage/pkg/recovery"
)

// Validate checks the configuration for internal consistency. All
// problems are reported at once via errors.Join. It does not require an
// API key; some operations (local store reads, MCP-only tooling) work
// without one and the client reports a missing key when it matters.
func (c *Config) Validate() error {
	var errs []error

	if c.Client.BaseURL == "" {
		errs = append(errs, fmt.Errorf("client.base_url is required"))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be > 0"))
	}

	if c.Recovery.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("recovery.max_retries must be >= 0"))
	}
	if c.Recovery.Scope != "" {
		if _, ok := recovery.ParseScope(c.Recovery.Scope); !ok {
			errs = append(errs, fmt.Errorf("recovery.scope must be \"all\", \"container\", or \"transient\", got %q", c.Recovery.Scope))
		}
	}

	switch c.Store.Type {
	case "memory":
		if c.Store.MaxSize <= 0 {
			errs = append(errs, fmt.Errorf("store.max_size must be > 0 for the memory store"))
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" && c.Store.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("store.postgres.dsn or dsn_file is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.type must be \"memory\" or \"postgres\", got %q", c.Store.Type))
	}

	for i, srv := range c.MCP.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch srv.Transport {
		case "", "sse", "streamable-http":
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, srv.Transport))
		}
		errs = append(errs, validateMCPAuth(i, srv.Auth)...)
	}

	return errors.Join(errs...)
}

func validateMCPAuth(i int, auth MCPAuthConfig) []error {
	var errs []error
	switch auth.Type {
	case "", "none":
	case "oauth":
		if auth.TokenURL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.token_url is required for oauth", i))
		}
		if auth.ClientID == "" && auth.ClientIDFile == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.client_id or client_id_file is required for oauth", i))
		}
		if auth.ClientSecret == "" && auth.ClientSecretFile == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.client_secret or client_secret_file is required for oauth", i))
		}
	case "jwt-bearer":
		if auth.TokenURL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.token_url is required for jwt-bearer", i))
		}
		if auth.Issuer == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.issuer is required for jwt-bearer", i))
		}
		if auth.PrivateKey == "" && auth.PrivateKeyFile == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.private_key or private_key_file is required for jwt-bearer", i))
		}
	default:
		errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.type must be \"none\", \"oauth\", or \"jwt-bearer\", got %q", i, auth.Type))
	}
	return errs
}
