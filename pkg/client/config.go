package client

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/config"
	"github.com/anfrage-dev/anfrage/pkg/debug"
	"github.com/anfrage-dev/anfrage/pkg/store"
	"github.com/anfrage-dev/anfrage/pkg/store/memory"
	"github.com/anfrage-dev/anfrage/pkg/store/postgres"
	"github.com/anfrage-dev/anfrage/pkg/tools/mcp"
)

// NewFromConfig builds a fully wired client from a resolved
// configuration: connection settings, recovery policy, conversation
// store, metrics, and debug logging. Options are applied after the
// configuration, so they win on conflict. The context bounds store
// initialization.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	debug.Init(cfg.Debug.Categories, cfg.Debug.LogLevel)

	key := cfg.Client.APIKey
	if key == "" {
		key = os.Getenv("ANFRAGE_API_KEY")
	}
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, classify.NewInvalidAPIKey("no API key in configuration or environment")
	}

	st, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	base := []Option{
		WithRecovery(cfg.Recovery.Policy()),
		WithStore(st),
	}
	if cfg.Client.BaseURL != "" {
		base = append(base, WithBaseURL(cfg.Client.BaseURL))
	}
	if cfg.Client.Timeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}))
	}
	if cfg.Client.UserAgent != "" {
		base = append(base, WithUserAgent(cfg.Client.UserAgent))
	}
	if cfg.Client.DefaultModel != "" {
		base = append(base, WithDefaultModel(api.Model(cfg.Client.DefaultModel)))
	}
	if !cfg.Observability.Metrics.Enabled {
		base = append(base, WithoutMetrics())
	}

	return New(key, append(base, opts...)...)
}

// newStore builds the conversation store backend named by the
// configuration.
func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// NewMCPExecutor dials every MCP server in the configuration and returns
// an executor ready to attach to a tools.Registry. Callers own the
// executor and must Close it.
func NewMCPExecutor(ctx context.Context, cfg config.MCPConfig) (*mcp.Executor, error) {
	servers := make([]mcp.ServerConfig, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, mcpServerConfig(s))
	}
	return mcp.Connect(ctx, servers)
}

// mcpServerConfig maps the YAML-facing server block onto the MCP
// package's config. Secret file references were already resolved by the
// loader.
func mcpServerConfig(s config.MCPServerConfig) mcp.ServerConfig {
	return mcp.ServerConfig{
		Name:      s.Name,
		Transport: s.Transport,
		URL:       s.URL,
		Headers:   s.Headers,
		Auth: mcp.AuthConfig{
			Type:         s.Auth.Type,
			TokenURL:     s.Auth.TokenURL,
			Scopes:       s.Auth.Scopes,
			ClientID:     s.Auth.ClientID,
			ClientSecret: s.Auth.ClientSecret,
			Issuer:       s.Auth.Issuer,
			Subject:      s.Auth.Subject,
			Audience:     s.Auth.Audience,
			PrivateKey:   s.Auth.PrivateKey,
			KeyID:        s.Auth.KeyID,
		},
	}
}
