package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/finclaw/internal/agent"
	"github.com/user/finclaw/internal/config"
	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/internal/ingest"
	"github.com/user/finclaw/internal/integrations"
	"github.com/user/finclaw/internal/retriever"
	"github.com/user/finclaw/internal/store/postgres"
	"github.com/user/finclaw/internal/tools"
	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/llm"
	"github.com/user/finclaw/pkg/llm/openai"
)

// deps bundles the wiring shared by the serve and chat commands: storage,
// the LLM provider, retrieval, and the per-owner integration factories.
type deps struct {
	cfg        *config.Config
	pool       *pgxpool.Pool
	store      *postgres.Store
	provider   *openai.Client
	retriever  *retriever.PGVector
	backfiller *retriever.Backfiller
	agent      *agent.Agent

	googleApp  integrations.OAuthApp
	hubspotApp integrations.OAuthApp
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}

	pool, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	st := postgres.New(pool)
	if err := st.Migrate(ctx, cfg.LLM.EmbeddingDims); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	provider := openai.New(&llm.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		EmbeddingDims:  cfg.LLM.EmbeddingDims,
		MaxTokens:      cfg.LLM.MaxTokens,
		Temperature:    cfg.LLM.Temperature,
	})

	d := &deps{
		cfg:        cfg,
		pool:       pool,
		store:      st,
		provider:   provider,
		retriever:  retriever.New(pool, provider),
		backfiller: retriever.NewBackfiller(pool, provider, gateway.DefaultRetryPolicy(), 0),
		googleApp: integrations.OAuthApp{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			TokenURL:     integrations.GoogleTokenURL,
		},
		hubspotApp: integrations.OAuthApp{
			ClientID:     cfg.Hubspot.ClientID,
			ClientSecret: cfg.Hubspot.ClientSecret,
			TokenURL:     integrations.HubspotTokenURL,
		},
	}

	window, err := agent.NewWindow(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create context window: %w", err)
	}
	d.agent = agent.New(provider, st, window, d.registryFor, d.advisorFor, nil, cfg.LLM.Model, cfg.MaxToolRounds)

	return d, nil
}

func (d *deps) close() {
	d.pool.Close()
}

func (d *deps) connected(owner types.OwnerID, provider string) bool {
	ok, err := d.store.Connected(context.Background(), owner, provider)
	if err != nil {
		slog.Warn("check connection", "owner", string(owner), "provider", provider, "error", err)
		return false
	}
	return ok
}

func (d *deps) advisorEmail(owner types.OwnerID) string {
	if a := d.cfg.Advisor(string(owner)); a != nil {
		return a.Email
	}
	return ""
}

// capabilitiesFor binds one owner's connected integrations. A missing token
// leaves the field nil so the tool reports the missing connection instead
// of failing.
func (d *deps) capabilitiesFor(owner types.OwnerID) tools.Capabilities {
	caps := tools.Capabilities{Owner: owner, Retriever: d.retriever}
	if d.connected(owner, types.ProviderGoogle) {
		tokens := integrations.NewTokenSource(d.store, owner, types.ProviderGoogle, d.googleApp)
		caps.Mail = integrations.NewGmail(tokens, d.advisorEmail(owner))
		caps.Calendar = integrations.NewCalendar(tokens)
	}
	if d.connected(owner, types.ProviderHubspot) {
		tokens := integrations.NewTokenSource(d.store, owner, types.ProviderHubspot, d.hubspotApp)
		caps.CRM = integrations.NewHubspot(tokens)
	}
	return caps
}

func (d *deps) registryFor(owner types.OwnerID) *tools.Registry {
	return tools.NewRegistry(d.capabilitiesFor(owner))
}

func (d *deps) advisorFor(owner types.OwnerID) string {
	if a := d.cfg.Advisor(string(owner)); a != nil {
		return a.Name
	}
	return "the advisor"
}

// sourcesFor builds the sync sources for one owner, mirroring the tool
// capabilities.
func (d *deps) sourcesFor(owner types.OwnerID) ingest.Sources {
	var src ingest.Sources
	if d.connected(owner, types.ProviderGoogle) {
		tokens := integrations.NewTokenSource(d.store, owner, types.ProviderGoogle, d.googleApp)
		src.Mail = integrations.NewGmail(tokens, d.advisorEmail(owner))
		src.Calendar = integrations.NewCalendar(tokens)
	}
	if d.connected(owner, types.ProviderHubspot) {
		tokens := integrations.NewTokenSource(d.store, owner, types.ProviderHubspot, d.hubspotApp)
		src.Contacts = integrations.NewHubspot(tokens)
	}
	return src
}

// owners returns the configured advisor owner IDs.
func (d *deps) owners() ([]types.OwnerID, error) {
	out := make([]types.OwnerID, 0, len(d.cfg.Advisors))
	for _, a := range d.cfg.Advisors {
		owner, err := types.ParseOwnerID(a.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid advisor id %q: %w", a.ID, err)
		}
		out = append(out, owner)
	}
	return out, nil
}
