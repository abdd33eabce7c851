package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/backlogbot/internal/backlog"
	"github.com/backlogbot/internal/command"
	"github.com/backlogbot/internal/config"
	"github.com/backlogbot/internal/contextfetch"
	"github.com/backlogbot/internal/idempotency"
	"github.com/backlogbot/internal/llm"
	"github.com/backlogbot/internal/webhook"
)

func main() {
	if err := run(context.Background(), http.ListenAndServe); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, serve func(string, http.Handler) error) error {
	// A missing .env file is not an error; env vars may come from anywhere.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("BACKLOGBOT_CONFIG"), "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	setupLogging(cfg.Server.LogLevel)

	log.Info().
		Int("port", cfg.Server.Port).
		Str("backlog", cfg.BacklogBaseURL()).
		Str("llm_provider", cfg.LLM.Provider).
		Str("llm_model", cfg.LLM.Model).
		Bool("trial_mode", cfg.Trial.Enabled).
		Msg("starting backlogbot")

	tracker, err := backlog.New(cfg.BacklogBaseURL(), cfg.Backlog.APIKey)
	if err != nil {
		return fmt.Errorf("init backlog client: %w", err)
	}

	trackerBase, err := url.Parse(cfg.BacklogBaseURL())
	if err != nil {
		return fmt.Errorf("parse backlog base url: %w", err)
	}

	collector := contextfetch.NewCollector(
		tracker,
		trackerBase,
		cfg.Context.PerResourceBytes,
		cfg.Context.TotalBytes,
		cfg.Bot.RecentCommentCount,
	)

	model, err := llm.New(llm.Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLMTimeout(),
		MaxRetries: cfg.LLM.MaxRetries,
		MaxTokens:  cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init idempotency store: %w", err)
	}
	if closer, ok := store.(*idempotency.PostgresStore); ok {
		defer closer.Close()
	}

	handler := webhook.NewHandler(webhook.HandlerConfig{
		SharedSecret: cfg.Webhook.SharedSecret,
		Trigger: command.Trigger{
			BotUserID:      cfg.Bot.UserID,
			TrialEnabled:   cfg.Trial.Enabled,
			TrialAllowlist: cfg.Trial.AllowedUserIDs,
		},
		RecentCommentCount: cfg.Bot.RecentCommentCount,
	}, tracker, collector, model, store)

	router := mux.NewRouter()
	router.HandleFunc("/webhook", handler.Handle).Methods(http.MethodPost)
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/", rootHandler).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("listening")
	return serve(addr, router)
}

// newStore picks the idempotency backend: nil when suppression is disabled,
// Postgres when a DSN is configured, an in-process TTL map otherwise.
func newStore(ctx context.Context, cfg *config.Config) (idempotency.Store, error) {
	if !cfg.Idempotency.Enabled {
		log.Warn().Msg("duplicate suppression disabled, every delivery will be processed")
		return nil, nil
	}
	if dsn := cfg.Idempotency.PostgresDSN; dsn != "" {
		return idempotency.NewPostgresStore(ctx, dsn)
	}
	return idempotency.NewMemoryStore(24 * time.Hour), nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("BACKLOGBOT_PRETTY_LOG") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func rootHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "backlogbot: POST Backlog webhooks to /webhook")
}
