package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/redis/go-redis/v9"
	"github.com/tbxark/convoform/agent"
	"github.com/tbxark/convoform/config"
	"github.com/tbxark/convoform/prompt"
	"github.com/tbxark/convoform/server"
)

func main() {
	confPath := flag.String("config", "", "path to config file")
	formPath := flag.String("form", "form.json", "path to form definition")
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.SlogLevel())

	if err := run(cfg, *formPath); err != nil {
		slog.Error("convoform stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, formPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(formPath)
	if err != nil {
		return fmt.Errorf("read form: %w", err)
	}
	form, err := agent.DecodeForm(raw)
	if err != nil {
		return err
	}

	if cfg.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("create chat model: %w", err)
	}
	slog.Info("chat model ready", "model", cfg.Model)

	store, closeStore, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	flow := agent.NewChatModelFormFlow(form, cm, store,
		agent.WithLogger(slog.Default()),
		agent.WithPromptBuilder(prompt.NewBuilder(prompt.WithLang(cfg.Lang))),
		agent.WithValidationPolicy(cfg.SkipSet()),
		agent.WithEndMessage(cfg.EndMessage),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewServer(flow, slog.Default()).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newStateStore(ctx context.Context, cfg *config.Config) (*agent.StateStore, func(), error) {
	ttl, err := cfg.TTL()
	if err != nil {
		return nil, nil, err
	}
	if cfg.RedisURL == "" {
		slog.Warn("redis not configured, conversations are kept in memory", "ttl", ttl)
		return agent.NewMemoryStateStore(agent.WithTTL(ttl)), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	slog.Info("redis connected", "addr", opts.Addr)
	return agent.NewStateStore(agent.NewRedisCache[*agent.State](rdb, ttl)), func() { _ = rdb.Close() }, nil
}

func setupLogging(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
