package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/finclaw/internal/agent"
	"github.com/user/finclaw/internal/api"
	"github.com/user/finclaw/internal/delivery"
	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/internal/ingest"
	"github.com/user/finclaw/internal/scheduler"
	"github.com/user/finclaw/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the finclaw daemon",
	RunE:  runServe,
}

func writePIDFile() (string, error) {
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	pidPath := filepath.Join(dir, "finclaw.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.HTTP.JWTSecret == "" {
		return fmt.Errorf("http.jwt_secret is required (or set JWT_SECRET)")
	}

	pidPath, err := writePIDFile()
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	// Gateway
	gw := gateway.New(int64(cfg.MaxConcurrent))
	gw.Queue.SetProcessor(func(turn *gateway.Turn) error {
		reply, err := d.agent.Chat(turn.Ctx, agent.ChatRequest{
			Owner:  turn.Owner,
			Thread: turn.Thread,
			Text:   turn.Text,
		})
		if err != nil {
			return err
		}
		if turn.OnComplete != nil {
			turn.OnComplete(reply)
		}
		return nil
	})
	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("finclaw started",
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"max_tool_rounds", cfg.MaxToolRounds,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"advisors", len(cfg.Advisors),
		"pid_file", pidPath,
	)

	// Proactive delivery
	deliveryReg := delivery.NewRegistry()
	dispatcher := delivery.NewDispatcher(gw, d.store, deliveryReg)

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, gw, d.store, cfg.Telegram.Owners)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		deliveryReg.Register("telegram", adapter.Notify)
		slog.Info("telegram adapter started")
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Provider sync and embedding backfill
	syncer := ingest.NewSyncer(d.store, d.sourcesFor, dispatcher.NewEmail)

	owners, err := d.owners()
	if err != nil {
		return err
	}

	sched := scheduler.New()
	sched.AddSyncJobs(owners, cfg.Sync.Schedule, cfg.Sync.BackfillSchedule,
		syncer.SyncOwner,
		func(ctx context.Context) error {
			n, err := d.backfiller.Run(ctx)
			if n > 0 {
				slog.Info("backfill pass complete", "embedded", n)
			}
			return err
		},
	)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started", "sync", cfg.Sync.Schedule, "backfill", cfg.Sync.BackfillSchedule)

	// HTTP API
	router := api.NewRouter(api.NewHandler(gw, d.store), cfg.HTTP.JWTSecret)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}
	go func() {
		slog.Info("http server started", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
