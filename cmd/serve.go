package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/techmentor/gateway/internal/config"
	"github.com/techmentor/gateway/internal/db"
	"github.com/techmentor/gateway/internal/extract"
	"github.com/techmentor/gateway/internal/gate"
	"github.com/techmentor/gateway/internal/health"
	"github.com/techmentor/gateway/internal/llm"
	"github.com/techmentor/gateway/internal/review"
	"github.com/techmentor/gateway/internal/server"
	"github.com/techmentor/gateway/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TechMentor gateway",
	Long:  `Starts the HTTP gateway: chat, streaming chat, document review and liveness endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// .env is a development convenience; a missing file is fine.
		_ = godotenv.Load()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		var sessions session.Store
		switch cfg.SessionBackend {
		case "sqlite":
			database, err := db.Open(filepath.Join(cfg.DataDir, "mentorgate.db"))
			if err != nil {
				return fmt.Errorf("opening session database: %w", err)
			}
			defer database.Close()
			sessions = session.NewSQLiteStore(database, cfg.SessionTTL)
		default:
			log.Printf("serve: using in-memory session store (no TTL, no eviction) — degraded mode")
			sessions = session.NewMemoryStore()
		}

		client := llm.NewClient(cfg.APIKey, cfg.Model, cfg.Temperature,
			llm.WithBaseURL(cfg.BaseURL),
			llm.WithTimeout(cfg.RequestTimeout),
		)

		g := gate.New(cfg.MaxConcurrency, cfg.QueueMax)

		monitor := health.New(client, cfg.HealthInterval, cfg.ProbeTimeout, cfg.HealthFailThreshold)
		monitor.Start(cmd.Context())

		reviewer := review.NewService(client, sessions, extract.NewHTTPExtractor(cfg.ExtractorURL), review.Config{
			MaxUploadBytes: cfg.MaxUploadMB << 20,
			ChunkChars:     cfg.ChunkChars,
			MaxChunks:      cfg.MaxChunks,
		})

		srv := server.New(cfg, g, sessions, client, reviewer, monitor)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-monitor.Fatal():
			// Sustained upstream failure: fail fast and let the supervisor
			// restart the whole process.
			log.Printf("serve: upstream unhealthy past threshold, exiting for supervisor restart")
			shutdown(srv)
			os.Exit(1)
			return nil
		case sig := <-sigCh:
			log.Printf("serve: received %s, shutting down", sig)
			shutdown(srv)
			monitor.Stop()
			return nil
		}
	},
}

func shutdown(srv *server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("serve: shutdown: %v", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
