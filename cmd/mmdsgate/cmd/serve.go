package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/mmdsgate/internal/core/api"
	"github.com/solatis/mmdsgate/internal/core/auth"
	"github.com/solatis/mmdsgate/internal/core/config"
	"github.com/solatis/mmdsgate/internal/core/db"
	"github.com/solatis/mmdsgate/internal/core/metrics"
	"github.com/solatis/mmdsgate/internal/core/queue"
	"github.com/solatis/mmdsgate/internal/core/server"
	"github.com/solatis/mmdsgate/internal/mmds"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC translator service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		database *sqlx.DB
		queries  *db.Queries
	)
	if dbURL != "" {
		database, err = db.Open(dbURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		if err := db.MigrateUp(database); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		queries, err = db.LoadQueries(database)
		if err != nil {
			return fmt.Errorf("failed to load queries: %w", err)
		}
	}

	var authenticator *auth.Authenticator
	if len(secrets) > 0 {
		if queries == nil {
			return fmt.Errorf("--db-url required when MMDS_HMAC_SECRET is set")
		}
		authenticator = auth.NewAuthenticator(secrets, queries)
	}

	var publisher api.Publisher
	if cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pub, err := queue.Dial(dialCtx, cfg.RedisURL, cfg.QueueName)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to action queue: %w", err)
		}
		defer pub.Close()
		publisher = pub
	}

	registry := metrics.NewRegistry(mmds.CounterNames()...)
	service, err := api.NewTranslatorService(registry, publisher, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting mmdsgate",
		"version", Version,
		"host", cfg.Host,
		"port", cfg.Port,
		"instance_id", cfg.InstanceID,
		"auth", authenticator != nil,
		"queue", publisher != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	})
	if queries != nil && cfg.FlushInterval > 0 {
		recorder, err := metrics.NewRecorder(registry, queries, cfg.InstanceID, cfg.FlushInterval, logger.With("component", "recorder"))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mmdsgate stopped with error", "error", err)
		return err
	}
	logger.Info("mmdsgate stopped")
	return nil
}
