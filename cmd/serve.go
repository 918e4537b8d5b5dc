package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go-realtime-template/internal/application/facade"
	"go-realtime-template/internal/infrastructure/auth"
	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/infrastructure/persistence"
	"go-realtime-template/internal/infrastructure/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and realtime hub",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := WithSignal(cmd.Context())

	db, err := persistence.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Migrate(ctx); err != nil {
		return err
	}

	userRepo, err := persistence.NewCachedUserRepository(persistence.NewUserRepository(db))
	if err != nil {
		return fmt.Errorf("create user cache: %w", err)
	}
	defer userRepo.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecretKey, cfg.JWTAlgorithm, cfg.AccessTokenTTL())
	if err != nil {
		return err
	}

	users := facade.NewUserApplicationService(userRepo, auth.NewPasswordHasher(cfg.PasswordHashCost), tokens, log)
	predictor := facade.NewPredictionApplicationService()

	hubInstance := hub.New(log, hub.WithQueueCapacity(cfg.SSEQueueSize))
	if err := hubInstance.Configure(cfg.RealtimeRedisURL, cfg.RealtimeRedisChannel); err != nil {
		return err
	}

	// The hub must be running before the router accepts stream requests.
	if err := hubInstance.Start(ctx); err != nil {
		if !errors.Is(err, hub.ErrBackplaneUnavailable) {
			return fmt.Errorf("start hub: %w", err)
		}
		log.Warnf("Continuing without backplane: %v", err)
	}
	log.Infof("Hub started, running status: %v, backplane: %s", hubInstance.IsRunning(), hubInstance.BackplaneState())

	router := InitRouter(RouterDeps{
		Hub:          hubInstance,
		Users:        users,
		Predictor:    predictor,
		DB:           db,
		SSEKeepAlive: cfg.SSEKeepalive(),
		Logger:       log,
	})
	httpSrv := server.NewHTTPServer(cfg.HTTPAddr, router, log)

	app := newApplication(log, httpSrv, hubInstance, cfg.ShutdownTimeout())
	return app.Run(ctx)
}

type Application struct {
	logger          logger.Logger
	httpSrv         server.Server
	hub             *hub.Hub
	shutdownTimeout time.Duration
}

func newApplication(
	logger logger.Logger,
	httpSrv server.Server,
	hubInstance *hub.Hub,
	shutdownTimeout time.Duration,
) *Application {
	return &Application{
		logger:          logger.WithField("app", "realtime"),
		httpSrv:         httpSrv,
		hub:             hubInstance,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then stops the hub before the HTTP
// server so streaming handlers return and shutdown can drain.
func (app *Application) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return app.httpSrv.Start(egCtx)
	})

	eg.Go(func() error {
		<-egCtx.Done()
		app.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
		defer cancel()

		if err := app.hub.Stop(shutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(shutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)

		select {
		case <-sigc:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}
