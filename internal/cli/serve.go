package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/internal/artifacts"
	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/driver"
	httpapi "github.com/tbourn/portal-rpa/internal/http"
	"github.com/tbourn/portal-rpa/internal/observability"
	"github.com/tbourn/portal-rpa/internal/repo"
	"github.com/tbourn/portal-rpa/internal/services"
)

const (
	shutdownGrace = 30 * time.Second
	purgeEvery    = time.Hour
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API with the configured database, counter backend,
object store and browser driver. SIGINT/SIGTERM trigger a graceful shutdown;
in-flight submissions get ` + shutdownGrace.String() + ` to finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg := opts.Config

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, opts.Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	counter, closeCounter, err := openCounter(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeCounter()

	metrics, err := observability.NewMetrics(nil)
	if err != nil {
		return err
	}

	alloc := services.NewIdentifierAllocator(counter)
	alloc.Observe = metrics.Allocation

	settings, err := config.OpenSettings(cfg.SettingsFile)
	if err != nil {
		return err
	}

	store, err := openObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	pipeline := artifacts.NewPipeline(store, cfg.RPA.ArtifactDir)
	pipeline.Observe = metrics.ObservePublish

	orch := services.NewOrchestrator(driver.NewRodDriver(settings, cfg.RPA), pipeline)
	orch.MaxAttempts = cfg.RPA.MaxAttempts
	orch.BaseDelay = cfg.RPA.BaseDelay
	orch.DiagnosticsDir = filepath.Join(cfg.RPA.ArtifactDir, "diagnostics")
	orch.OnTransition = services.TransitionRecorder(metrics)
	if n := cfg.RPA.MaxConcurrentSessions; n > 0 {
		orch.Sessions = semaphore.NewWeighted(int64(n))
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	if err := httpapi.RegisterRoutes(r, cfg, httpapi.Deps{
		DB:       db,
		Alloc:    alloc,
		Subs:     &services.SubmissionService{DB: db, Runner: orch, ReplayTTL: cfg.RPA.ReplayTTL},
		Records:  &services.RecordsService{Store: counter},
		Settings: settings,
	}); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeResults(ctx, db)

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("db", cfg.DBDriver).
			Str("counter", cfg.CounterBackend).
			Str("storage", cfg.Storage.Backend).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return <-errc
}

// purgeResults deletes expired submission results until ctx is done.
func purgeResults(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredResults(ctx, db, now)
			if err != nil {
				log.Warn().Err(err).Msg("purge submission results")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged submission results")
			}
		}
	}
}
