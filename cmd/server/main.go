package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/ride-dispatch/internal/accounts"
	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/fares"
	httpapi "github.com/example/ride-dispatch/internal/http"
	"github.com/example/ride-dispatch/internal/ingest"
	"github.com/example/ride-dispatch/internal/lifecycle"
	"github.com/example/ride-dispatch/internal/logging"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/payments"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/settlement"
	"github.com/example/ride-dispatch/internal/storage"
	"github.com/example/ride-dispatch/internal/ws"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger("ride-dispatch", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// location registry: redis when configured, in-process otherwise
	var reg registry.Registry
	if cfg.RedisAddr != "" {
		reg = registry.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		reg = registry.NewMemory()
	}
	m := &matcher.Service{Registry: reg, DefaultRadius: cfg.SearchRadiusMeters}

	// durable stores: postgres when a DSN is set, memory otherwise
	var (
		rides storage.RideStore
		acc   accounts.Store
		table fares.Table
		db    *sql.DB
	)
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		db = ps.DB()
		if cfg.RunMigrations {
			if err := applyMigrations(db); err != nil {
				logger.Error("migrations failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		rides = ps
		acc = accounts.NewPostgres(db)
		table = fares.NewPostgres(db)
	} else {
		rides = storage.NewMemoryStore()
		acc = accounts.NewMemory()
		table = fares.NewStatic(defaultFares())
	}

	hub := ws.NewHub(reg, m, cfg.SearchRadiusMeters, logger)
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		hub.Sink = kp
	}

	// notification fan-out: realtime channel first, push as fallback
	notifiers := notify.Fanout{hub}
	if cfg.PushEndpoint != "" {
		notifiers = append(notifiers, notify.NewPush(cfg.PushEndpoint, cfg.PushKey))
	}

	var gw payments.Gateway = payments.Noop{}
	if cfg.StripeAPIKey != "" {
		gw = payments.NewStripeGateway(cfg.StripeAPIKey)
	}

	settler := &settlement.Aggregator{Accounts: acc, Logger: logger}
	offers := lifecycle.NewOfferManager(cfg.OfferWindow, notifiers, logger)
	ctl := lifecycle.NewController(rides, table, settler, offers, gw, notifiers, logger)

	var ready func() error
	if db != nil {
		ready = db.Ping
	}
	srv := httpapi.NewServer(hub, m, ctl, acc, logger, ready)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		logger.Info("ride-dispatch listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
}

func applyMigrations(db *sql.DB) error {
	b, err := os.ReadFile(filepath.Join("migrations", "001_schema.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

// defaultFares seeds the memory fare table for local runs.
func defaultFares() map[[2]int]int64 {
	return map[[2]int]int64{
		{1, 2}: 25, {2, 1}: 25,
		{3, 6}: 10, {6, 3}: 10,
		{1, 6}: 40, {6, 1}: 40,
	}
}
