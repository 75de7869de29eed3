package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/carrier-rates/internal/api"
	"github.com/eugenenazirov/carrier-rates/internal/config"
	"github.com/eugenenazirov/carrier-rates/internal/quoting"
	"github.com/eugenenazirov/carrier-rates/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	quoter  quoting.Quoter
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize carrier storage: %w", err)
	}

	for _, carrier := range cfg.InitialCarriers {
		if err := store.UpsertCarrier(ctx, carrier); err != nil {
			return nil, fmt.Errorf("seed carrier %q: %w", carrier.Name, err)
		}
	}

	quoter := quoting.New(
		quoting.WithPolicy(cfg.Policy()),
		quoting.WithMaxParcelWeight(cfg.MaxParcelWeightGrams()),
		quoting.WithDefaultCurrency(cfg.DefaultCurrency),
		quoting.WithDeliveryWindow(cfg.DeliveryMinDays, cfg.DeliveryMaxDays),
	)
	handler := api.NewHandler(quoter, store)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	server := NewServer(cfg, router)

	return &App{
		storage: store,
		quoter:  quoter,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  server,
	}, nil
}

// newStorage selects the carrier store implementation for the configured driver.
func newStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == storage.DriverMemory {
		return storage.NewMemoryStorage(), nil
	}

	db, err := storage.OpenDB(ctx, cfg.StorageDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return storage.NewGormStorage(db)
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
