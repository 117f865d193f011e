package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/event-tables/internal/api"
	"github.com/eugenenazirov/event-tables/internal/calculator"
	"github.com/eugenenazirov/event-tables/internal/config"
	"github.com/eugenenazirov/event-tables/internal/history"
	"github.com/eugenenazirov/event-tables/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage    storage.Storage
	calculator calculator.Calculator
	history    history.Store
	handler    *api.Handler
	router     http.Handler
	logger     *zap.Logger
	server     *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if err := store.SetTableCapacity(cfg.TableCapacity); err != nil {
		return nil, fmt.Errorf("failed to apply table capacity: %w", err)
	}

	hist, err := history.Open(cfg.HistoryDriver, cfg.HistoryDSN, cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	calc := calculator.New()
	handler := api.NewHandler(calc, store, hist,
		api.WithLogger(logger),
		api.WithGuestPolicy(cfg.GuestPolicy),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage:    store,
		calculator: calc,
		history:    hist,
		handler:    handler,
		router:     apiRouter,
		logger:     logger,
		server:     NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler constructs the root HTTP handler: API traffic under /api/ and a service index at /.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(serviceIndex)
	}))
	return mux
}

var serviceIndex = struct {
	Service   string   `json:"service"`
	Endpoints []string `json:"endpoints"`
}{
	Service: "event-tables",
	Endpoints: []string{
		"GET /api/health",
		"GET /api/table-capacity",
		"PUT /api/table-capacity",
		"POST /api/tables",
		"POST /api/tables/batch",
		"GET /api/calculations",
		"GET /api/calculations/{id}",
		"POST /api/grade",
	},
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

// Close releases resources held by the application once the server has stopped.
func (a *App) Close() error {
	if err := a.history.Close(); err != nil {
		return fmt.Errorf("close history store: %w", err)
	}
	return nil
}
