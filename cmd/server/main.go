package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/event-tables/internal/application"
	"github.com/eugenenazirov/event-tables/internal/config"
	"github.com/eugenenazirov/event-tables/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("event-tables", "Event Tables - works out how many tables an event needs")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a .env file loaded into the environment").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	var capacitySet, rpsSet, burstSet bool
	tableCapacity := kingpinApp.Flag("table-capacity", "Seats per table (1-100)").IsSetByUser(&capacitySet).Int()
	guestPolicy := kingpinApp.Flag("guest-policy", "How guests are counted: per-invitee or guests-only").String()
	historyDriver := kingpinApp.Flag("history-driver", "Calculation history backend: memory or sqlite").String()
	historyDSN := kingpinApp.Flag("history-dsn", "SQLite database path for the calculation history").String()
	logLevel := kingpinApp.Flag("log-level", "Log level: debug, info, warn, error").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").IsSetByUser(&rpsSet).Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").IsSetByUser(&burstSet).Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if capacitySet {
		overrides.TableCapacity = tableCapacity
	}

	if *guestPolicy != "" {
		overrides.GuestPolicy = guestPolicy
	}

	if *historyDriver != "" {
		overrides.HistoryDriver = historyDriver
	}

	if *historyDSN != "" {
		overrides.HistoryDSN = historyDSN
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if rpsSet {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if burstSet {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("table_capacity", cfg.TableCapacity),
		zap.String("guest_policy", string(cfg.GuestPolicy)),
		zap.String("history_driver", cfg.HistoryDriver),
	)

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)

	if err := app.Close(); err != nil {
		logger.Error("failed to release resources", zap.Error(err))
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
