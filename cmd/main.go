package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	_ "github.com/willbeeching/boilerjuice/docs" // swagger spec registration
	"github.com/willbeeching/boilerjuice/internal/engine"
	"github.com/willbeeching/boilerjuice/internal/handlers"
	"github.com/willbeeching/boilerjuice/internal/logger"
	"github.com/willbeeching/boilerjuice/internal/repository"
	"github.com/willbeeching/boilerjuice/internal/repository/db"
	"github.com/willbeeching/boilerjuice/internal/scrape"
	"github.com/willbeeching/boilerjuice/internal/server"
	"github.com/willbeeching/boilerjuice/internal/service"
)

// The tank gauge only reports a few times a day, so the default poll is slow.
const defaultPollInterval = 1 * time.Hour

// @title                      BoilerJuice Tank Monitor API
// @version                    1.0
// @description                Consumption tracking for a BoilerJuice heating-oil tank.
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	// load config.yml first so the log level is honored
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log_level"))

	// open DB
	database, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// scrape client for boilerjuice.com
	client, err := scrape.NewClient(scrape.Config{
		BaseURL:  viper.GetString("boilerjuice.base_url"),
		Email:    viper.GetString("boilerjuice.email"),
		Password: viper.GetString("boilerjuice.password"),
	})
	if err != nil {
		log.Fatalw("failed to build boilerjuice client", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(database)
	services := service.NewService(service.Deps{
		Repos:      repos,
		Engine:     engineConfig(),
		Fetcher:    client,
		TankID:     viper.GetString("boilerjuice.tank_id"),
		SigningKey: viper.GetString("auth.signing_key"),
		TokenTTL:   time.Duration(viper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		Log:        log,
	})
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the background poller (via composed service)
	go services.Poller.Run(ctx, pollInterval())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// engineConfig maps the engine tuning keys; zero values fall back to the
// engine defaults.
func engineConfig() engine.Config {
	return engine.Config{
		KWhPerLitre:            viper.GetFloat64("engine.kwh_per_litre"),
		EpsilonPercent:         viper.GetFloat64("engine.epsilon_percent"),
		RefillThresholdPercent: viper.GetFloat64("engine.refill_threshold_percent"),
		RollingDays:            viper.GetInt("engine.rolling_days"),
		MinRateLitres:          viper.GetFloat64("engine.min_rate_litres"),
	}
}

func pollInterval() time.Duration {
	if mins := viper.GetInt("boilerjuice.poll_interval_minutes"); mins > 0 {
		return time.Duration(mins) * time.Minute
	}
	return defaultPollInterval
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "boilerjuice.db")
		dbPath = "boilerjuice.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the poller
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
