package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reydbot/internal/account/gotd"
	"reydbot/internal/config"
	"reydbot/internal/handler"
	"reydbot/internal/metrics"
	"reydbot/internal/middleware"
	"reydbot/internal/repository"
	"reydbot/internal/repository/memory"
	"reydbot/internal/repository/postgres"
	"reydbot/internal/service"
	"reydbot/internal/session"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	telemw "gopkg.in/telebot.v3/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Reyd Bot", zap.Bool("memory_store", cfg.UseMemoryStore))

	// Initialize repositories
	var users repository.UserRepository
	if cfg.UseMemoryStore {
		users = memory.NewUserRepo()
		logger.Warn("Using in-memory store, data is lost on restart")
	} else {
		db, err := connectDatabase(cfg.DSN(), logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connection established")

		if err := runMigrations(db, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		users = postgres.NewUserRepo(db)
	}

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			fields := []zap.Field{zap.Error(err)}
			if c != nil && c.Sender() != nil {
				fields = append(fields, zap.Int64("user_id", c.Sender().ID))
			}
			logger.Error("Handler failed", fields...)
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized", zap.String("username", bot.Me.Username))

	// Initialize services
	m := metrics.New()
	registry := session.NewRegistry()
	notifier := handler.NewNotifier(bot, logger)
	dialer := gotd.NewDialer(cfg.Telegram.AppID, cfg.Telegram.AppHash, logger)

	admission := service.NewAdmissionService(users, registry, notifier, cfg.AdminID, logger)
	watcher := service.NewWatcher(users, registry, notifier, m, cfg.WatchLabels, logger)
	login := service.NewLoginService(users, registry, dialer, notifier, watcher, m, cfg.Telegram.LoginTimeout, logger)
	jobs := service.NewJobRunner(users, registry, notifier, m, service.JobConfig{
		Delay:          cfg.Jobs.Delay,
		PollInterval:   cfg.Jobs.PollInterval,
		FloodMargin:    cfg.Jobs.FloodMargin,
		ScrapeMaxLimit: cfg.Jobs.ScrapeMaxLimit,
		HistoryDepth:   cfg.Jobs.HistoryDepth,
	}, logger)
	conv := service.NewConversationService(registry, admission, login, jobs, notifier, logger)
	restorer := service.NewRestorer(users, registry, dialer, notifier, watcher, m, logger)
	stats := service.NewStatsService(users, registry, cfg.AdminID, logger)
	entry := service.NewEntryService(admission, restorer, login, registry, notifier, logger)

	// Initialize handler
	bot.Use(telemw.Recover(), middleware.Instrument(m), middleware.Serialize())
	h := handler.NewHandler(bot, entry, admission, conv, jobs, watcher, stats, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reconnect stored sessions in background
	go func() {
		restored, err := restorer.RestoreAll(ctx)
		if err != nil {
			logger.Error("Failed to restore sessions", zap.Error(err))
			return
		}
		logger.Info("Sessions restored", zap.Int("active", restored))
	}()

	// Health and metrics endpoint
	server := newHTTPServer(cfg.HTTPPort, m)
	go func() {
		logger.Info("HTTP server started", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	bot.Stop()
	registry.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Failed to stop HTTP server", zap.Error(err))
	}

	logger.Info("Bot stopped gracefully")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newHTTPServer(port string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
	mux.HandleFunc("/", ok)
	mux.HandleFunc("/health", ok)
	mux.Handle("/metrics", m.Handler())

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations applies the schema in ./migrations
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}
	return nil
}
