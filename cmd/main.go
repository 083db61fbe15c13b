package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/valorant-arena/brackets"
	"github.com/Dosada05/valorant-arena/config"
	"github.com/Dosada05/valorant-arena/db"
	"github.com/Dosada05/valorant-arena/handlers"
	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/oauth"
	"github.com/Dosada05/valorant-arena/repositories"
	api "github.com/Dosada05/valorant-arena/routes"
	"github.com/Dosada05/valorant-arena/services"
	"github.com/Dosada05/valorant-arena/statsapi"
	"github.com/Dosada05/valorant-arena/storage"
	"github.com/go-chi/chi/v5"
)

const (
	// Входящий лимит на /api/stats для одного IP
	statsProxyRPS   = 5
	statsProxyBurst = 10
)

func main() {
	startedAt := time.Now()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	applied, err := db.Migrate(ctx, dbConn)
	if err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied", slog.Any("versions", applied))

	appMetrics := metrics.NewService()

	// Инициализация загрузчика файлов (Cloudflare R2)
	uploader := storage.NewDisabledUploader()
	if cfg.R2.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, image uploads are disabled")
	}

	notify, err := notifier.FromConfig(cfg, appMetrics, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}

	statsClient := statsapi.NewClient(statsapi.Config{
		BaseURL: cfg.Stats.BaseURL,
		APIKey:  cfg.Stats.APIKey,
		RPS:     cfg.Stats.RPS,
	}, appMetrics)
	if !statsClient.Configured() {
		logger.Warn("stats API key is not set, stats proxy will answer 503")
	}

	oauthProviders := oauth.FromConfig(cfg)

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	paymentRepo := repositories.NewPostgresPaymentRequestRepository(dbConn)
	freeAgentRepo := repositories.NewPostgresFreeAgentRepository(dbConn)
	dashboardRepo := repositories.NewPostgresDashboardRepository(dbConn)
	txRunner := db.NewTxRunner(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	tokens := services.NewTokenIssuer(cfg.JWTSecretKey, cfg.JWTTTL)
	authService := services.NewAuthService(userRepo, tokens, logger)
	userService := services.NewUserService(userRepo, statsClient, uploader, logger)
	tournamentService := services.NewTournamentService(
		txRunner,
		tournamentRepo,
		userRepo,
		registrationRepo,
		matchRepo,
		paymentRepo,
		notify,
		uploader,
		logger,
	)
	registrationService := services.NewRegistrationService(
		txRunner,
		tournamentRepo,
		registrationRepo,
		paymentRepo,
		userRepo,
		notify,
		appMetrics,
		logger,
	)
	paymentService := services.NewPaymentService(
		txRunner,
		paymentRepo,
		registrationRepo,
		tournamentRepo,
		userRepo,
		notify,
		uploader,
		logger,
	)
	bracketService := services.NewBracketService(txRunner, tournamentRepo, registrationRepo, matchRepo, userRepo, wsHub, logger)
	matchService := services.NewMatchService(
		txRunner,
		matchRepo,
		tournamentRepo,
		registrationRepo,
		userRepo,
		wsHub,
		notify,
		appMetrics,
		logger,
	)
	freeAgentService := services.NewFreeAgentService(freeAgentRepo, userRepo, statsClient, uploader, logger)
	dashboardService := services.NewDashboardService(dashboardRepo)
	seoService := services.NewSEOService(tournamentRepo, cfg.SiteURL)
	announcer := services.NewUpcomingAnnouncer(tournamentRepo, matchRepo, registrationRepo, notify, cfg.Scheduler.AnnounceWindow, logger)
	logger.Info("Services initialized")

	// Запуск планировщика: статусы турниров и анонсы
	scheduler := services.NewScheduler(tournamentService, announcer, cfg.Scheduler.Interval, appMetrics, logger)
	go scheduler.Run(ctx)

	// Инициализация обработчиков HTTP
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, oauthProviders, cfg.FrontendURL),
		User:         handlers.NewUserHandler(userService, registrationService),
		Admin:        handlers.NewAdminUserHandler(userService),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Payment:      handlers.NewPaymentHandler(paymentService),
		Bracket:      handlers.NewBracketHandler(bracketService),
		Match:        handlers.NewMatchHandler(matchService),
		FreeAgent:    handlers.NewFreeAgentHandler(freeAgentService),
		Stats:        handlers.NewStatsHandler(statsClient),
		Cron:         handlers.NewCronHandler(announcer, cfg.Scheduler.CronSecret),
		SEO:          handlers.NewSEOHandler(seoService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins),
		Metrics:      metrics.NewMetricsHandler(),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		StatsRPS:       statsProxyRPS,
		StatsBurst:     statsProxyBurst,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()
	appMetrics.SetStartupTime(time.Since(startedAt).Seconds())

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		stop()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		// Останавливаем планировщик и hub до закрытия сервера
		stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
