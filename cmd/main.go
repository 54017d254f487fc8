package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dosada05/tleague/brackets"
	"github.com/Dosada05/tleague/config"
	"github.com/Dosada05/tleague/db"
	"github.com/Dosada05/tleague/handlers"
	"github.com/Dosada05/tleague/repositories"
	api "github.com/Dosada05/tleague/routes"
	"github.com/Dosada05/tleague/services"
	"github.com/Dosada05/tleague/storage"
	"github.com/Dosada05/tleague/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	issueToken := flag.Int64("issue-token", 0, "print a signed access token for the given user id and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of a token printed by -issue-token")
	flag.Parse()

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if *issueToken > 0 {
		token, err := utils.GenerateJWT([]byte(cfg.JWTSecretKey), *issueToken, *tokenTTL)
		if err != nil {
			logger.Error("failed to issue token", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Архив завершённых турниров (Cloudflare R2), опционально
	var archiveStore storage.ObjectStore
	if cfg.R2.Enabled() {
		archiveStore, err = storage.NewR2Store(ctx, storage.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 archive enabled", slog.String("bucket", cfg.R2.BucketName))
	}

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tx := repositories.NewTransactor(dbConn, logger)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	recordRepo := repositories.NewPostgresRecordRepository(dbConn)
	adminLogRepo := repositories.NewPostgresAdminLogRepository(dbConn)

	// Инициализация сервисов
	clock := services.SystemClock
	zone := utils.NewDisplayZone(cfg.DisplayUTCOffsetHours)

	adminService := services.NewAdminService(adminLogRepo, userRepo, cfg.AdminIDs, logger)
	notificationService := services.NewNotificationService(wsHub, wsHub, userRepo, cfg.AdminIDs, zone, metrics, logger)
	archiveService := services.NewArchiveService(archiveStore, clock, logger)
	userService := services.NewUserService(userRepo, cfg.Rating.Initial)
	bracketService := services.NewBracketService(tx, tournamentRepo, participantRepo, matchRepo,
		rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), metrics, logger)
	standingsService := services.NewStandingsService(tx, tournamentRepo, participantRepo, matchRepo, userRepo, logger)
	ratingService := services.NewRatingService(tx, userRepo, matchRepo, services.RatingPoints{
		Win:     cfg.Rating.Win,
		Draw:    cfg.Rating.Draw,
		Loss:    cfg.Rating.Loss,
		Initial: cfg.Rating.Initial,
	}, metrics, logger)
	recordsService := services.NewRecordsService(tx, tournamentRepo, participantRepo, matchRepo, recordRepo, logger)
	participantService := services.NewParticipantService(tx, tournamentRepo, participantRepo, userRepo, logger)

	tournamentService := services.NewTournamentService(services.TournamentServiceDeps{
		Tx:              tx,
		TournamentRepo:  tournamentRepo,
		ParticipantRepo: participantRepo,
		MatchRepo:       matchRepo,
		RecordRepo:      recordRepo,
		Brackets:        bracketService,
		Standings:       standingsService,
		Records:         recordsService,
		Archive:         archiveService,
		Admin:           adminService,
		Notifications:   notificationService,
		Clock:           clock,
		Logger:          logger,
	})
	matchService := services.NewMatchService(services.MatchServiceDeps{
		Tx:             tx,
		MatchRepo:      matchRepo,
		TournamentRepo: tournamentRepo,
		Standings:      standingsService,
		Ratings:        ratingService,
		Notifications:  notificationService,
		Admin:          adminService,
		Clock:          clock,
		Metrics:        metrics,
		Logger:         logger,
	})
	scheduleService := services.NewScheduleService(services.ScheduleServiceDeps{
		Tx:             tx,
		TournamentRepo: tournamentRepo,
		MatchRepo:      matchRepo,
		Notifications:  notificationService,
		Admin:          adminService,
		Zone:           zone,
		WarningWindow:  time.Duration(cfg.DeadlineWarningHours) * time.Hour,
		Clock:          clock,
		Metrics:        metrics,
		Logger:         logger,
	})
	logger.Info("Services initialized")

	// Фоновые задачи: технические поражения и напоминания о дедлайнах
	scheduler, err := services.NewScheduler(scheduleService, clock, services.SchedulerConfig{
		SweepInterval:   cfg.SweepInterval,
		WarningInterval: cfg.WarningInterval,
	}, logger)
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Scheduler started", slog.Any("jobs", scheduler.JobNames()))

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament:  handlers.NewTournamentHandler(tournamentService, standingsService, recordsService),
		Participant: handlers.NewParticipantHandler(participantService),
		Schedule:    handlers.NewScheduleHandler(scheduleService),
		Match:       handlers.NewMatchHandler(matchService),
		Rating:      handlers.NewRatingHandler(ratingService, recordsService),
		User:        handlers.NewUserHandler(userService),
		Admin:       handlers.NewAdminUserHandler(adminService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, tournamentService, logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		Roles:          adminService,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", slog.Any("error", err))
	}
	cancel()
	logger.Info("application exited")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
