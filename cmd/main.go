package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/config"
	v1 "github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/handler/http/v1"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/pipeline"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/provider"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/repository"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/service"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/stream"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/webhook"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/pkg/logger"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/pkg/postgres"
	redisclient "github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Tourist Safety Monitoring API
// @version 1.0
// @description Risk scoring and incident pipeline for tourist safety monitoring.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

// defaultResponders - базовый ростер дежурных сотрудников (Дели)
func defaultResponders() []models.Responder {
	return []models.Responder{
		{ID: "resp-001", Name: "Officer Raj Kumar", Latitude: 28.6139, Longitude: 77.2090},
		{ID: "resp-002", Name: "Officer Priya Singh", Latitude: 28.5355, Longitude: 77.3910},
		{ID: "resp-003", Name: "Officer Amit Sharma", Latitude: 28.7041, Longitude: 77.1025},
	}
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Инициализация издателя уведомлений
	alertPublisher := webhook.NewRedisAlertPublisher(redisClient)

	// Инициализация и запуск воркера уведомлений
	alertWorker := webhook.NewAlertWorker(redisClient, log, cfg)
	alertWorker.Start(ctx)

	// Инициализация репозиториев
	incidentRepo := repository.NewIncidentRepository(dbpool, redisClient)

	// Провайдеры риска и внешние клиенты
	weatherProvider := provider.NewOpenWeatherProvider(cfg.WeatherAPIKey, cfg.ProviderTimeout, log)
	crimeProvider := provider.NewSyntheticCrimeProvider()
	politicalProvider := provider.NewSyntheticPoliticalProvider()
	geocoder := provider.NewHTTPGeocoder(cfg.GeocoderURL, cfg.ProviderTimeout)
	historyProvider := provider.NewSyntheticHistoryProvider()

	// Модельный клиент опционален: без эндпоинта скоринг работает на локальном фолбэке
	var modelClient service.ModelClient
	if mc := provider.NewInferenceModelClient(cfg.ModelAPIURL, cfg.ModelAPIToken, cfg.ProviderTimeout); mc != nil {
		modelClient = mc
	}

	// Геозоны: из файла или набор по умолчанию
	fences := service.DefaultGeofences()
	if cfg.GeofencePath != "" {
		loaded, err := service.LoadGeofences(cfg.GeofencePath)
		if err != nil {
			log.WithError(err).Warn("Failed to load geofence file, using defaults")
		} else {
			fences = loaded
		}
	}

	// Инициализация сервисов
	riskService := service.NewRiskService(weatherProvider, crimeProvider, politicalProvider, log)
	anomalyService := service.NewAnomalyService(modelClient, log)
	correlationService := service.NewCorrelationService()
	geofenceService := service.NewGeofenceService(fences, alertPublisher, log)
	incidentService := service.NewIncidentService(incidentRepo, geocoder, nil, alertPublisher, defaultResponders(), log, cfg)

	// Конвейер скоринга поверх потока обновлений туристов
	touristSource := stream.NewRedisTouristSource(redisClient, cfg.TouristStreamChannel, log)
	watcher, err := pipeline.NewWatcher(
		touristSource,
		riskService,
		anomalyService,
		correlationService,
		geofenceService,
		incidentService,
		historyProvider,
		alertPublisher,
		log,
		cfg.DedupLedgerSize,
		cfg.PipelineConcurrency,
	)
	if err != nil {
		log.Fatalf("Failed to create pipeline watcher: %v", err)
	}
	stopPipeline, err := watcher.Start(ctx)
	if err != nil {
		log.Fatalf("Failed to start pipeline watcher: %v", err)
	}
	defer stopPipeline()

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, riskService, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
