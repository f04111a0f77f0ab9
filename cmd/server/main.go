package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refill-pricing/internal/breaker"
	"refill-pricing/internal/calculator"
	"refill-pricing/internal/config"
	"refill-pricing/internal/database"
	"refill-pricing/internal/handlers"
	"refill-pricing/internal/kafka"
	"refill-pricing/internal/logger"
	"refill-pricing/internal/metrics"
	"refill-pricing/internal/models"
	"refill-pricing/internal/redis"
	"refill-pricing/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	metrics  *metrics.Metrics
	mux      *http.ServeMux
	server   *http.Server
}

// routes содержит обработчики, которые нужны для сборки ServeMux
type routes struct {
	page      *handlers.PageHandler
	quotes    *handlers.QuoteHandler
	stats     *handlers.StatsHandler
	health    *handlers.HealthHandler
	rateLimit *handlers.RateLimitHandler
	limiter   *services.RateLimiter
	metrics   *metrics.Metrics
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting refill pricing server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.shutdown(ctx)
	app.log.Info("Server exited")
}

// shutdown останавливает сервер и закрывает подключения в обратном порядке.
func (a *application) shutdown(ctx context.Context) {
	_ = a.consumer.Stop()
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.WithError(err).Error("Server forced to shutdown")
		}
	}
	_ = a.producer.Close()
	_ = a.redis.Close()
	_ = a.db.Close()
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.EnsureSchema(schemaCtx)
	cancel()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db schema: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	producer.WithBreaker(breaker.New("kafka-quotes", &cfg.Breaker, log, m), m)

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	controller := calculator.NewController(calculator.Options{
		Strict:         cfg.Pricing.Strict,
		ClampNegative:  cfg.Pricing.ClampNegative,
		DefaultRefills: cfg.Pricing.DefaultRefills,
		CurrencySymbol: cfg.Pricing.CurrencySymbol,
	})
	cacheTTL := time.Duration(cfg.Cache.QuoteTTLMinutes) * time.Minute
	quoteService := services.NewQuoteService(controller, db, redisClient, producer, m, log, cacheTTL)
	statsService := services.NewStatsService(db, redisClient, log, &cfg.Stats)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	r := &routes{
		page:      handlers.NewPageHandler(quoteService, log),
		quotes:    handlers.NewQuoteHandler(quoteService, log),
		stats:     handlers.NewStatsHandler(statsService, log, &cfg.Stats),
		health:    handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck),
		rateLimit: handlers.NewRateLimitHandler(rateLimiter, log, cfg.RateLimit.WindowSeconds),
		limiter:   rateLimiter,
		metrics:   m,
	}

	registerEventHandlers(consumer, m, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(r, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	log.WithField("strict", cfg.Pricing.Strict).
		WithField("clamp_negative", cfg.Pricing.ClampNegative).
		WithField("default_refills", cfg.Pricing.DefaultRefills).
		Info("Pricing policy configured")

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		metrics:  m,
		mux:      mux,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(r *routes, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	applyAPI := func(h http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RateLimitMiddleware(r.limiter, r.metrics, log, h))
	}

	// Страница калькулятора
	mux.HandleFunc("/", r.page.Index)
	mux.HandleFunc("/calculate", handlers.RateLimitMiddleware(r.limiter, r.metrics, log, r.page.Calculate))

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(r.health.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(r.health.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(r.health.Liveness))

	// Quote endpoints
	mux.HandleFunc("/api/quotes", applyAPI(r.quotes.Quotes))
	mux.HandleFunc("/api/quotes/", applyAPI(r.quotes.GetQuote))
	mux.HandleFunc("/api/quotes/stats", applyAPI(r.stats.GetQuoteStats))

	// Rate limit status
	mux.HandleFunc("/api/rate-limit/status", applyAPI(r.rateLimit.Status))

	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics.Handler())
	}

	return mux
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, m *metrics.Metrics, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypeQuoteCalculated, func(ctx context.Context, event *models.Event) error {
		var data models.QuoteCalculatedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode quote event: %w", err)
		}
		if m != nil {
			m.EventsConsumed.WithLabelValues(string(event.Type)).Inc()
		}
		log.WithField("event_id", event.ID).
			WithField("quote_id", data.QuoteID).
			WithField("display", data.Display).
			Info("Processing quote calculated event")
		return nil
	})
}

func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
