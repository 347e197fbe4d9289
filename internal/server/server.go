package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"pos-backoffice/internal/cache"
	"pos-backoffice/internal/config"
	"pos-backoffice/internal/database"
	"pos-backoffice/internal/logger"
	custommiddleware "pos-backoffice/internal/middleware"
	"pos-backoffice/internal/payment"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/service"
	"pos-backoffice/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// requestSlack is how much longer than a gateway call a request may run.
const requestSlack = 15 * time.Second

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewRedisClient returns a client for the configured Redis, or nil when none
// is configured.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewServer wires repositories, services and handlers onto one router.
// redisClient may be nil; verification codes are then kept in memory and
// requests are not rate limited.
func NewServer(cfg *config.Config, log *zap.Logger, db database.Service, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack(cfg.Payment.Timeout + requestSlack)...)
	router.Use(custommiddleware.LoggingMiddleware(log))
	router.Use(custommiddleware.ErrorHandlingMiddleware(log))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))

	var codes cache.CodeStore
	if redisClient != nil {
		codes = cache.NewRedisCodeStore(redisClient)
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "pos_rate_limit",
		}, log))
	} else {
		log.Warn("Redis not configured, verification codes are kept in memory and rate limiting is off")
		codes = cache.NewMemoryCodeStore()
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	customerRepo := repository.NewCustomerRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	transactionRepo := repository.NewTransactionRepository(sqlDB)

	// Initialize services
	gateway := payment.NewWaafiClient(cfg.Payment, logger.Component(log, "payment"))
	mailer := service.NewLogMailer(logger.Component(log, "mailer"))

	saleService := service.NewSaleService(transactionRepo, productRepo, customerRepo, gateway, cfg.Sales, logger.Component(log, "sales"))
	reportService := service.NewReportService(transactionRepo, cfg.Report, logger.Component(log, "reports"))
	catalogService := service.NewCatalogService(productRepo, categoryRepo, logger.Component(log, "catalog"))
	userService := service.NewAccountService(userRepo, codes, mailer, cfg.JWT, logger.Component(log, "users"))
	customerService := service.NewAccountService(customerRepo, codes, mailer, cfg.JWT, logger.Component(log, "customers"))

	// Initialize handlers
	handlers := []interface {
		RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
	}{
		transport.NewTransactionHandler(saleService, reportService, log),
		transport.NewProductHandler(catalogService, log),
		transport.NewCategoryHandler(catalogService, log),
		transport.NewAccountHandler(userService, "/api/users", log),
		transport.NewAccountHandler(customerService, "/api/customers", log),
	}

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, log)

	// Register routes
	for _, h := range handlers {
		h.RegisterRoutes(router, authMiddleware)
	}

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.Payment.Timeout + 2*requestSlack,
		},
		config: cfg,
		logger: log,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
