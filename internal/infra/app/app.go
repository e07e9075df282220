package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/audit"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/config"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/logger"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/security"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository/jsonfile"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository/memory"
	redisrepo "github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository/redis"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/tariff"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/middleware"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/routes"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/usecase"
)

// Application bundles the wired service and its lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	auditLog port.AuditLog
	redis    *goredis.Client
}

// New wires the full application from configuration. The self-healing default
// admin check runs here; a failure aborts startup.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.Csrf.UsingDefaultCsrfSecret() {
		log.Warn("csrf secret is the development fallback; set ER_CSRF_SECRET before exposing this service")
	}

	userRepo, err := jsonfile.NewUserRepository(filepath.Join(cfg.Data.Dir, cfg.Data.UsersFile), log)
	if err != nil {
		return nil, fmt.Errorf("init user store: %w", err)
	}
	inviteRepo, err := jsonfile.NewInviteRepository(filepath.Join(cfg.Data.Dir, cfg.Data.InvitesFile), log)
	if err != nil {
		return nil, fmt.Errorf("init invite store: %w", err)
	}

	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}
	validator := security.DefaultPasswordValidator()
	if cfg.Auth.PasswordMinScore > 0 {
		validator = security.StrictPasswordValidator(cfg.Auth.PasswordMinScore)
	}

	auditSinks := []port.AuditLog{
		audit.NewFileLog(filepath.Join(cfg.Data.Dir, cfg.Data.AuditLogFile), log),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaLog, err := audit.NewKafkaLog(cfg.Kafka, cfg.App.Name, log)
		if err != nil {
			log.Warn("kafka audit mirror unavailable, continuing with file log only", zap.Error(err))
		} else {
			auditSinks = append(auditSinks, kafkaLog)
			log.Info("kafka audit mirror initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	}
	auditLog := audit.NewTee(auditSinks...)

	tables := tariff.NewProvider(cfg.Data.Dir, []string{cfg.Data.UsersFile, cfg.Data.InvitesFile}, log)
	if err := tables.Reload(); err != nil {
		return nil, fmt.Errorf("load tariff tables: %w", err)
	}

	sessions := usecase.NewSessionManager(cfg.Auth.SessionTTL)
	threshold := cfg.Auth.MaxFailedAttemptsClamped()

	authService := usecase.NewAuthService(userRepo, hasher, validator, sessions, auditLog, threshold, log)
	userService := usecase.NewUserService(userRepo, hasher, validator, sessions, auditLog, cfg.Auth.DefaultAdminPassword, log)
	inviteService := usecase.NewInviteService(inviteRepo, auditLog, log)
	registrationService := usecase.NewRegistrationService(inviteService, userService, sessions, auditLog, log)

	if err := userService.EnsureDefaultAdmin(ctx); err != nil {
		return nil, fmt.Errorf("ensure default admin: %w", err)
	}

	var redisClient *goredis.Client
	var rateLimitStore port.RateLimitStore = memory.NewRateLimitStore()
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		rateLimitTTL := cfg.RateLimit.Window * 2
		rateLimitStore = redisrepo.NewRateLimitStore(redisClient, redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.App.Name + ":rate-limit",
			TTL:       rateLimitTTL,
		})
		log.Info("redis rate-limit store initialized", zap.String("addr", cfg.Redis.Addr))
	}
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	csrfGuard := middleware.NewCsrfGuard(
		cfg.Csrf.Secret,
		cfg.Csrf.Enforce,
		cfg.App.Env == "production",
		log,
	)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		CsrfGuard:   csrfGuard,
		Metrics:     metrics,
		Tables:      tables,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Users:        userService,
			Invites:      inviteService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		auditLog: auditLog,
		redis:    redisClient,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.auditLog != nil {
			_ = a.auditLog.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting wage calculator API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
