package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ptulin/folio/server/internal/config"
	"github.com/ptulin/folio/server/internal/db"
	"github.com/ptulin/folio/server/internal/folio/mailer"
	"github.com/ptulin/folio/server/internal/folio/service"
	"github.com/ptulin/folio/server/internal/folio/store"
	"github.com/ptulin/folio/server/internal/folio/store/memory"
	sqlitestore "github.com/ptulin/folio/server/internal/folio/store/sqlite"
	"github.com/ptulin/folio/server/internal/grpcapi"
	"github.com/ptulin/folio/server/internal/httpapi"
	"github.com/ptulin/folio/server/internal/logging"
	"github.com/ptulin/folio/server/internal/metrics"
	"github.com/ptulin/folio/server/internal/ratelimit"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	logger := logging.New("folio-server", cfg.LogLevel, os.Stdout)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.WithError(envErr).Warn("Failed to load .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Row store
	var (
		stores store.Stores
		conn   *sql.DB
		writer *db.Worker
	)
	switch cfg.Store {
	case "memory":
		stores = memory.New()
		logger.Warn("Using in-memory row store; data is lost on exit")
	default:
		conn, err = db.Open(ctx, db.Config{Path: cfg.DBPath(), Env: cfg.Env})
		if err != nil {
			logger.WithError(err).Fatal("Failed to open row store")
		}
		defer conn.Close()

		writer = db.NewWorker(conn)
		defer writer.Close()
		stores = sqlitestore.New(conn, writer)

		if cfg.Env == "dev" {
			seeded, err := db.SeedDev(ctx, conn, db.SeedDevOptions{OwnerEmail: cfg.AdminEmail})
			if err != nil {
				logger.WithError(err).Warn("Dev seed failed")
			} else if seeded {
				logger.Info("Seeded demo access code PT-00001")
			}
		}
		logger.WithField("path", cfg.DBPath()).Info("Row store ready")
	}

	// Outbound email
	var mail mailer.Mailer
	if cfg.SendgridAPIKey != "" {
		mail = mailer.NewSendGrid(cfg.SendgridAPIKey, cfg.FromEmail, cfg.SenderName, cfg.SendgridSandbox)
	} else {
		if cfg.Env == "prod" {
			logger.Warn("FOLIO_SENDGRID_API_KEY is empty; emails will only be logged")
		}
		mail = mailer.Log{Logger: logger}
	}
	composer := mailer.Composer{ResumeURL: cfg.ResumeURL, SenderName: cfg.SenderName}

	// Metrics
	var (
		mt             *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		mt = metrics.New(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Rate limiting
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup; rate limiter will fail open")
		}
		cancel()

		limiter = ratelimit.NewRedis(rdb, ratelimit.Config{
			Capacity:    cfg.RateLimitCapacity,
			RefillEvery: cfg.RateLimitRefillEach,
		})
	}

	// Services
	accessSvc := service.NewAccessService(stores, mail, composer, logger, mt)
	reportSvc := service.NewReportService(stores, mail, cfg.AdminEmail, cfg.ReportLocation(), logger, mt)

	scheduler, err := service.NewReportScheduler(reportSvc, service.SchedulerConfig{
		Schedule: cfg.ReportSchedule,
		Location: cfg.ReportLocation(),
		Timeout:  cfg.ReportTimeout,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule daily report")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger,
		Addr:           cfg.HTTPAddr,
		AccessService:  accessSvc,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Limiter:        limiter,
		Metrics:        mt,
		MetricsHandler: metricsHandler,
	})

	go func() {
		logger.Infof("HTTP listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server error")
			stop()
		}
	}()

	// gRPC health
	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.WithError(err).Fatal("Failed to listen for gRPC")
		}
		grpcSrv = grpcapi.NewServer(logger)
		go func() {
			logger.Infof("gRPC health listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				logger.WithError(err).Error("gRPC server error")
			}
		}()
		if conn != nil {
			go grpcSrv.Monitor(ctx, 15*time.Second, conn.PingContext)
		}
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	if grpcSrv != nil {
		grpcSrv.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown")
	}
}
