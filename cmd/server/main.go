package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/database"
	"github.com/iliyamo/loyalty-rewards/internal/handler"
	"github.com/iliyamo/loyalty-rewards/internal/logging"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/router"
	"github.com/iliyamo/loyalty-rewards/internal/service"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logrus.WithError(err).Fatal("migration failed")
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is down
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	txns := repository.NewTransactionRepo(db)
	rewards := repository.NewRewardRepo(db)
	requests := repository.NewRedeemRequestRepo(db)
	tickets := repository.NewSupportTicketRepo(db)
	activityLogs := repository.NewActivityLogRepo(db)
	dashboard := repository.NewDashboardRepo(db)

	// Services
	ledger := service.NewLedger(db, users, txns, cfg.PointsCurrencyUnit)
	redemption := service.NewRedemption(db, ledger, rewards, requests)
	activity := service.NewActivityRecorder(service.NewAMQPPublisher(cfg.RabbitURL), activityLogs)
	refs, err := service.NewReferenceGenerator(cfg.SnowflakeNodeID)
	if err != nil {
		logrus.WithError(err).Fatal("reference generator")
	}

	go func() {
		if err := queue.StartActivityConsumer(ctx, cfg.RabbitURL, activityLogs); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Error("activity consumer stopped")
		}
	}()

	go purgeTokens(ctx, tokens, time.Hour)

	uploads := handler.Uploads{Dir: cfg.UploadDir, MaxBytes: cfg.UploadMaxBytes}
	h := router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, db, users, tokens, ledger, activity),
		Users:     handler.NewUserHandler(cfg, db, users, tokens, uploads, activity),
		Customers: handler.NewCustomerHandler(users, txns, ledger, activity),
		Rewards:   handler.NewRewardHandler(rewards, uploads, activity, rdb, cacheCfg.Prefix),
		Redeem:    handler.NewRedeemHandler(requests, redemption, activity),
		Me:        handler.NewMeHandler(users, txns),
		Tickets:   handler.NewTicketHandler(tickets, refs, activity),
		Activity:  handler.NewActivityHandler(activityLogs),
		Dashboard: handler.NewDashboardHandler(dashboard),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e, db, cfg.UploadDir, h.Auth)
	router.RegisterAPI(e, h, cfg.JWTSecret, middleware.NewRedisCache(cacheCfg, rdb))

	go func() {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}

// purgeTokens deletes expired refresh tokens every interval until ctx ends.
func purgeTokens(ctx context.Context, tokens *repository.TokenRepo, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := tokens.PurgeExpired(ctx, now.UTC())
			if err != nil {
				logrus.WithError(err).Warn("purge refresh tokens failed")
				continue
			}
			if n > 0 {
				logrus.WithField("deleted", n).Info("purged expired refresh tokens")
			}
		}
	}
}
