package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turicert/cert-api/internal/config"
	"github.com/turicert/cert-api/internal/email"
	crosscountryhandler "github.com/turicert/cert-api/internal/handler/crosscountry"
	healthhandler "github.com/turicert/cert-api/internal/handler/health"
	notificationhandler "github.com/turicert/cert-api/internal/handler/notification"
	processhandler "github.com/turicert/cert-api/internal/handler/process"
	"github.com/turicert/cert-api/internal/middleware"
	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository/postgres"
	"github.com/turicert/cert-api/internal/router"
	crosscountrysvc "github.com/turicert/cert-api/internal/service/crosscountry"
	notificationsvc "github.com/turicert/cert-api/internal/service/notification"
	processsvc "github.com/turicert/cert-api/internal/service/process"
	querysvc "github.com/turicert/cert-api/internal/service/query"
	"github.com/turicert/cert-api/pkg/logger"
	"github.com/turicert/cert-api/pkg/messaging"
	redisbroker "github.com/turicert/cert-api/pkg/messaging/redis"
	"github.com/turicert/cert-api/pkg/metrics"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("certapi", "api")

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log.ZL())
		if err != nil {
			log.Fatal(err, "failed to connect to redis")
		}
		defer broker.Close()
	}

	processRepo := postgres.NewProcessRepository(db)
	companyRepo := postgres.NewCompanyRepository(db)
	questionnaireRepo := postgres.NewQuestionnaireRepository(db)
	userRepo := postgres.NewUserRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	crossCountryRepo := postgres.NewCrossCountryRepository(db)
	gradingRepo := postgres.NewGradingRepository(db)
	distinctiveRepo := postgres.NewDistinctiveRepository(db)

	emailSvc := email.NewSMTPService(cfg.SMTP)

	crossCountrySvc := crosscountrysvc.NewService(crossCountryRepo, companyRepo, userRepo, broker, log, m)
	processSvc := processsvc.NewService(
		processRepo, companyRepo, questionnaireRepo, gradingRepo,
		distinctiveRepo, userRepo, crossCountrySvc, log, m)
	querySvc := querysvc.NewService(processRepo, userRepo, log)

	resolver := notificationsvc.NewResolver(templateRepo, userRepo, log)
	notificationSvc := notificationsvc.NewService(
		resolver, model.NewStatusNames(), processRepo, companyRepo,
		ledgerRepo, emailSvc, log, m, cfg.Notification.CooldownMonths)

	auth := middleware.NewAuthMiddleware(cfg.JWT)
	engine := router.Setup(log, auth, router.Handlers{
		Process:      processhandler.NewHandler(processSvc, querySvc, log),
		CrossCountry: crosscountryhandler.NewHandler(crossCountrySvc, log),
		Notification: notificationhandler.NewHandler(notificationSvc, log),
		Health:       healthhandler.NewHandler(db),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting api server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down api server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
