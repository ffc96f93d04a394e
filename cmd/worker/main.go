package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turicert/cert-api/internal/config"
	"github.com/turicert/cert-api/internal/email"
	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository/postgres"
	notificationsvc "github.com/turicert/cert-api/internal/service/notification"
	expiration "github.com/turicert/cert-api/internal/worker"
	"github.com/turicert/cert-api/pkg/logger"
	"github.com/turicert/cert-api/pkg/messaging"
	redisbroker "github.com/turicert/cert-api/pkg/messaging/redis"
	"github.com/turicert/cert-api/pkg/metrics"
	"github.com/turicert/cert-api/pkg/worker"
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

	m := metrics.NewMetrics("certapi", "worker")

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
	userRepo := postgres.NewUserRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	emailSvc := email.NewSMTPService(cfg.SMTP)

	resolver := notificationsvc.NewResolver(templateRepo, userRepo, log)
	notifier := notificationsvc.NewService(
		resolver, model.NewStatusNames(), processRepo, companyRepo,
		ledgerRepo, emailSvc, log, m, cfg.Notification.CooldownMonths)

	dispatcher := worker.NewDispatchProcessor(outboxRepo, notifier, broker, worker.DispatchProcessorConfig{
		BatchSize:    cfg.Notification.BatchSize,
		PollInterval: cfg.Notification.PollInterval,
		WorkerCount:  cfg.Notification.WorkerCount,
	}, log, m)

	reminder := expiration.NewExpirationReminder(
		companyRepo, processRepo, userRepo, outboxRepo, notifier,
		cfg.Notification.ReminderHorizonDays, 24*time.Hour, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		reminder.Start(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	probe := &http.Server{Addr: ":8081", Handler: mux}
	go func() {
		if err := probe.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "probe server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = probe.Shutdown(shutdownCtx)
}
