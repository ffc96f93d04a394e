package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	"github.com/turicert/cert-api/pkg/logger"
	"github.com/turicert/cert-api/pkg/messaging"
	"github.com/turicert/cert-api/pkg/metrics"
)

// Notifier resolves and delivers one notification batch.
type Notifier interface {
	SendNotification(ctx context.Context, processID uuid.UUID, overrideReason *int, lang model.Language, callerID uuid.UUID) (*model.NotificationOutcome, error)
}

type DispatchProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	WorkerCount  int
	MaxRetries   int
}

// DispatchProcessor drains the notification outbox: transitions write
// their dispatch requests transactionally, and this worker delivers them
// afterwards, decoupled from the request that caused them.
type DispatchProcessor struct {
	outbox   repository.OutboxRepository
	notifier Notifier
	broker   messaging.Broker
	config   DispatchProcessorConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewDispatchProcessor builds the worker. The broker is optional; when
// set, every delivered event is also published on the status-changed
// channel for downstream consumers.
func NewDispatchProcessor(
	outbox repository.OutboxRepository,
	notifier Notifier,
	broker messaging.Broker,
	config DispatchProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *DispatchProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.WorkerCount <= 0 {
		panic("WorkerCount must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	return &DispatchProcessor{
		outbox:   outbox,
		notifier: notifier,
		broker:   broker,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

func (p *DispatchProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting notification dispatch processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down notification dispatch processor")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox batch")
			}
		}
	}
}

func (p *DispatchProcessor) processBatch(ctx context.Context) error {
	if pending, err := p.outbox.PendingCount(ctx); err == nil {
		p.metrics.OutboxQueueSize.Set(float64(pending))
	}

	events, err := p.outbox.FetchPending(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	sem := make(chan struct{}, p.config.WorkerCount)
	var wg sync.WaitGroup

	for _, event := range events {
		wg.Add(1)
		sem <- struct{}{}
		go func(event *model.OutboxEvent) {
			defer wg.Done()
			defer func() { <-sem }()
			p.processEvent(ctx, event)
		}(event)
	}
	wg.Wait()
	return nil
}

func (p *DispatchProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) {
	reason := event.Reason
	_, err := p.notifier.SendNotification(ctx, event.ProcessID, &reason, event.Language, event.ActorID)
	if err != nil {
		retries := event.RetryCount + 1
		p.logger.Error(err, "notification dispatch failed",
			"event_id", event.ID.String(),
			"process_id", event.ProcessID.String(),
			"reason", event.Reason,
			"retry_count", retries)
		if markErr := p.outbox.MarkFailed(ctx, event.ID, err.Error(), retries, p.config.MaxRetries); markErr != nil {
			p.logger.Error(markErr, "failed to mark outbox event failed", "event_id", event.ID.String())
		}
		return
	}

	if err := p.outbox.MarkProcessed(ctx, event.ID); err != nil {
		p.logger.Error(err, "failed to mark outbox event processed", "event_id", event.ID.String())
	}

	if p.broker != nil {
		payload := map[string]interface{}{
			"process_id": event.ProcessID.String(),
			"reason":     event.Reason,
		}
		if err := p.broker.Publish(ctx, messaging.ChannelStatusChanged, payload); err != nil {
			p.logger.Error(err, "failed to publish status change", "process_id", event.ProcessID.String())
		}
	}
}
