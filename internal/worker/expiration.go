package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
)

// Notified answers whether a reminder for (user, process) is still
// inside its cooldown window.
type Notified interface {
	HasBeenNotified(ctx context.Context, userID, processID uuid.UUID) (bool, error)
}

// ExpirationReminder sweeps for companies whose certification expires
// inside the reminder horizon and queues one reminder per company
// representative, consulting the dedup ledger first so a company is not
// reminded again within the cooldown.
type ExpirationReminder struct {
	companies repository.CompanyRepository
	processes repository.ProcessRepository
	users     repository.UserRepository
	outbox    repository.OutboxRepository
	notified  Notified
	horizon   time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

func NewExpirationReminder(
	companies repository.CompanyRepository,
	processes repository.ProcessRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	notified Notified,
	horizonDays int,
	interval time.Duration,
	logger *logger.Logger,
) *ExpirationReminder {
	if horizonDays <= 0 {
		horizonDays = 60
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &ExpirationReminder{
		companies: companies,
		processes: processes,
		users:     users,
		outbox:    outbox,
		notified:  notified,
		horizon:   time.Duration(horizonDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
	}
}

func (w *ExpirationReminder) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting expiration reminder worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down expiration reminder worker")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error(err, "expiration sweep failed")
			}
		}
	}
}

func (w *ExpirationReminder) sweep(ctx context.Context) error {
	companies, err := w.companies.ListExpiring(ctx, time.Now().Add(w.horizon))
	if err != nil {
		return err
	}

	for _, company := range companies {
		if err := w.remind(ctx, company); err != nil {
			w.logger.Error(err, "failed to queue expiration reminder", "company_id", company.ID.String())
		}
	}
	return nil
}

func (w *ExpirationReminder) remind(ctx context.Context, company *model.Company) error {
	process, err := w.processes.GetLatestByCompany(ctx, company.ID)
	if err != nil {
		return err
	}

	user, err := w.users.GetByCompany(ctx, company.ID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			w.logger.Debug("company has no representative user", "company_id", company.ID.String())
			return nil
		}
		return err
	}

	already, err := w.notified.HasBeenNotified(ctx, user.ID, process.ID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	return w.outbox.Insert(ctx, &model.OutboxEvent{
		ProcessID: process.ID,
		Reason:    model.ReasonExpirationReminder,
		ActorID:   user.ID,
		Language:  user.Language,
	})
}
