package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/turicert/cert-api/internal/email"
	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
	"github.com/turicert/cert-api/pkg/metrics"
)

const (
	audienceInternal = "internal"
	audienceCompany  = "company"
)

// Service renders and delivers notifications and keeps the sent ledger.
// Delivery is per-recipient best-effort: one failing address never
// aborts the batch, and the triggering business operation has already
// committed by the time dispatch runs.
type Service struct {
	resolver       *Resolver
	statusNames    *model.StatusNames
	processes      repository.ProcessRepository
	companies      repository.CompanyRepository
	ledger         repository.LedgerRepository
	emailSvc       email.Service
	logger         *logger.Logger
	metrics        *metrics.Metrics
	cooldownMonths int
}

func NewService(
	resolver *Resolver,
	statusNames *model.StatusNames,
	processes repository.ProcessRepository,
	companies repository.CompanyRepository,
	ledger repository.LedgerRepository,
	emailSvc email.Service,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	cooldownMonths int,
) *Service {
	if cooldownMonths <= 0 {
		cooldownMonths = 1
	}
	return &Service{
		resolver:       resolver,
		statusNames:    statusNames,
		processes:      processes,
		companies:      companies,
		ledger:         ledger,
		emailSvc:       emailSvc,
		logger:         logger,
		metrics:        metrics,
		cooldownMonths: cooldownMonths,
	}
}

// SendNotification resolves, renders and delivers the notification for a
// process. overrideReason selects a template explicitly; otherwise the
// company's current status picks it. The send is recorded in the ledger
// for the calling user; suppression is the caller's decision via
// HasBeenNotified, never applied here.
func (s *Service) SendNotification(ctx context.Context, processID uuid.UUID, overrideReason *int, lang model.Language, callerID uuid.UUID) (*model.NotificationOutcome, error) {
	timer := prometheus.NewTimer(s.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	process, err := s.processes.Get(ctx, processID)
	if err != nil {
		return nil, err
	}
	company, err := s.companies.Get(ctx, process.CompanyID)
	if err != nil {
		return nil, err
	}

	reason := int(company.CurrentStatus)
	if overrideReason != nil {
		reason = *overrideReason
	}

	template, err := s.resolver.Template(ctx, reason)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrTemplateMissing) {
			// A missing template skips the dispatch; it never fails the
			// operation that requested it.
			s.logger.Warn("no notification template, skipping dispatch",
				"process_id", processID.String(), "reason", reason)
			return &model.NotificationOutcome{ProcessID: processID, Reason: reason}, nil
		}
		return nil, err
	}
	if process.IsRecertification {
		template = recertify(template)
	}

	recipients, err := s.resolver.Resolve(ctx, template, process, company)
	if err != nil {
		return nil, err
	}

	outcome := &model.NotificationOutcome{ProcessID: processID, Reason: reason}

	// Company audience: rendered once, delivered to the representative
	// and, best-effort, to the company's secondary address.
	for _, recipient := range recipients.Company {
		language := recipient.Language
		if language == "" {
			language = lang
		}
		subject := s.render(template.CompanyTitle(language), process, company, language)
		body := s.render(template.CompanyBody(language), process, company, language)

		s.deliver(ctx, outcome, audienceCompany, recipient, subject, body)

		if recipients.SecondaryCompanyEmail != "" {
			secondary := recipient
			secondary.Email = recipients.SecondaryCompanyEmail
			if err := s.emailSvc.SendCustom(ctx, secondary.Email, subject, body); err != nil {
				// Secondary address failures are logged, never fatal.
				s.logger.Warn("secondary company email failed",
					"process_id", processID.String(), "email", secondary.Email, "error", err.Error())
			}
		}
	}

	for _, recipient := range recipients.Internal {
		language := recipient.Language
		if language == "" {
			language = lang
		}
		subject := s.render(template.InternalTitle(language), process, company, language)
		body := s.render(template.InternalBody(language), process, company, language)
		s.deliver(ctx, outcome, audienceInternal, recipient, subject, body)
	}

	if _, err := s.ledger.Append(ctx, &model.SentNotificationRecord{
		UserID:    callerID,
		ProcessID: processID,
		SentAt:    time.Now(),
	}); err != nil {
		s.logger.Error(err, "failed to record sent notification",
			"process_id", processID.String(), "user_id", callerID.String())
	}

	return outcome, nil
}

// HasBeenNotified reports whether the user already got a notification
// about this process inside the cooldown window.
func (s *Service) HasBeenNotified(ctx context.Context, userID, processID uuid.UUID) (bool, error) {
	since := time.Now().AddDate(0, -s.cooldownMonths, 0)
	return s.ledger.Exists(ctx, userID, processID, since)
}

// RecordSent appends a ledger row directly, reporting whether it was the
// first send inside the cooldown bucket.
func (s *Service) RecordSent(ctx context.Context, userID, processID uuid.UUID) (bool, error) {
	inserted, err := s.ledger.Append(ctx, &model.SentNotificationRecord{
		UserID:    userID,
		ProcessID: processID,
		SentAt:    time.Now(),
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		s.metrics.NotificationsSuppressed.Inc()
	}
	return inserted, nil
}

func (s *Service) deliver(ctx context.Context, outcome *model.NotificationOutcome, audience string, recipient model.Recipient, subject, body string) {
	if err := s.emailSvc.SendCustom(ctx, recipient.Email, subject, body); err != nil {
		outcome.Failed++
		s.metrics.NotificationsFailed.WithLabelValues(audience).Inc()
		s.logger.Error(err, "notification delivery failed",
			"process_id", outcome.ProcessID.String(),
			"reason", outcome.Reason,
			"email", recipient.Email,
			"audience", audience)
		return
	}
	outcome.Delivered++
	s.metrics.NotificationsSent.WithLabelValues(audience).Inc()
}

// render fills the template text's placeholders. Full template engines
// live outside the core; bodies only carry simple tokens.
func (s *Service) render(text string, process *model.CertificationProcess, company *model.Company, lang model.Language) string {
	statusText, err := s.statusNames.Text(process.Status, lang)
	if err != nil {
		statusText = ""
	}
	replacer := strings.NewReplacer(
		"{company}", company.Name,
		"{case_number}", process.CaseNumber,
		"{status}", statusText,
	)
	return replacer.Replace(text)
}
