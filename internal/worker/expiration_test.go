package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
)

type fakeCompanyRepo struct {
	expiring []*model.Company
}

func (r *fakeCompanyRepo) Get(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	return nil, apperrors.NotFound("not used", nil)
}

func (r *fakeCompanyRepo) ListExpiring(ctx context.Context, before time.Time) ([]*model.Company, error) {
	return r.expiring, nil
}

type fakeProcessRepo struct {
	latest map[uuid.UUID]*model.CertificationProcess
}

func (r *fakeProcessRepo) Get(ctx context.Context, id uuid.UUID) (*model.CertificationProcess, error) {
	return nil, apperrors.NotFound("not used", nil)
}

func (r *fakeProcessRepo) GetActiveByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error) {
	return nil, apperrors.NotFound("not used", nil)
}

func (r *fakeProcessRepo) GetLatestByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error) {
	if p, ok := r.latest[companyID]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("no process for company", nil)
}

func (r *fakeProcessRepo) Create(ctx context.Context, write repository.TransitionWrite) error {
	return nil
}

func (r *fakeProcessRepo) ApplyTransition(ctx context.Context, write repository.TransitionWrite) error {
	return nil
}

func (r *fakeProcessRepo) ListTransitions(ctx context.Context, processID uuid.UUID) ([]*model.TransitionLog, error) {
	return nil, nil
}

func (r *fakeProcessRepo) ListProjections(ctx context.Context, scope model.VisibilityScope, filter model.ProcessFilter) (model.Page[model.CompanyProjection], error) {
	return model.Page[model.CompanyProjection]{}, nil
}

type fakeUserRepo struct {
	byCompany map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return nil, apperrors.NotFound("not used", nil)
}

func (r *fakeUserRepo) GetByCompany(ctx context.Context, companyID uuid.UUID) (*model.User, error) {
	if u, ok := r.byCompany[companyID]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("no user for company", nil)
}

func (r *fakeUserRepo) ListNotifiable(ctx context.Context, role model.Role, countryID *uuid.UUID) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) HasRoleInCountry(ctx context.Context, userID uuid.UUID, role model.Role, countryID uuid.UUID) (bool, error) {
	return false, nil
}

type fakeOutbox struct {
	inserted []*model.OutboxEvent
}

func (o *fakeOutbox) Insert(ctx context.Context, event *model.OutboxEvent) error {
	o.inserted = append(o.inserted, event)
	return nil
}

func (o *fakeOutbox) FetchPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (o *fakeOutbox) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (o *fakeOutbox) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryCount, maxRetries int) error {
	return nil
}

func (o *fakeOutbox) PendingCount(ctx context.Context) (int64, error) { return 0, nil }

type fakeNotified struct {
	notified map[uuid.UUID]bool
}

func (n *fakeNotified) HasBeenNotified(ctx context.Context, userID, processID uuid.UUID) (bool, error) {
	return n.notified[userID], nil
}

type reminderFixture struct {
	worker    *ExpirationReminder
	companies *fakeCompanyRepo
	processes *fakeProcessRepo
	users     *fakeUserRepo
	outbox    *fakeOutbox
	notified  *fakeNotified
}

func newReminderFixture() *reminderFixture {
	f := &reminderFixture{
		companies: &fakeCompanyRepo{},
		processes: &fakeProcessRepo{latest: make(map[uuid.UUID]*model.CertificationProcess)},
		users:     &fakeUserRepo{byCompany: make(map[uuid.UUID]*model.User)},
		outbox:    &fakeOutbox{},
		notified:  &fakeNotified{notified: make(map[uuid.UUID]bool)},
	}
	f.worker = NewExpirationReminder(f.companies, f.processes, f.users, f.outbox, f.notified, 60, time.Hour, logger.NewLogger(nil))
	return f
}

func (f *reminderFixture) addExpiringCompany() (*model.Company, *model.CertificationProcess, *model.User) {
	expiration := time.Now().AddDate(0, 1, 0)
	company := &model.Company{ID: uuid.New(), Name: "Hotel Miravalle", ResultExpiration: &expiration}
	f.companies.expiring = append(f.companies.expiring, company)

	process := &model.CertificationProcess{ID: uuid.New(), CompanyID: company.ID, Status: model.StatusCompleted}
	f.processes.latest[company.ID] = process

	user := &model.User{ID: uuid.New(), CompanyID: &company.ID, Role: model.RoleCompany, Language: model.LanguageSpanish}
	f.users.byCompany[company.ID] = user
	return company, process, user
}

func TestSweepQueuesReminder(t *testing.T) {
	f := newReminderFixture()
	_, process, user := f.addExpiringCompany()

	require.NoError(t, f.worker.sweep(context.Background()))

	require.Len(t, f.outbox.inserted, 1)
	event := f.outbox.inserted[0]
	assert.Equal(t, process.ID, event.ProcessID)
	assert.Equal(t, model.ReasonExpirationReminder, event.Reason)
	assert.Equal(t, user.ID, event.ActorID)
}

func TestSweepSkipsWithinCooldown(t *testing.T) {
	f := newReminderFixture()
	_, _, user := f.addExpiringCompany()
	f.notified.notified[user.ID] = true

	require.NoError(t, f.worker.sweep(context.Background()))
	assert.Empty(t, f.outbox.inserted)
}

func TestSweepSkipsCompanyWithoutRepresentative(t *testing.T) {
	f := newReminderFixture()
	company, _, _ := f.addExpiringCompany()
	delete(f.users.byCompany, company.ID)

	require.NoError(t, f.worker.sweep(context.Background()))
	assert.Empty(t, f.outbox.inserted)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	f := newReminderFixture()

	// First company has no process rows at all; the second is healthy.
	broken := &model.Company{ID: uuid.New(), Name: "Hostal Roto"}
	f.companies.expiring = append(f.companies.expiring, broken)
	f.addExpiringCompany()

	require.NoError(t, f.worker.sweep(context.Background()))
	assert.Len(t, f.outbox.inserted, 1)
}
