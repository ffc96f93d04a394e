package process

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
	"github.com/turicert/cert-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "process")

type fakeProcessRepo struct {
	processes map[uuid.UUID]*model.CertificationProcess
	active    map[uuid.UUID]*model.CertificationProcess
	latest    map[uuid.UUID]*model.CertificationProcess
	logs      []*model.TransitionLog
	events    []*model.OutboxEvent
	lastWrite repository.TransitionWrite
	createErr error
}

func newFakeProcessRepo() *fakeProcessRepo {
	return &fakeProcessRepo{
		processes: make(map[uuid.UUID]*model.CertificationProcess),
		active:    make(map[uuid.UUID]*model.CertificationProcess),
		latest:    make(map[uuid.UUID]*model.CertificationProcess),
	}
}

func (r *fakeProcessRepo) Get(ctx context.Context, id uuid.UUID) (*model.CertificationProcess, error) {
	if p, ok := r.processes[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, apperrors.NotFound("process", nil)
}

func (r *fakeProcessRepo) GetActiveByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error) {
	if p, ok := r.active[companyID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, apperrors.NotFound("no active process", nil)
}

func (r *fakeProcessRepo) GetLatestByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error) {
	if p, ok := r.latest[companyID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, apperrors.NotFound("no process for company", nil)
}

func (r *fakeProcessRepo) store(write repository.TransitionWrite) {
	r.lastWrite = write
	copied := *write.Process
	r.processes[copied.ID] = &copied
	r.latest[copied.CompanyID] = &copied
	if copied.Active() {
		r.active[copied.CompanyID] = &copied
	} else {
		delete(r.active, copied.CompanyID)
	}
	if write.Log != nil {
		r.logs = append(r.logs, write.Log)
	}
	if write.Event != nil {
		r.events = append(r.events, write.Event)
	}
}

func (r *fakeProcessRepo) Create(ctx context.Context, write repository.TransitionWrite) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, busy := r.active[write.Process.CompanyID]; busy && write.Process.Active() {
		return apperrors.InvalidCompanyState("company already has an active certification process")
	}
	r.store(write)
	return nil
}

func (r *fakeProcessRepo) ApplyTransition(ctx context.Context, write repository.TransitionWrite) error {
	if _, ok := r.processes[write.Process.ID]; !ok {
		return apperrors.NotFound("process", nil)
	}
	r.store(write)
	return nil
}

func (r *fakeProcessRepo) ListTransitions(ctx context.Context, processID uuid.UUID) ([]*model.TransitionLog, error) {
	var out []*model.TransitionLog
	for _, log := range r.logs {
		if log.ProcessID == processID {
			out = append(out, log)
		}
	}
	return out, nil
}

func (r *fakeProcessRepo) ListProjections(ctx context.Context, scope model.VisibilityScope, filter model.ProcessFilter) (model.Page[model.CompanyProjection], error) {
	return model.Page[model.CompanyProjection]{}, nil
}

type fakeCompanyRepo struct {
	companies map[uuid.UUID]*model.Company
}

func (r *fakeCompanyRepo) Get(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	if c, ok := r.companies[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, apperrors.NotFound("company", nil)
}

func (r *fakeCompanyRepo) ListExpiring(ctx context.Context, before time.Time) ([]*model.Company, error) {
	return nil, nil
}

type fakeQuestionnaireRepo struct {
	questionnaires map[uuid.UUID]*model.Questionnaire
	items          map[uuid.UUID][]*model.QuestionnaireItem
	byProcess      map[uuid.UUID]*model.Questionnaire
}

func (r *fakeQuestionnaireRepo) Get(ctx context.Context, id uuid.UUID) (*model.Questionnaire, error) {
	if q, ok := r.questionnaires[id]; ok {
		copied := *q
		return &copied, nil
	}
	return nil, apperrors.NotFound("questionnaire", nil)
}

func (r *fakeQuestionnaireRepo) GetItems(ctx context.Context, questionnaireID uuid.UUID) ([]*model.QuestionnaireItem, error) {
	return r.items[questionnaireID], nil
}

func (r *fakeQuestionnaireRepo) GetActiveByProcess(ctx context.Context, processID uuid.UUID) (*model.Questionnaire, error) {
	if q, ok := r.byProcess[processID]; ok {
		copied := *q
		return &copied, nil
	}
	return nil, apperrors.NotFound("no active questionnaire", nil)
}

type fakeGradingRepo struct {
	records map[uuid.UUID]*model.GradingRecord
}

func (r *fakeGradingRepo) GetLatestByProcess(ctx context.Context, processID uuid.UUID) (*model.GradingRecord, error) {
	if g, ok := r.records[processID]; ok {
		return g, nil
	}
	return nil, apperrors.NotFound("no grading record", nil)
}

type fakeDistinctiveRepo struct {
	distinctives map[uuid.UUID]*model.Distinctive
}

func (r *fakeDistinctiveRepo) Get(ctx context.Context, id uuid.UUID) (*model.Distinctive, error) {
	if d, ok := r.distinctives[id]; ok {
		return d, nil
	}
	return nil, apperrors.NotFound("distinctive", nil)
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user", nil)
}

func (r *fakeUserRepo) GetByCompany(ctx context.Context, companyID uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.CompanyID != nil && *u.CompanyID == companyID {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("no user for company", nil)
}

func (r *fakeUserRepo) ListNotifiable(ctx context.Context, role model.Role, countryID *uuid.UUID) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) HasRoleInCountry(ctx context.Context, userID uuid.UUID, role model.Role, countryID uuid.UUID) (bool, error) {
	u, ok := r.users[userID]
	return ok && u.Role == role && u.CountryID == countryID, nil
}

type fakeVerifier struct {
	allowed bool
}

func (v *fakeVerifier) CanAssignAuditorToCompany(ctx context.Context, auditorID, companyID uuid.UUID) (bool, error) {
	return v.allowed, nil
}

type fixture struct {
	svc       *Service
	processes *fakeProcessRepo
	companies *fakeCompanyRepo
	quests    *fakeQuestionnaireRepo
	gradings  *fakeGradingRepo
	badges    *fakeDistinctiveRepo
	users     *fakeUserRepo
	verifier  *fakeVerifier
}

func newFixture() *fixture {
	f := &fixture{
		processes: newFakeProcessRepo(),
		companies: &fakeCompanyRepo{companies: make(map[uuid.UUID]*model.Company)},
		quests: &fakeQuestionnaireRepo{
			questionnaires: make(map[uuid.UUID]*model.Questionnaire),
			items:          make(map[uuid.UUID][]*model.QuestionnaireItem),
			byProcess:      make(map[uuid.UUID]*model.Questionnaire),
		},
		gradings: &fakeGradingRepo{records: make(map[uuid.UUID]*model.GradingRecord)},
		badges:   &fakeDistinctiveRepo{distinctives: make(map[uuid.UUID]*model.Distinctive)},
		users:    &fakeUserRepo{users: make(map[uuid.UUID]*model.User)},
		verifier: &fakeVerifier{},
	}
	f.svc = NewService(f.processes, f.companies, f.quests, f.gradings, f.badges, f.users, f.verifier, logger.NewLogger(nil), testMetrics)
	return f
}

func (f *fixture) addCompany(countryID uuid.UUID) *model.Company {
	company := &model.Company{ID: uuid.New(), CountryID: countryID, Name: "Hotel Miravalle", Email: "front@miravalle.example"}
	f.companies.companies[company.ID] = company
	return company
}

func (f *fixture) addProcess(companyID uuid.UUID, status model.Status) *model.CertificationProcess {
	process := &model.CertificationProcess{
		ID:         uuid.New(),
		CompanyID:  companyID,
		Status:     status,
		StartDate:  time.Now(),
		CaseNumber: "CP-2026-TEST0001",
	}
	f.processes.processes[process.ID] = process
	f.processes.latest[companyID] = process
	if process.Active() {
		f.processes.active[companyID] = process
	}
	return process
}

func (f *fixture) addUser(role model.Role, countryID uuid.UUID) *model.User {
	user := &model.User{ID: uuid.New(), Role: role, CountryID: countryID, Active: true, NotifyByEmail: true}
	f.users.users[user.ID] = user
	return user
}

func manager(countryID uuid.UUID) model.Actor {
	return model.Actor{ID: uuid.New(), CountryID: countryID, Role: model.RoleCountryTechnician, Language: model.LanguageSpanish}
}

func admin() model.Actor {
	return model.Actor{ID: uuid.New(), Role: model.RoleAdmin, Language: model.LanguageSpanish}
}

func TestBeginProcess(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)

	process, err := f.svc.BeginProcess(context.Background(), company.ID, nil, manager(country))
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitial, process.Status)
	assert.NotEmpty(t, process.CaseNumber)
	require.Len(t, f.processes.events, 1)
	assert.Equal(t, int(model.StatusInitial), f.processes.events[0].Reason)
}

func TestBeginProcessWithAdvisorStartsForConsulting(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	advisor := f.addUser(model.RoleAdvisor, country)

	process, err := f.svc.BeginProcess(context.Background(), company.ID, &advisor.ID, manager(country))
	require.NoError(t, err)
	assert.Equal(t, model.StatusForConsulting, process.Status)
	require.NotNil(t, process.AssignedAdvisorID)
	assert.Equal(t, advisor.ID, *process.AssignedAdvisorID)
}

func TestBeginProcessRejectsSecondActive(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	f.addProcess(company.ID, model.StatusConsultancyUnderway)

	_, err := f.svc.BeginProcess(context.Background(), company.ID, nil, manager(country))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidCompanyState))
}

func TestBeginProcessRejectsUnauthorizedRole(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleAdvisor}
	_, err := f.svc.BeginProcess(context.Background(), company.ID, nil, actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestStartConsultancy(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusForConsulting)
	advisor := f.addUser(model.RoleAdvisor, country)

	actor := model.Actor{ID: advisor.ID, CountryID: country, Role: model.RoleAdvisor}
	updated, err := f.svc.StartConsultancy(context.Background(), process.ID, advisor.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConsultancyUnderway, updated.Status)
}

func TestStartConsultancyWrongStatus(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusAuditingUnderway)

	_, err := f.svc.StartConsultancy(context.Background(), process.ID, uuid.New(), manager(country))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))
}

func TestFinishQuestionnaireIncomplete(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusConsultancyUnderway)

	q := &model.Questionnaire{ID: uuid.New(), ProcessID: process.ID, CompanyID: company.ID}
	f.quests.questionnaires[q.ID] = q
	score := 90
	f.quests.items[q.ID] = []*model.QuestionnaireItem{
		{Mandatory: true, Result: &score},
		{Mandatory: true},
		{Mandatory: false},
	}

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleAdvisor}
	_, err := f.svc.FinishQuestionnaire(context.Background(), q.ID, actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrIncompleteQuestionnaire))
}

func TestFinishQuestionnaireAdvisor(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusConsultancyUnderway)

	q := &model.Questionnaire{ID: uuid.New(), ProcessID: process.ID, CompanyID: company.ID}
	f.quests.questionnaires[q.ID] = q
	score := 90
	f.quests.items[q.ID] = []*model.QuestionnaireItem{{Mandatory: true, Result: &score}}

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleAdvisor}
	processID, err := f.svc.FinishQuestionnaire(context.Background(), q.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, process.ID, processID)

	stored, err := f.processes.Get(context.Background(), process.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConsultancyCompleted, stored.Status)
}

func TestFinishQuestionnaireAuditorAcceptsNotApplicable(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusAuditingUnderway)

	q := &model.Questionnaire{ID: uuid.New(), ProcessID: process.ID, CompanyID: company.ID}
	f.quests.questionnaires[q.ID] = q
	f.quests.items[q.ID] = []*model.QuestionnaireItem{{Mandatory: true, NotApplicable: true}}

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleAuditor}
	_, err := f.svc.FinishQuestionnaire(context.Background(), q.ID, actor)
	require.NoError(t, err)

	stored, err := f.processes.Get(context.Background(), process.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAuditCompleted, stored.Status)
}

func TestAssignAuditorFromForAuditing(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusForAuditing)
	auditor := f.addUser(model.RoleAuditor, country)

	date := time.Now().AddDate(0, 0, 14)
	updated, err := f.svc.AssignAuditor(context.Background(), process.ID, auditor.ID, date, manager(country))
	require.NoError(t, err)
	assert.Equal(t, model.StatusAuditingUnderway, updated.Status)
	require.NotNil(t, updated.AssignedAuditorID)
	assert.Equal(t, auditor.ID, *updated.AssignedAuditorID)
}

func TestAssignAuditorReschedule(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusAuditingUnderway)
	auditor := f.addUser(model.RoleAuditor, country)

	updated, err := f.svc.AssignAuditor(context.Background(), process.ID, auditor.ID, time.Now().AddDate(0, 1, 0), manager(country))
	require.NoError(t, err)
	assert.Equal(t, model.StatusAuditingUnderway, updated.Status)
}

func TestAssignForeignAuditorRequiresApproval(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	otherCountry := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusForAuditing)
	foreign := f.addUser(model.RoleAuditor, otherCountry)

	_, err := f.svc.AssignAuditor(context.Background(), process.ID, foreign.ID, time.Now(), manager(country))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))

	f.verifier.allowed = true
	updated, err := f.svc.AssignAuditor(context.Background(), process.ID, foreign.ID, time.Now(), manager(country))
	require.NoError(t, err)
	assert.Equal(t, model.StatusAuditingUnderway, updated.Status)
}

func TestChangeAuditorKeepsStatus(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusAuditingUnderway)
	replacement := f.addUser(model.RoleAuditor, country)

	updated, err := f.svc.ChangeAuditor(context.Background(), process.ID, replacement.ID, true, "auditor unavailable", manager(country))
	require.NoError(t, err)
	assert.Equal(t, model.StatusAuditingUnderway, updated.Status)

	require.Len(t, f.processes.events, 1)
	assert.Equal(t, model.ReasonChangeAuditor, f.processes.events[0].Reason)
}

func TestChangeAuditorRejectsWrongRole(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusAuditingUnderway)
	advisor := f.addUser(model.RoleAdvisor, country)

	_, err := f.svc.ChangeAuditor(context.Background(), process.ID, advisor.ID, true, "swap", manager(country))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestEnterCommitteeReviewIdempotent(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusAuditCompleted)

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleCommittee}
	updated, err := f.svc.EnterCommitteeReview(context.Background(), process.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderCommitteeReview, updated.Status)

	again, err := f.svc.EnterCommitteeReview(context.Background(), process.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderCommitteeReview, again.Status)
	assert.Len(t, f.processes.events, 1, "the no-op repeat emits no event")
}

func TestSaveGradingApproved(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusUnderCommitteeReview)

	badge := &model.Distinctive{ID: uuid.New(), Name: "Gold", ValidityYears: 3}
	f.badges.distinctives[badge.ID] = badge

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleCommittee}
	updated, err := f.svc.SaveGrading(context.Background(), process.ID, badge.ID, true, "D-2026-044", "all criteria met", actor)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	require.NotNil(t, updated.ExpirationDate)

	wantYear := time.Now().AddDate(3, 0, 0).Year()
	assert.Equal(t, wantYear, updated.ExpirationDate.Year())

	_, err = f.processes.GetActiveByCompany(context.Background(), company.ID)
	require.Error(t, err, "completed process frees the active slot")
}

func TestSaveGradingRejectedStillCompletes(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusUnderCommitteeReview)

	badge := &model.Distinctive{ID: uuid.New(), Name: "Gold", ValidityYears: 3}
	f.badges.distinctives[badge.ID] = badge

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleCommittee}
	updated, err := f.svc.SaveGrading(context.Background(), process.ID, badge.ID, false, "D-2026-045", "criteria not met", actor)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.Nil(t, updated.ExpirationDate, "no badge on rejection")
}

func TestSaveGradingWrongStatus(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusAuditingUnderway)

	actor := model.Actor{ID: uuid.New(), CountryID: country, Role: model.RoleCommittee}
	_, err := f.svc.SaveGrading(context.Background(), process.ID, uuid.New(), true, "D-1", "", actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))
}

func TestReopenQuestionnaireLegs(t *testing.T) {
	cases := []struct {
		from model.Status
		to   model.Status
	}{
		{model.StatusConsultancyCompleted, model.StatusConsultancyUnderway},
		{model.StatusForAuditing, model.StatusConsultancyUnderway},
		{model.StatusAuditCompleted, model.StatusAuditingUnderway},
		{model.StatusUnderCommitteeReview, model.StatusAuditingUnderway},
		{model.StatusCompleted, model.StatusAuditingUnderway},
	}

	for _, tc := range cases {
		f := newFixture()
		country := uuid.New()
		company := f.addCompany(country)
		process := f.addProcess(company.ID, tc.from)

		updated, err := f.svc.ReopenQuestionnaire(context.Background(), process.ID, admin())
		require.NoError(t, err, "from %d", tc.from)
		assert.Equal(t, tc.to, updated.Status, "from %d", tc.from)
	}
}

func TestReopenClearsQuestionnaireCompletion(t *testing.T) {
	now := time.Now()
	score := 87.5

	t.Run("consultancy leg clears the visit date", func(t *testing.T) {
		f := newFixture()
		country := uuid.New()
		company := f.addCompany(country)
		process := f.addProcess(company.ID, model.StatusConsultancyCompleted)
		f.quests.byProcess[process.ID] = &model.Questionnaire{ID: uuid.New(), ProcessID: process.ID, VisitDate: &now}

		_, err := f.svc.ReopenQuestionnaire(context.Background(), process.ID, admin())
		require.NoError(t, err)

		written := f.processes.lastWrite.Questionnaire
		require.NotNil(t, written, "the questionnaire update rides the same transaction")
		assert.Nil(t, written.VisitDate)
	})

	t.Run("audit leg clears the review date and result", func(t *testing.T) {
		f := newFixture()
		country := uuid.New()
		company := f.addCompany(country)
		process := f.addProcess(company.ID, model.StatusAuditCompleted)
		f.quests.byProcess[process.ID] = &model.Questionnaire{
			ID: uuid.New(), ProcessID: process.ID,
			VisitDate: &now, AuditorReviewDate: &now, Result: &score,
		}

		_, err := f.svc.ReopenQuestionnaire(context.Background(), process.ID, admin())
		require.NoError(t, err)

		written := f.processes.lastWrite.Questionnaire
		require.NotNil(t, written)
		assert.Nil(t, written.AuditorReviewDate)
		assert.Nil(t, written.Result)
		assert.NotNil(t, written.VisitDate, "the consultancy completion stays")
	})
}

func TestReopenQuestionnaireAdminOnly(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusCompleted)

	_, err := f.svc.ReopenQuestionnaire(context.Background(), process.ID, manager(country))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestReopenQuestionnaireInvalidFrom(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusInitial)

	_, err := f.svc.ReopenQuestionnaire(context.Background(), process.ID, admin())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))
}

func TestConvertToRecertification(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	f.addProcess(company.ID, model.StatusCompleted)

	process, err := f.svc.ConvertToRecertification(context.Background(), company.ID, manager(country))
	require.NoError(t, err)
	assert.True(t, process.IsRecertification)
	assert.Equal(t, model.StatusInitial, process.Status)
}

func TestConvertToRecertificationRequiresCompleted(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	f.addProcess(company.ID, model.StatusAuditingUnderway)

	_, err := f.svc.ConvertToRecertification(context.Background(), company.ID, manager(country))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidCompanyState))
}

func TestChangeStatusDirect(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusInitial)

	updated, err := f.svc.ChangeStatusDirect(context.Background(), process.ID, model.StatusForAuditing, admin())
	require.NoError(t, err)
	assert.Equal(t, model.StatusForAuditing, updated.Status)
}

func TestChangeStatusDirectRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusInitial)

	_, err := f.svc.ChangeStatusDirect(context.Background(), process.ID, model.Status(99), admin())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestChangeStatusDirectToCompletedNeedsGrading(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)
	process := f.addProcess(company.ID, model.StatusUnderCommitteeReview)

	_, err := f.svc.ChangeStatusDirect(context.Background(), process.ID, model.StatusCompleted, admin())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))

	f.gradings.records[process.ID] = &model.GradingRecord{ID: uuid.New(), ProcessID: process.ID, Approved: true}
	updated, err := f.svc.ChangeStatusDirect(context.Background(), process.ID, model.StatusCompleted, admin())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
}

func TestTransitionsAreAttributed(t *testing.T) {
	f := newFixture()
	country := uuid.New()
	company := f.addCompany(country)

	actor := manager(country)
	process, err := f.svc.BeginProcess(context.Background(), company.ID, nil, actor)
	require.NoError(t, err)

	logs, err := f.svc.ListTransitions(context.Background(), process.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, actor.ID, logs[0].ActorID)
	assert.Equal(t, "begin_process", logs[0].Action)
}
