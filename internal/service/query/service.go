package query

import (
	"context"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
)

// Service answers role-scoped listings: the caller's role and country
// decide the base slice of certification processes, and the user's
// filters narrow it further.
type Service struct {
	processes repository.ProcessRepository
	users     repository.UserRepository
	logger    *logger.Logger
}

func NewService(processes repository.ProcessRepository, users repository.UserRepository, logger *logger.Logger) *Service {
	return &Service{processes: processes, users: users, logger: logger}
}

// ScopeFor derives the visibility pre-filter from the actor. Advisors
// and auditors see their own assignments; country staff and the
// committee see their whole country; admins see everything; a company
// user sees only their own company.
func ScopeFor(ctx context.Context, actor model.Actor, users repository.UserRepository) (model.VisibilityScope, error) {
	var scope model.VisibilityScope

	switch actor.Role {
	case model.RoleAdmin:
		// unrestricted
	case model.RoleAdvisor:
		id := actor.ID
		scope.AdvisorID = &id
	case model.RoleAuditor:
		id := actor.ID
		scope.AuditorID = &id
	case model.RoleCountryTechnician, model.RoleCommittee, model.RoleConsultingFirm, model.RoleAuditFirm:
		country := actor.CountryID
		scope.CountryID = &country
	case model.RoleCompany:
		user, err := users.Get(ctx, actor.ID)
		if err != nil {
			return scope, err
		}
		if user.CompanyID == nil {
			return scope, apperrors.Unauthorized("company user has no company")
		}
		scope.CompanyID = user.CompanyID
	default:
		return scope, apperrors.Unauthorized("unknown role")
	}
	return scope, nil
}

// ListVisibleProcesses returns the company projections the actor may
// see, filtered and paginated.
func (s *Service) ListVisibleProcesses(ctx context.Context, actor model.Actor, filter model.ProcessFilter) (model.Page[model.CompanyProjection], error) {
	scope, err := ScopeFor(ctx, actor, s.users)
	if err != nil {
		return model.Page[model.CompanyProjection]{}, err
	}

	// A country-scoped caller cannot widen the filter beyond their own
	// country; the scope wins over the filter.
	if scope.CountryID != nil && filter.CountryID != nil && *filter.CountryID != *scope.CountryID {
		return model.Page[model.CompanyProjection]{}, apperrors.Unauthorized("country filter outside the caller's scope")
	}

	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.PageSize > 200 {
		filter.PageSize = 200
	}

	page, err := s.processes.ListProjections(ctx, scope, filter)
	if err != nil {
		return page, err
	}

	s.logger.Debug("listed visible processes",
		"role", actor.Role.String(), "count", len(page.Items), "total", page.Total)
	return page, nil
}
