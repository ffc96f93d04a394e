package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
)

const customAccountLabel = "admin"

// Resolver computes the recipient set for one notification: the
// template's role groups, the process's own assignees, the operator's
// custom accounts, and the company-facing audience. Templates and role
// bindings change rarely, so both sit behind a short-lived cache.
type Resolver struct {
	templates repository.TemplateRepository
	users     repository.UserRepository
	cache     *gocache.Cache
	logger    *logger.Logger
}

func NewResolver(templates repository.TemplateRepository, users repository.UserRepository, logger *logger.Logger) *Resolver {
	return &Resolver{
		templates: templates,
		users:     users,
		cache:     gocache.New(10*time.Minute, 30*time.Minute),
		logger:    logger,
	}
}

// Template loads the template for a reason code, consulting the cache
// first.
func (r *Resolver) Template(ctx context.Context, reason int) (*model.NotificationTemplate, error) {
	key := fmt.Sprintf("template:%d", reason)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*model.NotificationTemplate), nil
	}

	template, err := r.templates.GetByReason(ctx, reason)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, template)
	return template, nil
}

func (r *Resolver) groupRoles(ctx context.Context, templateID uuid.UUID) ([]model.Role, error) {
	key := "roles:" + templateID.String()
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]model.Role), nil
	}

	roles, err := r.templates.GetGroupRoles(ctx, templateID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, roles)
	return roles, nil
}

// Resolve computes the deduplicated recipient set for a template applied
// to one process and its company. The result is deterministic for a
// fixed data snapshot.
func (r *Resolver) Resolve(ctx context.Context, template *model.NotificationTemplate, process *model.CertificationProcess, company *model.Company) (*model.RecipientSet, error) {
	set := &model.RecipientSet{}
	seen := make(map[string]struct{})

	addInternal := func(rec model.Recipient) {
		key := strings.ToLower(rec.Email)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		set.Internal = append(set.Internal, rec)
	}

	roles, err := r.groupRoles(ctx, template.ID)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		// Admin recipients are global; every other role is scoped to
		// the company's country.
		countryID := &company.CountryID
		if role == model.RoleAdmin {
			countryID = nil
		}
		users, err := r.users.ListNotifiable(ctx, role, countryID)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			addInternal(userRecipient(user))
		}
	}

	// The assigned advisor and auditor always hear about their process,
	// whether or not their role is bound to the template.
	if process != nil {
		for _, assigned := range []*uuid.UUID{process.AssignedAdvisorID, process.AssignedAuditorID} {
			if assigned == nil {
				continue
			}
			user, err := r.users.Get(ctx, *assigned)
			if err != nil {
				if apperrors.IsCode(err, apperrors.ErrNotFound) {
					continue
				}
				return nil, err
			}
			if user.Active {
				addInternal(userRecipient(user))
			}
		}
	}

	accounts, err := r.templates.ListCustomAccounts(ctx, company.CountryID)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		addInternal(model.Recipient{
			Name:      account.DisplayName,
			Email:     account.Email,
			RoleLabel: customAccountLabel,
			Language:  model.LanguageSpanish,
		})
	}

	companyUser, err := r.users.GetByCompany(ctx, company.ID)
	switch {
	case err == nil:
		set.Company = append(set.Company, userRecipient(companyUser))
	case apperrors.IsCode(err, apperrors.ErrNotFound):
		// No representative user: the company's direct address still
		// gets a copy, delivered with the internal batch.
		if company.Email != "" {
			addInternal(model.Recipient{
				Name:      company.Name,
				Email:     company.Email,
				RoleLabel: model.RoleCompany.String(),
				Language:  model.LanguageSpanish,
			})
		}
	default:
		return nil, err
	}

	if company.SecondaryEmail != nil && *company.SecondaryEmail != "" {
		set.SecondaryCompanyEmail = *company.SecondaryEmail
	}

	return set, nil
}

func userRecipient(user *model.User) model.Recipient {
	id := user.ID
	return model.Recipient{
		UserID:    &id,
		Name:      user.Name,
		Email:     user.Email,
		RoleLabel: user.Role.String(),
		Language:  user.Language,
	}
}

// recertify rewrites a template's texts for a re-certification process.
// A targeted substitution in both languages, not a separate template.
func recertify(template *model.NotificationTemplate) *model.NotificationTemplate {
	replacer := strings.NewReplacer(
		"certification", "re-certification",
		"Certification", "Re-certification",
		"certificación", "re-certificación",
		"Certificación", "Re-certificación",
	)
	copied := *template
	copied.InternalTitleES = replacer.Replace(copied.InternalTitleES)
	copied.InternalTitleEN = replacer.Replace(copied.InternalTitleEN)
	copied.InternalBodyES = replacer.Replace(copied.InternalBodyES)
	copied.InternalBodyEN = replacer.Replace(copied.InternalBodyEN)
	copied.CompanyTitleES = replacer.Replace(copied.CompanyTitleES)
	copied.CompanyTitleEN = replacer.Replace(copied.CompanyTitleEN)
	copied.CompanyBodyES = replacer.Replace(copied.CompanyBodyES)
	copied.CompanyBodyEN = replacer.Replace(copied.CompanyBodyEN)
	return &copied
}
