package process

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/handler"
	"github.com/turicert/cert-api/internal/middleware"
	"github.com/turicert/cert-api/internal/model"
	processsvc "github.com/turicert/cert-api/internal/service/process"
	querysvc "github.com/turicert/cert-api/internal/service/query"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
)

type Handler struct {
	service  *processsvc.Service
	queries  *querysvc.Service
	logger   *logger.Logger
	validate *validator.Validate
}

func NewHandler(service *processsvc.Service, queries *querysvc.Service, logger *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		queries:  queries,
		logger:   logger,
		validate: validator.New(),
	}
}

type beginProcessRequest struct {
	AdvisorID *uuid.UUID `json:"advisor_id,omitempty"`
}

type startConsultancyRequest struct {
	AdvisorID uuid.UUID `json:"advisor_id" validate:"required"`
}

type assignAuditorRequest struct {
	AuditorID uuid.UUID `json:"auditor_id" validate:"required"`
	AuditDate time.Time `json:"audit_date" validate:"required"`
}

type changeAssignmentRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	IsAuditor bool      `json:"is_auditor"`
	Reason    string    `json:"reason" validate:"required"`
}

type saveGradingRequest struct {
	DistinctiveID uuid.UUID `json:"distinctive_id" validate:"required"`
	Approved      bool      `json:"approved"`
	DictamenNo    string    `json:"dictamen_no" validate:"required"`
	Observations  string    `json:"observations"`
}

type changeStatusRequest struct {
	Status int `json:"status"`
}

func (h *Handler) actor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		handler.RespondError(c, apperrors.Unauthorized("missing authentication"))
	}
	return actor, ok
}

func (h *Handler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid id in path", err))
		return uuid.Nil, false
	}
	return id, true
}

// BeginProcess opens a certification cycle for a company. An advisor in
// the payload starts the process at ForConsulting instead of Initial.
func (h *Handler) BeginProcess(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	companyID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req beginProcessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
			return
		}
	}

	process, err := h.service.BeginProcess(c.Request.Context(), companyID, req.AdvisorID, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(process))
}

// ConvertToRecertification opens a re-certification cycle once the
// company's latest process has completed.
func (h *Handler) ConvertToRecertification(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	companyID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	process, err := h.service.ConvertToRecertification(c.Request.Context(), companyID, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(process))
}

func (h *Handler) StartConsultancy(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req startConsultancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("validation failed", err))
		return
	}

	process, err := h.service.StartConsultancy(c.Request.Context(), processID, req.AdvisorID, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(process))
}

// CanFinalize previews the completeness check without side effects.
func (h *Handler) CanFinalize(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	questionnaireID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	finalize, err := h.service.CanFinalize(c.Request.Context(), questionnaireID, actor.Role)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"can_finalize": finalize}))
}

func (h *Handler) FinishQuestionnaire(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	questionnaireID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	processID, err := h.service.FinishQuestionnaire(c.Request.Context(), questionnaireID, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"process_id": processID}))
}

func (h *Handler) AssignAuditor(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req assignAuditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("validation failed", err))
		return
	}

	process, err := h.service.AssignAuditor(c.Request.Context(), processID, req.AuditorID, req.AuditDate, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(process))
}

// ChangeAssignment swaps the assigned advisor or auditor mid-process
// without moving the status.
func (h *Handler) ChangeAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req changeAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("validation failed", err))
		return
	}

	process, err := h.service.ChangeAuditor(c.Request.Context(), processID, req.UserID, req.IsAuditor, req.Reason, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(process))
}

func (h *Handler) EnterCommitteeReview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	process, err := h.service.EnterCommitteeReview(c.Request.Context(), processID, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(process))
}

func (h *Handler) SaveGrading(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req saveGradingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("validation failed", err))
		return
	}

	process, err := h.service.SaveGrading(c.Request.Context(), processID,
		req.DistinctiveID, req.Approved, req.DictamenNo, req.Observations, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(process))
}

func (h *Handler) ReopenQuestionnaire(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	process, err := h.service.ReopenQuestionnaire(c.Request.Context(), processID, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(process))
}

// ChangeStatus is the administrative override endpoint.
func (h *Handler) ChangeStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	process, err := h.service.ChangeStatusDirect(c.Request.Context(), processID, model.Status(req.Status), actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(process))
}

func (h *Handler) ListTransitions(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	processID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	transitions, err := h.service.ListTransitions(c.Request.Context(), processID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(transitions))
}

// List answers the role-scoped company listing with optional filters.
func (h *Handler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter model.ProcessFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid query parameters", err))
		return
	}

	page, err := h.queries.ListVisibleProcesses(c.Request.Context(), actor, filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	companies := r.Group("/companies")
	{
		companies.POST("/:id/processes", h.BeginProcess)
		companies.POST("/:id/recertification", h.ConvertToRecertification)
	}

	processes := r.Group("/processes")
	{
		processes.GET("", h.List)
		processes.GET("/:id/transitions", h.ListTransitions)
		processes.POST("/:id/consultancy", h.StartConsultancy)
		processes.POST("/:id/auditor", h.AssignAuditor)
		processes.PUT("/:id/assignment", h.ChangeAssignment)
		processes.POST("/:id/committee-review", h.EnterCommitteeReview)
		processes.POST("/:id/grading", h.SaveGrading)
		processes.POST("/:id/reopen", h.ReopenQuestionnaire)
		processes.PUT("/:id/status", h.ChangeStatus)
	}

	questionnaires := r.Group("/questionnaires")
	{
		questionnaires.GET("/:id/can-finalize", h.CanFinalize)
		questionnaires.POST("/:id/finish", h.FinishQuestionnaire)
	}
}
