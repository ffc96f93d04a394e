package crosscountry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/handler"
	"github.com/turicert/cert-api/internal/middleware"
	"github.com/turicert/cert-api/internal/model"
	crosscountrysvc "github.com/turicert/cert-api/internal/service/crosscountry"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
)

type Handler struct {
	service  *crosscountrysvc.Service
	logger   *logger.Logger
	validate *validator.Validate
}

func NewHandler(service *crosscountrysvc.Service, logger *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) actor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		handler.RespondError(c, apperrors.Unauthorized("missing authentication"))
	}
	return actor, ok
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid id in path", err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req crosscountrysvc.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("validation failed", err))
		return
	}

	request, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(request))
}

func (h *Handler) decision(c *gin.Context) (uuid.UUID, crosscountrysvc.DecisionRequest, model.Actor, bool) {
	var dto crosscountrysvc.DecisionRequest

	actor, ok := h.actor(c)
	if !ok {
		return uuid.Nil, dto, actor, false
	}
	id, ok := h.pathID(c)
	if !ok {
		return uuid.Nil, dto, actor, false
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
			return uuid.Nil, dto, actor, false
		}
	}
	return id, dto, actor, true
}

func (h *Handler) Approve(c *gin.Context) {
	id, dto, actor, ok := h.decision(c)
	if !ok {
		return
	}
	request, err := h.service.Approve(c.Request.Context(), id, dto, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}

func (h *Handler) Reject(c *gin.Context) {
	id, dto, actor, ok := h.decision(c)
	if !ok {
		return
	}
	request, err := h.service.Reject(c.Request.Context(), id, dto, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}

func (h *Handler) Revoke(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	request, err := h.service.Revoke(c.Request.Context(), id, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	request, err := h.service.Cancel(c.Request.Context(), id, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	requests, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/audit-requests")
	{
		requests.GET("", h.List)
		requests.POST("", h.Create)
		requests.POST("/:id/approve", h.Approve)
		requests.POST("/:id/reject", h.Reject)
		requests.POST("/:id/revoke", h.Revoke)
		requests.POST("/:id/cancel", h.Cancel)
	}
}
