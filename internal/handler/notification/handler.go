package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/handler"
	"github.com/turicert/cert-api/internal/middleware"
	notificationsvc "github.com/turicert/cert-api/internal/service/notification"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
)

type Handler struct {
	service *notificationsvc.Service
	logger  *logger.Logger
}

func NewHandler(service *notificationsvc.Service, logger *logger.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type sendRequest struct {
	Reason *int `json:"reason,omitempty"`
}

// Send dispatches the notification for a process immediately instead of
// waiting for the outbox worker. Admin and country staff only.
func (h *Handler) Send(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		handler.RespondError(c, apperrors.Unauthorized("missing authentication"))
		return
	}
	if !actor.Role.CanManageProcesses() {
		handler.RespondError(c, apperrors.Unauthorized("role may not send notifications"))
		return
	}

	processID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid id in path", err))
		return
	}

	var req sendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
			return
		}
	}

	outcome, err := h.service.SendNotification(c.Request.Context(), processID, req.Reason, actor.Language, actor.ID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(outcome))
}

// Notified reports whether the user has already been notified for the
// process within the cooldown window.
func (h *Handler) Notified(c *gin.Context) {
	if _, ok := middleware.Actor(c); !ok {
		handler.RespondError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid user id in path", err))
		return
	}
	processID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid id in path", err))
		return
	}

	notified, err := h.service.HasBeenNotified(c.Request.Context(), userID, processID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"notified": notified}))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	processes := r.Group("/processes")
	{
		processes.POST("/:id/notifications", h.Send)
		processes.GET("/:id/notifications/:userId", h.Notified)
	}
}
