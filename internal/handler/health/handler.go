package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/turicert/cert-api/internal/handler"
)

type Handler struct {
	db *sqlx.DB
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{db: db}
}

// Live answers liveness probes; it never touches dependencies.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "ok"}))
}

// Ready answers readiness probes by pinging the database.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse("database unreachable"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "ready"}))
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Live)
	r.GET("/ready", h.Ready)
}
