package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	crosscountryhandler "github.com/turicert/cert-api/internal/handler/crosscountry"
	healthhandler "github.com/turicert/cert-api/internal/handler/health"
	notificationhandler "github.com/turicert/cert-api/internal/handler/notification"
	processhandler "github.com/turicert/cert-api/internal/handler/process"
	"github.com/turicert/cert-api/internal/middleware"
	"github.com/turicert/cert-api/pkg/logger"
)

type Handlers struct {
	Process      *processhandler.Handler
	CrossCountry *crosscountryhandler.Handler
	Notification *notificationhandler.Handler
	Health       *healthhandler.Handler
}

// Setup wires the middleware chain and registers every route group.
func Setup(log *logger.Logger, auth *middleware.AuthMiddleware, handlers Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.NewRateLimiter(rate.Limit(50), 100).Handle())

	handlers.Health.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(auth.Authenticate())

	handlers.Process.RegisterRoutes(v1)
	handlers.CrossCountry.RegisterRoutes(v1)
	handlers.Notification.RegisterRoutes(v1)

	return r
}
