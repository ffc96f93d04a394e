package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/config"
	"github.com/turicert/cert-api/internal/handler"
	"github.com/turicert/cert-api/internal/model"
)

const actorKey = "actor"

type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(cfg config.JWTConfig) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(cfg.Secret)}
}

type claims struct {
	jwt.RegisteredClaims
	CountryID string `json:"country_id"`
	Role      string `json:"role"`
	Language  string `json:"lang"`
}

// Authenticate verifies the bearer token and puts the resolved actor in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		var parsed claims
		token, err := jwt.ParseWithClaims(parts[1], &parsed, func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		actor, err := actorFromClaims(&parsed)
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token claims"))
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFromClaims(parsed *claims) (model.Actor, error) {
	var actor model.Actor

	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return actor, err
	}
	countryID, err := uuid.Parse(parsed.CountryID)
	if err != nil {
		return actor, err
	}
	role, err := model.ParseRole(parsed.Role)
	if err != nil {
		return actor, err
	}

	actor.ID = userID
	actor.CountryID = countryID
	actor.Role = role
	actor.Language = model.Language(parsed.Language)
	if actor.Language == "" {
		actor.Language = model.LanguageSpanish
	}
	return actor, nil
}

// Actor retrieves the authenticated actor set by Authenticate.
func Actor(c *gin.Context) (model.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := value.(model.Actor)
	return actor, ok
}
