package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/pkg/jwt"
)

// AgentContextKey is the key used to store the agent in Gin context
const AgentContextKey = "agent"

// AgentContext represents the authenticated agency account
type AgentContext struct {
	AgentID     uuid.UUID `json:"agent_id"`
	POS         string    `json:"pos"`
	OnAccount   string    `json:"on_account"`
	CompanyName string    `json:"company_name"`
	Roles       []string  `json:"roles"`
}

// HasRole reports whether the agent holds any of roles
func (a AgentContext) HasRole(roles ...string) bool {
	for _, required := range roles {
		for _, have := range a.Roles {
			if have == required {
				return true
			}
		}
	}
	return false
}

// Agent returns the identity services act on behalf of
func (a AgentContext) Agent() models.Agent {
	return models.Agent{
		ID:          a.AgentID,
		POS:         a.POS,
		OnAccount:   a.OnAccount,
		CompanyName: a.CompanyName,
	}
}

func abortUnauthorized(c *gin.Context, errCode, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   errCode,
		"message": message,
		"code":    code,
	})
}

// AuthMiddleware creates a middleware that validates agent tokens
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := logrus.Fields{
			"path": c.Request.URL.Path,
			"ip":   c.ClientIP(),
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.WithFields(fields).Warn("Auth failed: missing authorization header")
			abortUnauthorized(c, "unauthorized", "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.WithFields(fields).Warn("Auth failed: invalid authorization format")
			abortUnauthorized(c, "unauthorized", "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			logger.WithFields(fields).Warn("Auth failed: empty token")
			abortUnauthorized(c, "unauthorized", "Token cannot be empty", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			fields["error"] = err.Error()
			if errors.Is(err, jwt.ErrTokenExpired) {
				logger.WithFields(fields).Info("Auth failed: token expired")
				abortUnauthorized(c, "token_expired", "Access token has expired", "TOKEN_EXPIRED")
				return
			}
			logger.WithFields(fields).Warn("Auth failed: invalid token")
			abortUnauthorized(c, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			return
		}

		c.Set(AgentContextKey, AgentContext{
			AgentID:     claims.AgentID,
			POS:         claims.POS,
			OnAccount:   claims.OnAccount,
			CompanyName: claims.CompanyName,
			Roles:       claims.Roles,
		})

		c.Next()
	}
}

// RequireRole creates a middleware that checks if the agent has a required role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, exists := GetAgentContext(c)
		if !exists {
			abortUnauthorized(c, "unauthorized", "Agent context not found. Auth middleware may not be applied.", "MISSING_AGENT_CONTEXT")
			return
		}

		if !agent.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "You don't have permission to access this resource",
				"code":    "INSUFFICIENT_PERMISSIONS",
			})
			return
		}

		c.Next()
	}
}

// GetAgentContext retrieves the agent context from Gin context
func GetAgentContext(c *gin.Context) (AgentContext, bool) {
	value, exists := c.Get(AgentContextKey)
	if !exists {
		return AgentContext{}, false
	}

	agent, ok := value.(AgentContext)
	return agent, ok
}

// MustGetAgentContext retrieves the agent context or panics (use only after AuthMiddleware)
func MustGetAgentContext(c *gin.Context) AgentContext {
	agent, exists := GetAgentContext(c)
	if !exists {
		panic("agent context not found - ensure AuthMiddleware is applied")
	}
	return agent
}
