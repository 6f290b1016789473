package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

const (
	identityKey    = "identity"
	visitorRole    = entity.RoleVisitor
	accountantRole = entity.RoleAccountant
)

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// authMiddleware resolves the bearer token into an identity
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := s.services.Auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// requireRole rejects identities of any other role
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := currentIdentity(c)
		if identity == nil || identity.Role != role {
			abort(c, http.StatusForbidden, "forbidden for this role")
			return
		}
		c.Next()
	}
}

// currentIdentity returns the identity set by authMiddleware
func currentIdentity(c *gin.Context) *entity.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*entity.Identity)
	return identity
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg})
}
