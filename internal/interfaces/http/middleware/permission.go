package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pharmapos/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionChecker builds resource:action guards that log denials
type PermissionChecker struct {
	logger *zap.Logger
}

// NewPermissionChecker creates a PermissionChecker; logger may be nil
func NewPermissionChecker(logger *zap.Logger) *PermissionChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionChecker{logger: logger}
}

// Require allows the request when the caller holds the permission
func (p *PermissionChecker) Require(permission string) gin.HandlerFunc {
	return p.RequireAny(permission)
}

// RequireAny allows the request when the caller holds at least one permission
func (p *PermissionChecker) RequireAny(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !claims.HasAnyPermission(permissions...) {
			p.deny(c, permissions)
			return
		}
		c.Next()
	}
}

// RequireAll allows the request only when the caller holds every permission
func (p *PermissionChecker) RequireAll(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !claims.HasAllPermissions(permissions...) {
			p.deny(c, permissions)
			return
		}
		c.Next()
	}
}

func (p *PermissionChecker) deny(c *gin.Context, required []string) {
	p.logger.Warn("Permission denied",
		zap.String("user_id", GetJWTUserID(c)),
		zap.String("role", GetJWTRole(c)),
		zap.Strings("required_permissions", required),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access denied: insufficient permissions")
}

// RequirePermission is Require on a checker without logging
func RequirePermission(permission string) gin.HandlerFunc {
	return NewPermissionChecker(nil).Require(permission)
}

// HasPermission checks a permission inside a handler
func HasPermission(c *gin.Context, permission string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasPermission(permission)
}
