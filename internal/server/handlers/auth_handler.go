package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/pkg/authtoken"
)

const (
	principalKey = "principal"
	claimsKey    = "token_claims"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (authtoken.Claims, error)
}

// Revocations blacklists token ids.
type Revocations interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// PrincipalLoader builds the principal of a user.
type PrincipalLoader interface {
	PrincipalByID(ctx context.Context, userID uint) (access.Principal, error)
}

// AuthHandler authenticates requests and guards routes by permission.
type AuthHandler struct {
	tokens      TokenParser
	revocations Revocations
	users       PrincipalLoader
	logger      *zap.Logger
}

// NewAuthHandler creates the auth handler. revocations may be nil, which
// disables logout.
func NewAuthHandler(tokens TokenParser, revocations Revocations, users PrincipalLoader, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{tokens: tokens, revocations: revocations, users: users, logger: logger}
}

// Authenticate requires a valid bearer token and loads the principal.
func (h *AuthHandler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := h.tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if h.revocations != nil {
			revoked, err := h.revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				h.logger.Error("revocation check failed", zap.String("jti", claims.ID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "cannot verify token"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		p, err := h.users.PrincipalByID(c.Request.Context(), userID)
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInactiveUser) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown or inactive user"})
			return
		}
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.Set(principalKey, p)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Require aborts with 403 unless the principal holds the permission.
func Require(perm access.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).Can(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing permission " + string(perm)})
			return
		}
		c.Next()
	}
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c *gin.Context) {
	p := principal(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":     p.UserID,
		"name":        p.Name,
		"role":        p.Role,
		"farm_ids":    p.FarmIDs,
		"all_farms":   p.AllFarms(),
		"permissions": access.Permissions(p.Role),
	})
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.revocations == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "token revocation is not configured"})
		return
	}
	claims := c.MustGet(claimsKey).(authtoken.Claims)
	if err := h.revocations.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// principal returns the authenticated principal, or a zero principal that
// holds no permission.
func principal(c *gin.Context) access.Principal {
	if v, ok := c.Get(principalKey); ok {
		return v.(access.Principal)
	}
	return access.Principal{}
}
