package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"vehicle_import/internal/config"
	"vehicle_import/internal/domain"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/jwt"
	"vehicle_import/pkg/logger"
)

const PrincipalKey = "principal"

type AuthMiddleware struct {
	jwtCfg config.JWTConfig
	log    logger.Logger
}

func NewAuthMiddleware(jwtCfg config.JWTConfig, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtCfg: jwtCfg,
		log:    log,
	}
}

func abortWith(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, apperrors.NewAPIError(err))
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, http.StatusUnauthorized, apperrors.New(apperrors.ErrUnauthorized, "authorization header required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, http.StatusUnauthorized, apperrors.New(apperrors.ErrUnauthorized, "invalid authorization header format"))
			return
		}

		claims, err := jwt.ValidateToken(parts[1], m.jwtCfg.AccessSecret, m.jwtCfg.Issuer)
		if err != nil {
			m.log.Debug("Token rejected", "error", err)
			abortWith(c, http.StatusUnauthorized, apperrors.New(apperrors.ErrUnauthorized, "invalid or expired token"))
			return
		}

		role, ok := domain.ParseRole(claims.Role)
		if !ok {
			abortWith(c, http.StatusUnauthorized, apperrors.New(apperrors.ErrUnauthorized, "unknown role %q", claims.Role))
			return
		}
		if role == domain.RoleCompany && claims.CompanyID == nil {
			abortWith(c, http.StatusUnauthorized, apperrors.New(apperrors.ErrUnauthorized, "company token without company_id"))
			return
		}

		c.Set(PrincipalKey, domain.Principal{
			UserID:    claims.UserID,
			CompanyID: claims.CompanyID,
			Role:      role,
		})
		c.Next()
	}
}

// RequireCapability must run after RequireAuth.
func (m *AuthMiddleware) RequireCapability(capability domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, apperrors.New(apperrors.ErrUnauthorized, "authentication required"))
			return
		}
		if !principal.Role.Can(capability) {
			abortWith(c, http.StatusForbidden, apperrors.Forbidden("role %s cannot %s", principal.Role, capability))
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := v.(domain.Principal)
	return principal, ok
}
