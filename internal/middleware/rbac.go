package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

// RequireFlags enforces account flags carried in the access token.
func RequireFlags(allow func(claims *models.JWTClaims) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if !allow(claims) {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, message))
			return
		}
		c.Next()
	}
}

// RequireStaff admits staff and superuser accounts.
func RequireStaff() gin.HandlerFunc {
	return RequireFlags(func(claims *models.JWTClaims) bool {
		return claims.IsStaff || claims.IsSuperuser
	}, "administrator access required")
}

// RequireSuperuser admits superuser accounts only.
func RequireSuperuser() gin.HandlerFunc {
	return RequireFlags(func(claims *models.JWTClaims) bool {
		return claims.IsSuperuser
	}, "superuser access required")
}
