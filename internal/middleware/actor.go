package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// ContextActorKey is the gin context key storing the resolved *models.Actor.
const ContextActorKey = "currentActor"

type profileLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}

// LoadActor resolves the request identity from JWT claims plus the caller's profile.
// Requests without claims carry a nil actor. A missing profile leaves the actor
// without faculty rights or department.
func LoadActor(profiles profileLookup, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.Next()
			return
		}
		actor := &models.Actor{
			UserID:      claims.UserID,
			Email:       claims.Email,
			Username:    claims.Username,
			IsStaff:     claims.IsStaff,
			IsSuperuser: claims.IsSuperuser,
		}
		if profiles != nil {
			profile, err := profiles.FindByUserID(c.Request.Context(), claims.UserID)
			switch {
			case err == nil:
				actor.IsFaculty = profile.IsFaculty
				actor.DepartmentID = profile.DepartmentID
			case errors.Is(err, sql.ErrNoRows):
			default:
				logger.Warn("profile lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
			}
		}
		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// Actor returns the resolved actor, or nil for anonymous requests.
func Actor(c *gin.Context) *models.Actor {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return nil
	}
	actor, _ := value.(*models.Actor)
	return actor
}
