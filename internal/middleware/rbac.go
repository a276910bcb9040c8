package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return rbac("", roles)
}

// RequireSelfOrRoles also admits a caller whose user ID equals the path parameter param.
func RequireSelfOrRoles(param string, roles ...models.Role) gin.HandlerFunc {
	return rbac(param, roles)
}

func rbac(selfParam string, roles []models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if selfParam != "" && c.Param(selfParam) != "" && c.Param(selfParam) == claims.UserID {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
	}
}
