package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/infra"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/utils"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, token policy.Identity) (policy.Identity, error)
}

// AuthMiddleware verifies the access token, optionally against the remote
// authorization service, and injects the resolved caller identity.
func AuthMiddleware(authService *infra.AuthorizationService, resolver IdentityResolver, config *config.EnvConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := utils.ExtractToken(c)
		if tokenStr == "" {
			tokenStr = c.Query("access_token")
		}
		if tokenStr == "" {
			utils.JSON401(c, "Authorization token is required")
			return
		}

		if authService != nil {
			if err := authService.CheckAccessToken(c.Request.Context(), tokenStr); err != nil {
				utils.JSON401(c, "Invalid or expired token")
				return
			}
		}

		parsedToken, err := utils.ParseToken(tokenStr, config)
		if err != nil || !parsedToken.Valid {
			utils.JSON401(c, "Invalid token")
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok {
			utils.JSON401(c, "Invalid token claims")
			return
		}
		tokenIdentity, err := utils.IdentityFromClaims(claims)
		if err != nil {
			utils.JSON401(c, "Invalid claims")
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), tokenIdentity)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to resolve principal"})
			return
		}

		utils.InjectIdentityToContext(c, identity)
		c.Next()
	}
}
