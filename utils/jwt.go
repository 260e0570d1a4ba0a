package utils

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/policy"
)

func ExtractToken(c *gin.Context) string {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}

func ParseToken(tokenString string, config *config.EnvConfig) (*jwt.Token, error) {
	secret := []byte(config.JWT.SecretKey)
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{config.JWT.Algorithm}))
}

// IdentityFromClaims builds the caller triple from token claims. The role
// claim is optional ("permission" is accepted for older tokens); a missing
// role defaults to user.
func IdentityFromClaims(claims jwt.MapClaims) (policy.Identity, error) {
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return policy.Identity{}, errors.New("invalid user_id format")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return policy.Identity{}, errors.New("invalid user_id format")
	}

	identity := policy.Identity{UserID: userID, Role: policy.RoleUser}
	if name, ok := claims["display_name"].(string); ok {
		identity.DisplayName = name
	} else if name, ok := claims["username"].(string); ok {
		identity.DisplayName = name
	}

	rawRole, ok := claims["role"].(string)
	if !ok {
		rawRole, ok = claims["permission"].(string)
	}
	if ok && rawRole != "" {
		role, err := policy.ParseRole(rawRole)
		if err != nil {
			return policy.Identity{}, err
		}
		identity.Role = role
	}
	return identity, nil
}

const identityKey = "identity"

func InjectIdentityToContext(c *gin.Context, identity policy.Identity) {
	c.Set(identityKey, identity)
	c.Set("user_id", identity.UserID.String())
}

func GetIdentityFromContext(c *gin.Context) (policy.Identity, error) {
	v, ok := c.Get(identityKey)
	if !ok {
		return policy.Identity{}, errors.New("identity is missing from context")
	}
	identity, ok := v.(policy.Identity)
	if !ok {
		return policy.Identity{}, errors.New("invalid identity type in context")
	}
	return identity, nil
}
