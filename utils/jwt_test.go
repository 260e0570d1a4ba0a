package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnqbao/gau-asset-service/config"
	"github.com/tnqbao/gau-asset-service/policy"
)

func TestIdentityFromClaims(t *testing.T) {
	id := uuid.New()

	identity, err := IdentityFromClaims(jwt.MapClaims{"user_id": id.String(), "display_name": "Ana", "role": "Admin"})
	require.NoError(t, err)
	assert.Equal(t, policy.Identity{UserID: id, DisplayName: "Ana", Role: policy.RoleAdmin}, identity)

	identity, err = IdentityFromClaims(jwt.MapClaims{"user_id": id.String(), "username": "ana", "permission": "viewer"})
	require.NoError(t, err)
	assert.Equal(t, "ana", identity.DisplayName)
	assert.Equal(t, policy.RoleViewer, identity.Role)

	identity, err = IdentityFromClaims(jwt.MapClaims{"user_id": id.String()})
	require.NoError(t, err)
	assert.Equal(t, policy.RoleUser, identity.Role)

	_, err = IdentityFromClaims(jwt.MapClaims{"user_id": id.String(), "role": "root"})
	assert.Error(t, err)

	_, err = IdentityFromClaims(jwt.MapClaims{"user_id": "not-a-uuid"})
	assert.Error(t, err)

	_, err = IdentityFromClaims(jwt.MapClaims{})
	assert.Error(t, err)
}

func TestParseToken(t *testing.T) {
	cfg := &config.EnvConfig{}
	cfg.JWT.SecretKey = "signing-secret"
	cfg.JWT.Algorithm = "HS256"

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("signing-secret"))
	require.NoError(t, err)

	token, err := ParseToken(signed, cfg)
	require.NoError(t, err)
	assert.True(t, token.Valid)

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": uuid.NewString()}).
		SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = ParseToken(wrongKey, cfg)
	assert.Error(t, err)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": uuid.NewString()}).
		SignedString([]byte("signing-secret"))
	require.NoError(t, err)
	_, err = ParseToken(otherAlg, cfg)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", ExtractToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
	c.Request.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "from-cookie", ExtractToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Basic Zm9v")
	assert.Empty(t, ExtractToken(c))
}
