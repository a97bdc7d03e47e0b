package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/auth"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := auth.NewJWTService(auth.JWTConfig{})
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, err := auth.NewJWTService(auth.JWTConfig{SecretKey: "topsecret", Issuer: "taskforge", TokenExpiry: time.Hour})
	require.NoError(t, err)

	token, err := svc.GenerateToken("u1", "alice", auth.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, err := auth.NewJWTService(auth.JWTConfig{SecretKey: "topsecret", Issuer: "taskforge", TokenExpiry: -time.Minute})
	require.NoError(t, err)

	token, err := svc.GenerateToken("u1", "alice", auth.RoleViewer)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, err := auth.NewJWTService(auth.JWTConfig{SecretKey: "topsecret", Issuer: "taskforge", TokenExpiry: time.Hour})
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRoleHasPermission(t *testing.T) {
	assert.True(t, auth.RoleAdmin.HasPermission(auth.RoleViewer))
	assert.False(t, auth.RoleViewer.HasPermission(auth.RoleAdmin))
}
