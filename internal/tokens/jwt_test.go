package tokens

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "velvet/pkg/domain-errors"
)

func TestRoundTrip(t *testing.T) {
	svc := NewJWTService("test-signing-key", "velvet", "velvet-api")
	actorID := uuid.New()

	token, err := svc.GenerateAccessToken(actorID, "moderator", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actorID.String(), claims.ActorID)
	assert.Equal(t, "moderator", claims.Role)
}

func TestExpiredToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "velvet", "velvet-api")

	token, err := svc.GenerateAccessToken(uuid.New(), "user", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWrongKey(t *testing.T) {
	minter := NewJWTService("key-one", "velvet", "velvet-api")
	validator := NewJWTService("key-two", "velvet", "velvet-api")

	token, err := minter.GenerateAccessToken(uuid.New(), "user", time.Minute)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestGarbageToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "velvet", "velvet-api")

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
