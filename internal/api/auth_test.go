package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserIdContext(t *testing.T) {
	ctx := context.Background()

	_, ok := UserId(ctx)
	assert.False(t, ok, "expected no user id on a fresh context")

	ctx = WithUserId(ctx, 42)
	userId, ok := UserId(ctx)
	assert.True(t, ok, "expected user id to be present")
	assert.Equal(t, 42, userId, "expected the stored user id")
}

func TestJwtRoundTrip(t *testing.T) {
	app := &App{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession(7, time.Hour)
	assert.NoError(t, err, "expected no error creating token")
	assert.NotEmpty(t, token, "expected a signed token")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected no error verifying token")
	assert.Equal(t, 7, userId, "expected the user id claim to round trip")
}

func TestJwtRejectsExpiredToken(t *testing.T) {
	app := &App{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession(7, -time.Hour)
	assert.NoError(t, err, "expected no error creating token")

	_, err = app.extractUserIdFromToken(token)
	assert.Error(t, err, "expected an expired token to be rejected")
}

func TestJwtRejectsWrongKey(t *testing.T) {
	app := &App{signingKey: []byte("test-signing-key")}
	other := &App{signingKey: []byte("another-key")}

	token, err := app.createJwtForSession(7, time.Hour)
	assert.NoError(t, err, "expected no error creating token")

	_, err = other.extractUserIdFromToken(token)
	assert.Error(t, err, "expected a token signed with a different key to be rejected")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("password")
	assert.NoError(t, err, "expected no error hashing password")
	assert.NotEqual(t, "password", hash, "expected the hash to differ from the plaintext")

	assert.True(t, verifyPassword(hash, "password"), "expected the correct password to verify")
	assert.False(t, verifyPassword(hash, "wrong"), "expected an incorrect password to fail")
}
