package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{
		ID:       42,
		Username: "pasante1",
		Profile:  models.Profile{Role: models.RoleIntern},
	}
}

func TestSessionManager_IssueAndParse(t *testing.T) {
	m := NewSessionManager("secret", time.Hour, cache.NewCacheHelper(nil, "session:"))

	token, issued, err := m.Issue(testUser(), true)
	require.NoError(t, err)

	claims, err := m.Parse(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleIntern, claims.Role)
	assert.True(t, claims.ViewAsUser)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestSessionManager_RejectsForeignSignature(t *testing.T) {
	other := NewSessionManager("other-secret", time.Hour, nil)
	token, _, err := other.Issue(testUser(), false)
	require.NoError(t, err)

	m := NewSessionManager("secret", time.Hour, nil)
	_, err = m.Parse(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionManager_RejectsExpired(t *testing.T) {
	m := NewSessionManager("secret", -time.Minute, nil)
	token, _, err := m.Issue(testUser(), false)
	require.NoError(t, err)

	_, err = m.Parse(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionManager_RevokeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	m := NewSessionManager("secret", time.Hour, cache.NewCacheHelper(client, "session:"))

	token, claims, err := m.Issue(testUser(), false)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, claims))

	assert.True(t, mr.Exists("session:"+claims.ID))
	_, err = m.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// A new login is unaffected.
	fresh, _, err := m.Issue(testUser(), false)
	require.NoError(t, err)
	_, err = m.Parse(ctx, fresh)
	assert.NoError(t, err)
}

func TestSessionManager_RevokeWithoutRedis(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager("secret", time.Hour, nil)

	token, claims, err := m.Issue(testUser(), false)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, claims))

	_, err = m.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "s3cret-pass"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}
