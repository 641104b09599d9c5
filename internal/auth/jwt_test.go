package auth

import (
	"context"
	"testing"
	"time"

	"uru_backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, rotate bool) *SessionIssuer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewSessionIssuer("test-secret", 15*time.Minute, 24*time.Hour, rotate, NewRedisBlacklist(rdb))
}

func sessionUser() *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: "user-1"},
		Email:     "alice@example.com",
		Role:      models.UserRoleStudent,
	}
}

func TestSessionIssuer_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, true)
	pair, err := issuer.IssuePair(sessionUser())
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	claims, err := issuer.VerifyAccess(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, string(models.UserRoleStudent), claims.Role)
}

func TestSessionIssuer_RefreshIsNotAccess(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, true)
	pair, err := issuer.IssuePair(sessionUser())
	require.NoError(t, err)

	// refresh-токен нельзя предъявить как access
	_, err = issuer.VerifyAccess(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// и наоборот
	_, _, err = issuer.Refresh(context.Background(), pair.Access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSessionIssuer_RotationBlacklistsConsumedToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, true)
	ctx := context.Background()

	pair, err := issuer.IssuePair(sessionUser())
	require.NoError(t, err)

	newPair, claims, err := issuer.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.NotEqual(t, pair.Refresh, newPair.Refresh)

	// Потребленный refresh больше никогда не выдает пару
	_, _, err = issuer.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenBlacklisted)

	// Новый refresh работает
	_, _, err = issuer.Refresh(ctx, newPair.Refresh)
	assert.NoError(t, err)
}

func TestSessionIssuer_NoRotationReusesRefresh(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, false)
	ctx := context.Background()

	pair, err := issuer.IssuePair(sessionUser())
	require.NoError(t, err)

	newPair, _, err := issuer.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, pair.Refresh, newPair.Refresh)

	// Без ротации тот же refresh можно использовать повторно
	_, _, err = issuer.Refresh(ctx, pair.Refresh)
	assert.NoError(t, err)
}

func TestSessionIssuer_RevokeIsIdempotent(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, true)
	ctx := context.Background()

	pair, err := issuer.IssuePair(sessionUser())
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, pair.Refresh))
	require.NoError(t, issuer.Revoke(ctx, pair.Refresh))

	_, _, err = issuer.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenBlacklisted)
}

func TestSessionIssuer_ExpiredRefresh(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, true)
	issued := time.Now()

	pair, err := issuer.IssuePair(sessionUser())
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(25 * time.Hour) }

	_, _, err = issuer.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSessionIssuer_GarbageToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, true)

	_, err := issuer.VerifyAccess(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
