package repositories

import (
	"errors"
	"testing"
	"time"

	"uru_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, store Store, email string, verified bool) *models.User {
	t.Helper()
	u := &models.User{
		Email:           email,
		PasswordHash:    "hash",
		Role:            models.UserRoleStudent,
		AuthProvider:    models.AuthProviderEmail,
		IsActive:        true,
		IsEmailVerified: verified,
	}
	require.NoError(t, store.Users().Create(u))
	return u
}

func TestMemoryStore_UniqueEmail(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seedUser(t, store, "alice@example.com", false)

	err := store.Users().Create(&models.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestMemoryStore_FindByEmail(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	created := seedUser(t, store, "alice@example.com", false)

	found, err := store.Users().FindByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.Users().FindByEmail("ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStore_SetPassword(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	u := seedUser(t, store, "alice@example.com", false)

	changedAt := time.Now()
	require.NoError(t, store.Users().SetPassword(u.ID, "newhash", changedAt))

	reloaded, err := store.Users().FindByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", reloaded.PasswordHash)
	require.NotNil(t, reloaded.LastPasswordChange)
	assert.WithinDuration(t, changedAt, *reloaded.LastPasswordChange, time.Second)
}

func TestMemoryStore_DeleteCascadesPending(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	u := seedUser(t, store, "alice@example.com", true)

	require.NoError(t, store.PendingEmailChanges().Create(&models.PendingEmailChange{
		UserID:    u.ID,
		NewEmail:  "new@example.com",
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, store.Users().Delete(u.ID))

	_, err := store.PendingEmailChanges().FindLiveByToken("tok-1", time.Now())
	assert.ErrorIs(t, err, ErrPendingChangeNotFound)
}

func TestMemoryStore_PendingUniquePerUserAndToken(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	u := seedUser(t, store, "alice@example.com", true)
	v := seedUser(t, store, "bob@example.com", true)

	require.NoError(t, store.PendingEmailChanges().Create(&models.PendingEmailChange{
		UserID: u.ID, NewEmail: "new@example.com", Token: "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	// Вторая заявка того же пользователя нарушает уникальность по UserID
	err := store.PendingEmailChanges().Create(&models.PendingEmailChange{
		UserID: u.ID, NewEmail: "other@example.com", Token: "tok-2",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrPendingEmailTaken)

	// Чужая заявка с тем же токеном нарушает уникальность по Token
	err = store.PendingEmailChanges().Create(&models.PendingEmailChange{
		UserID: v.ID, NewEmail: "third@example.com", Token: "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrPendingEmailTaken)
}

func TestMemoryStore_FindLiveByTokenHonorsExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	u := seedUser(t, store, "alice@example.com", true)

	require.NoError(t, store.PendingEmailChanges().Create(&models.PendingEmailChange{
		UserID: u.ID, NewEmail: "new@example.com", Token: "tok-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := store.PendingEmailChanges().FindLiveByToken("tok-1", time.Now())
	assert.ErrorIs(t, err, ErrPendingChangeNotFound)

	removed, err := store.PendingEmailChanges().DeleteExpired(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestMemoryStore_DeleteUnverifiedByEmail(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	requester := seedUser(t, store, "me@example.com", true)
	seedUser(t, store, "target@example.com", false)
	verified := seedUser(t, store, "target2@example.com", true)

	removed, err := store.Users().DeleteUnverifiedByEmail("target@example.com", requester.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	// Верифицированные аккаунты не затрагиваются
	removed, err = store.Users().DeleteUnverifiedByEmail("target2@example.com", requester.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, removed)
	_, err = store.Users().FindByID(verified.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_TransactionRollback(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seedUser(t, store, "alice@example.com", false)

	boom := errors.New("boom")
	err := store.Transaction(func(tx Store) error {
		if err := tx.Users().Create(&models.User{Email: "bob@example.com"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Откат: bob не сохранился, alice на месте
	_, err = store.Users().FindByEmail("bob@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = store.Users().FindByEmail("alice@example.com")
	assert.NoError(t, err)
}

func TestMemoryStore_TransactionCommit(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	err := store.Transaction(func(tx Store) error {
		return tx.Users().Create(&models.User{Email: "bob@example.com"})
	})
	require.NoError(t, err)

	_, err = store.Users().FindByEmail("bob@example.com")
	assert.NoError(t, err)
}
