package auth

import (
	"testing"
	"time"

	"uru_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser() *models.User {
	return &models.User{
		BaseModel:    models.BaseModel{ID: "user-1"},
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$somethinghashed",
	}
}

func TestPurposeToken_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewPurposeTokenCodec("test-secret")
	user := newTestUser()

	token, err := codec.Issue(PurposeActivation, user.ID, ActivationFingerprint(user), time.Hour)
	require.NoError(t, err)

	err = codec.Verify(PurposeActivation, token, user.ID, ActivationFingerprint(user))
	assert.NoError(t, err)
}

func TestPurposeToken_WrongPurpose(t *testing.T) {
	t.Parallel()

	codec := NewPurposeTokenCodec("test-secret")
	user := newTestUser()

	token, err := codec.Issue(PurposeActivation, user.ID, ActivationFingerprint(user), time.Hour)
	require.NoError(t, err)

	// Токен активации не проходит как токен сброса пароля
	err = codec.Verify(PurposePasswordReset, token, user.ID, ActivationFingerprint(user))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPurposeToken_WrongSubject(t *testing.T) {
	t.Parallel()

	codec := NewPurposeTokenCodec("test-secret")
	user := newTestUser()

	token, err := codec.Issue(PurposeActivation, user.ID, ActivationFingerprint(user), time.Hour)
	require.NoError(t, err)

	err = codec.Verify(PurposeActivation, token, "user-2", ActivationFingerprint(user))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPurposeToken_WrongSecret(t *testing.T) {
	t.Parallel()

	user := newTestUser()
	token, err := NewPurposeTokenCodec("secret-a").Issue(PurposeActivation, user.ID, ActivationFingerprint(user), time.Hour)
	require.NoError(t, err)

	err = NewPurposeTokenCodec("secret-b").Verify(PurposeActivation, token, user.ID, ActivationFingerprint(user))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPurposeToken_FingerprintChangeInvalidates(t *testing.T) {
	t.Parallel()

	codec := NewPurposeTokenCodec("test-secret")
	user := newTestUser()

	token, err := codec.Issue(PurposePasswordReset, user.ID, ResetFingerprint(user), time.Hour)
	require.NoError(t, err)
	require.NoError(t, codec.Verify(PurposePasswordReset, token, user.ID, ResetFingerprint(user)))

	// Смена пароля меняет fingerprint: токен становится одноразовым
	now := time.Now()
	user.PasswordHash = "$2a$10$anotherhash"
	user.LastPasswordChange = &now

	err = codec.Verify(PurposePasswordReset, token, user.ID, ResetFingerprint(user))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPurposeToken_ActivationInvalidatedByVerification(t *testing.T) {
	t.Parallel()

	codec := NewPurposeTokenCodec("test-secret")
	user := newTestUser()

	token, err := codec.Issue(PurposeActivation, user.ID, ActivationFingerprint(user), time.Hour)
	require.NoError(t, err)

	user.IsEmailVerified = true
	err = codec.Verify(PurposeActivation, token, user.ID, ActivationFingerprint(user))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPurposeToken_Expired(t *testing.T) {
	t.Parallel()

	codec := NewPurposeTokenCodec("test-secret")
	user := newTestUser()

	issued := time.Now()
	token, err := codec.Issue(PurposeActivation, user.ID, ActivationFingerprint(user), time.Hour)
	require.NoError(t, err)

	// Переводим часы за пределы окна действия
	codec.now = func() time.Time { return issued.Add(2 * time.Hour) }

	err = codec.Verify(PurposeActivation, token, user.ID, ActivationFingerprint(user))
	assert.ErrorIs(t, err, ErrTokenExpired)
}
