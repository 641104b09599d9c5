package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"uru_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose — назначение одноразового токена
type TokenPurpose string

const (
	PurposeActivation    TokenPurpose = "activation"
	PurposePasswordReset TokenPurpose = "password_reset"
)

var (
	// ErrTokenInvalid - подпись, subject, purpose или fingerprint не сошлись
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired - токен корректен, но окно действия истекло.
	// Для клиента оба случая неразличимы; различие нужно только
	// внутренне (логи, тесты).
	ErrTokenExpired = errors.New("token has expired")
)

// PurposeTokenCodec выпускает и проверяет подписанные одноразовые
// токены (активация email, сброс пароля). Токен stateless: он привязан
// к fingerprint изменяемого состояния пользователя, поэтому любое
// изменение этого состояния делает все ранее выданные токены данного
// назначения недействительными - одноразовость без таблицы токенов.
type PurposeTokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewPurposeTokenCodec(secret string) *PurposeTokenCodec {
	return &PurposeTokenCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

type purposeClaims struct {
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"fpt"`
	jwt.RegisteredClaims
}

// Issue выпускает токен назначения purpose для субъекта subjectID.
// fingerprint - строка изменяемого состояния, актуальная на момент выпуска.
func (c *PurposeTokenCodec) Issue(purpose TokenPurpose, subjectID, fingerprint string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := purposeClaims{
		Purpose:     string(purpose),
		Fingerprint: hashFingerprint(fingerprint),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify проверяет токен против субъекта и текущего fingerprint.
// Возвращает ErrTokenExpired при истекшем окне и ErrTokenInvalid во
// всех остальных случаях несовпадения.
func (c *PurposeTokenCodec) Verify(purpose TokenPurpose, tokenStr, subjectID, fingerprint string) error {
	var claims purposeClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	if claims.Purpose != string(purpose) {
		return ErrTokenInvalid
	}
	if claims.Subject != subjectID {
		return ErrTokenInvalid
	}
	if claims.Fingerprint != hashFingerprint(fingerprint) {
		return ErrTokenInvalid
	}
	return nil
}

// hashFingerprint сворачивает fingerprint, чтобы не раскрывать
// состояние пользователя (например, хеш пароля) внутри токена
func hashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// ActivationFingerprint - состояние, инвалидирующее токен активации:
// сама верификация делает выданные ссылки недействительными.
func ActivationFingerprint(u *models.User) string {
	return fmt.Sprintf("activation|%t|%s", u.IsEmailVerified, lastChange(u))
}

// ResetFingerprint - состояние, инвалидирующее токен сброса пароля:
// установка нового пароля меняет и хеш, и отметку времени, поэтому
// токен сброса одноразовый by construction.
func ResetFingerprint(u *models.User) string {
	return fmt.Sprintf("reset|%s|%s", u.PasswordHash, lastChange(u))
}

func lastChange(u *models.User) string {
	if u.LastPasswordChange == nil {
		return "never"
	}
	return u.LastPasswordChange.UTC().Format(time.RFC3339Nano)
}
