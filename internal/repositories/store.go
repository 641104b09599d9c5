package repositories

import (
	"errors"
	"time"

	"uru_backend/internal/models"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrPendingChangeNotFound = errors.New("pending email change not found")
	// ErrPendingEmailTaken - другой пользователь уже держит живую заявку
	// на этот email (уникальный индекс по токену/почте сработал под гонкой)
	ErrPendingEmailTaken = errors.New("pending email change conflict")
)

// IsNotFound сообщает, что запись не была найдена
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrPendingChangeNotFound)
}

// IsAlreadyExists сообщает о нарушении уникальности
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrUserAlreadyExists) || errors.Is(err, ErrPendingEmailTaken)
}

// UserRepository определяет операции над записями пользователей.
// Email во всех методах ожидается уже нормализованным
// (models.NormalizeEmail).
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Update(user *models.User) error

	// SetPassword обновляет хеш и отметку последней смены пароля
	// одним запросом
	SetPassword(userID, hash string, changedAt time.Time) error

	MarkEmailVerified(userID string) error
	UpdateEmail(userID, newEmail string) error
	Delete(userID string) error

	ExistsEmail(email string) (bool, error)
	// ExistsVerifiedEmail - владеет ли email другой верифицированный
	// пользователь
	ExistsVerifiedEmail(email, excludeUserID string) (bool, error)
	// DeleteUnverifiedByEmail удаляет неверифицированные аккаунты,
	// занимающие email (зачистка брошенных регистраций). Запрашивающий
	// пользователь и верифицированные аккаунты не затрагиваются.
	DeleteUnverifiedByEmail(email, excludeUserID string) (int64, error)
}

// PendingEmailChangeRepository определяет операции над заявками на
// смену email
type PendingEmailChangeRepository interface {
	Create(p *models.PendingEmailChange) error
	DeleteByUserID(userID string) error
	// ExistsLiveForEmail - держит ли другой пользователь живую
	// (неистекшую) заявку на этот email
	ExistsLiveForEmail(email, excludeUserID string, now time.Time) (bool, error)
	// FindLiveByToken ищет заявку по точному токену с expires_at >= now
	FindLiveByToken(token string, now time.Time) (*models.PendingEmailChange, error)
	Delete(id string) error
	DeleteExpired(now time.Time) (int64, error)
}

// Store агрегирует репозитории и транзакции. Последовательности,
// помеченные в сервисах как атомарные, выполняются внутри Transaction:
// fn получает Store, привязанный к открытой транзакции.
type Store interface {
	Users() UserRepository
	PendingEmailChanges() PendingEmailChangeRepository
	Transaction(fn func(Store) error) error
}
