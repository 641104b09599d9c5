package services

import (
	"fmt"
	"time"

	"uru_backend/internal/apperrors"
	"uru_backend/internal/auth"
	"uru_backend/internal/config"
	"uru_backend/internal/email"
	"uru_backend/internal/logger"
	"uru_backend/internal/models"
	"uru_backend/internal/repositories"
	"uru_backend/internal/services/dto"
)

const emailChangeTokenLength = 64

type EmailChangeService interface {
	Request(userID string, req *dto.ChangeEmailRequest) error
	Verify(token string) (*models.User, error)
	CleanupExpired() (int64, error)
}

type EmailChangeServiceImpl struct {
	store  repositories.Store
	mailer *email.Mailer
	cfg    *config.Config
}

func NewEmailChangeService(store repositories.Store, mailer *email.Mailer, cfg *config.Config) EmailChangeService {
	return &EmailChangeServiceImpl{
		store:  store,
		mailer: mailer,
		cfg:    cfg,
	}
}

// Request - заявка на смену email. Все проверки и мутации выполняются
// в одной транзакции; письмо уходит строго после коммита, чтобы сбой
// доставки не откатил созданную заявку.
func (s *EmailChangeServiceImpl) Request(userID string, req *dto.ChangeEmailRequest) error {
	newEmail := models.NormalizeEmail(req.NewEmail)
	ttl := time.Duration(s.cfg.Tokens.EmailChangeTTLHours) * time.Hour

	var created *models.PendingEmailChange
	var owner *models.User

	err := s.store.Transaction(func(tx repositories.Store) error {
		user, err := tx.Users().FindByID(userID)
		if err != nil {
			return apperrors.ErrUserNotFound
		}
		owner = user

		if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
			return apperrors.FieldError("password", "Password is incorrect")
		}
		if newEmail == user.Email {
			return apperrors.FieldError("new_email", "New email must be different from the current one")
		}

		// Email занят другим верифицированным пользователем
		taken, err := tx.Users().ExistsVerifiedEmail(newEmail, user.ID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		if taken {
			return apperrors.FieldError("new_email", "This email is already in use.")
		}

		// Другой пользователь уже держит живую заявку на этот email:
		// первый успевший побеждает
		pending, err := tx.PendingEmailChanges().ExistsLiveForEmail(newEmail, user.ID, time.Now())
		if err != nil {
			return apperrors.InternalError(err)
		}
		if pending {
			return apperrors.FieldError("new_email", "This email is already pending verification by another user.")
		}

		// Повторная заявка вытесняет предыдущую: живая заявка на
		// пользователя всегда одна
		if err := tx.PendingEmailChanges().DeleteByUserID(user.ID); err != nil {
			return apperrors.InternalError(err)
		}

		// Зачистка брошенных неверифицированных регистраций,
		// занимающих целевой email. Верифицированные аккаунты и сам
		// заявитель не затрагиваются.
		removed, err := tx.Users().DeleteUnverifiedByEmail(newEmail, user.ID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		if removed > 0 {
			logger.Warn("reclaimed unverified accounts occupying requested email",
				"email", newEmail, "count", removed, "requested_by", user.ID)
		}

		token, err := auth.RandomToken(emailChangeTokenLength)
		if err != nil {
			return apperrors.InternalError(err)
		}

		change := &models.PendingEmailChange{
			UserID:    user.ID,
			NewEmail:  newEmail,
			Token:     token,
			ExpiresAt: time.Now().Add(ttl),
		}
		if err := tx.PendingEmailChanges().Create(change); err != nil {
			if apperrors.Is(err, repositories.ErrPendingEmailTaken) {
				// Уникальный индекс сработал под гонкой
				return apperrors.ErrConflict
			}
			return apperrors.InternalError(err)
		}
		created = change
		return nil
	})
	if err != nil {
		return err
	}

	// После коммита: письмо на НОВЫЙ адрес, сбой глотается
	link := fmt.Sprintf("%s/verify-email-change/%s/", s.cfg.Frontend.BaseURL, created.Token)
	if err := s.mailer.SendEmailChange(created.NewEmail, owner.FullName(), link, s.cfg.Tokens.EmailChangeTTLHours); err != nil {
		logger.EmailLog("email_change", created.NewEmail, err)
	}
	return nil
}

// Verify - подтверждение смены email по токену из письма. Коммит нового
// адреса и удаление заявки происходят в одной транзакции: повторная
// попытка с тем же токеном строки уже не найдет.
func (s *EmailChangeServiceImpl) Verify(token string) (*models.User, error) {
	var user *models.User

	err := s.store.Transaction(func(tx repositories.Store) error {
		change, err := tx.PendingEmailChanges().FindLiveByToken(token, time.Now())
		if err != nil {
			return apperrors.ErrInvalidOrExpired
		}

		if err := tx.Users().UpdateEmail(change.UserID, change.NewEmail); err != nil {
			if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
				// Email успел занять кто-то еще
				return apperrors.ErrConflict
			}
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return apperrors.ErrInvalidOrExpired
			}
			return apperrors.InternalError(err)
		}

		if err := tx.PendingEmailChanges().Delete(change.ID); err != nil {
			if apperrors.Is(err, repositories.ErrPendingChangeNotFound) {
				return apperrors.ErrInvalidOrExpired
			}
			return apperrors.InternalError(err)
		}

		user, err = tx.Users().FindByID(change.UserID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CleanupExpired удаляет истекшие заявки (фоновая уборка)
func (s *EmailChangeServiceImpl) CleanupExpired() (int64, error) {
	return s.store.PendingEmailChanges().DeleteExpired(time.Now())
}
