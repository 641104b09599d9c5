package services

import (
	"context"
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

type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	VerifyAccessToken(ctx context.Context, accessToken string) error
	Logout(ctx context.Context, refreshToken string) error

	Activate(uid, token string) error
	ResendVerification(userID string) error

	RequestPasswordReset(emailAddr string) error
	ConfirmPasswordReset(uid, token string, req *dto.PasswordResetConfirmRequest) error
	ChangePassword(userID string, req *dto.ChangePasswordRequest) error
	DeleteAccount(userID string, req *dto.DeleteAccountRequest) error
}

type AuthServiceImpl struct {
	store  repositories.Store
	codec  *auth.PurposeTokenCodec
	issuer *auth.SessionIssuer
	mailer *email.Mailer
	cfg    *config.Config
}

func NewAuthService(
	store repositories.Store,
	codec *auth.PurposeTokenCodec,
	issuer *auth.SessionIssuer,
	mailer *email.Mailer,
	cfg *config.Config,
) AuthService {
	return &AuthServiceImpl{
		store:  store,
		codec:  codec,
		issuer: issuer,
		mailer: mailer,
		cfg:    cfg,
	}
}

// Register - регистрация нового пользователя
func (s *AuthServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	role := req.Role
	if role == "" {
		role = models.UserRoleStudent
	}
	// superadmin через открытую регистрацию не создается
	if role == models.UserRoleSuperAdmin || !role.IsValid() {
		return nil, apperrors.ErrInvalidUserRole.WithField("role", "Must be a valid role")
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword.WithField("password", apperrors.ErrWeakPassword.Message)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:        models.NormalizeEmail(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         role,
		AuthProvider: models.AuthProviderEmail,
		IsActive:     true,
	}

	if err := s.store.Users().Create(user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists.WithField("email", apperrors.ErrEmailAlreadyExists.Message)
		}
		return nil, apperrors.InternalError(err)
	}

	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	// Письмо уходит после записи пользователя; сбой доставки
	// регистрацию не отменяет
	s.sendActivationEmail(user)

	return &dto.RegisterResponse{
		Token:   dto.TokenResponse{Access: pair.Access, Refresh: pair.Refresh},
		User:    dto.NewUserResponse(user),
		Message: "Registration successful. Please check your email to verify your account.",
	}, nil
}

// Login - аутентификация пользователя. Любая причина отказа дает один
// и тот же ответ, чтобы не подтверждать существование аккаунта.
func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.store.Users().FindByEmail(models.NormalizeEmail(req.Email))
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrLoginFailed
		}
		return nil, apperrors.InternalError(err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrLoginFailed
	}
	// Аккаунты внешних провайдеров пароля не имеют и по паролю не входят
	if !user.HasUsablePassword() || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrLoginFailed
	}

	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{
		Token:   dto.TokenResponse{Access: pair.Access, Refresh: pair.Refresh},
		Message: "Login successful",
	}, nil
}

// RefreshToken - обмен refresh-токена на новую пару
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	pair, claims, err := s.issuer.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, translateSessionError(err)
	}

	// Пользователь мог быть удален или деактивирован после выдачи токена
	user, err := s.store.Users().FindByID(claims.Subject)
	if err != nil || !user.IsActive {
		return nil, apperrors.ErrInvalidToken
	}

	return &dto.TokenResponse{Access: pair.Access, Refresh: pair.Refresh}, nil
}

// VerifyAccessToken - проверка access-токена без побочных эффектов
func (s *AuthServiceImpl) VerifyAccessToken(ctx context.Context, accessToken string) error {
	if _, err := s.issuer.VerifyAccess(ctx, accessToken); err != nil {
		return translateSessionError(err)
	}
	return nil
}

// Logout - отзыв refresh-токена
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if err := s.issuer.Revoke(ctx, refreshToken); err != nil {
		return apperrors.ErrValidationFailed.WithField("refresh", "Token is invalid or expired")
	}
	return nil
}

// Activate - подтверждение email по ссылке из письма. Все причины
// отказа схлопываются в один ответ, различать их снаружи нельзя.
func (s *AuthServiceImpl) Activate(uid, token string) error {
	userID, err := auth.DecodeUID(uid)
	if err != nil {
		return apperrors.ErrInvalidLink
	}

	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return apperrors.ErrInvalidLink
	}

	if err := s.codec.Verify(auth.PurposeActivation, token, user.ID, auth.ActivationFingerprint(user)); err != nil {
		return apperrors.ErrInvalidLink
	}

	if err := s.store.Users().MarkEmailVerified(user.ID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// ResendVerification - повторная отправка письма активации
func (s *AuthServiceImpl) ResendVerification(userID string) error {
	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return apperrors.ErrUserNotFound
	}
	if user.IsEmailVerified {
		return apperrors.FieldError("email", "Email is already verified")
	}
	s.sendActivationEmail(user)
	return nil
}

// RequestPasswordReset - запрос сброса пароля. Ответ одинаков для
// существующего, несуществующего и неактивного аккаунта; письмо уходит
// только в первом случае.
func (s *AuthServiceImpl) RequestPasswordReset(emailAddr string) error {
	user, err := s.store.Users().FindByEmail(models.NormalizeEmail(emailAddr))
	if err != nil || !user.IsActive {
		return nil
	}

	ttl := time.Duration(s.cfg.Tokens.ResetTTLHours) * time.Hour
	token, err := s.codec.Issue(auth.PurposePasswordReset, user.ID, auth.ResetFingerprint(user), ttl)
	if err != nil {
		logger.WithError(err).Error("failed to issue password reset token")
		return nil
	}

	link := fmt.Sprintf("%s/password-reset-confirm/%s/%s/",
		s.cfg.Frontend.BaseURL, auth.EncodeUID(user.ID), token)
	if err := s.mailer.SendPasswordReset(user.Email, user.FullName(), link, s.cfg.Tokens.ResetTTLHours); err != nil {
		logger.EmailLog("password_reset", user.Email, err)
	}
	return nil
}

// ConfirmPasswordReset - установка нового пароля по токену из письма.
// Токен одноразовый: смена пароля меняет fingerprint, и повторная
// отправка того же токена не проходит.
func (s *AuthServiceImpl) ConfirmPasswordReset(uid, token string, req *dto.PasswordResetConfirmRequest) error {
	if req.Password != req.ConfirmPassword {
		return apperrors.FieldError("confirm_password", "Passwords do not match.")
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return apperrors.ErrWeakPassword.WithField("password", apperrors.ErrWeakPassword.Message)
	}

	userID, err := auth.DecodeUID(uid)
	if err != nil {
		return apperrors.ErrInvalidOrExpired
	}
	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return apperrors.ErrInvalidOrExpired
	}
	if !user.IsActive {
		return apperrors.ErrInvalidOrExpired
	}
	// Сброс доступен только аккаунтам с подтвержденным email
	if !auth.EffectiveVerified(user) {
		return apperrors.ErrInvalidOrExpired
	}

	if err := s.codec.Verify(auth.PurposePasswordReset, token, user.ID, auth.ResetFingerprint(user)); err != nil {
		return apperrors.ErrInvalidOrExpired
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.store.Users().SetPassword(user.ID, hash, time.Now()); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// ChangePassword - смена пароля аутентифицированным пользователем
func (s *AuthServiceImpl) ChangePassword(userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return apperrors.ErrUserNotFound
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.FieldError("current_password", "Current password is incorrect")
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword.WithField("new_password", apperrors.ErrWeakPassword.Message)
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.store.Users().SetPassword(user.ID, hash, time.Now()); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// DeleteAccount - удаление собственного аккаунта. Заявки на смену email
// уходят каскадом вместе с пользователем.
func (s *AuthServiceImpl) DeleteAccount(userID string, req *dto.DeleteAccountRequest) error {
	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return apperrors.ErrUserNotFound
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return apperrors.FieldError("password", "Password is incorrect")
	}

	if err := s.store.Users().Delete(user.ID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// sendActivationEmail выпускает токен активации и отправляет письмо.
// Сбои не всплывают к клиенту.
func (s *AuthServiceImpl) sendActivationEmail(user *models.User) {
	ttl := time.Duration(s.cfg.Tokens.ActivationTTLHours) * time.Hour
	token, err := s.codec.Issue(auth.PurposeActivation, user.ID, auth.ActivationFingerprint(user), ttl)
	if err != nil {
		logger.WithError(err).Error("failed to issue activation token")
		return
	}

	link := fmt.Sprintf("%s/activate/%s/%s/",
		s.cfg.Frontend.BaseURL, auth.EncodeUID(user.ID), token)
	if err := s.mailer.SendVerification(user.Email, user.FullName(), link, s.cfg.Tokens.ActivationTTLHours); err != nil {
		logger.EmailLog("verification", user.Email, err)
	}
}

// translateSessionError переводит ошибки issuer в ошибки приложения
func translateSessionError(err error) *apperrors.AppError {
	switch {
	case apperrors.Is(err, auth.ErrTokenBlacklisted):
		return apperrors.ErrTokenBlacklisted
	case apperrors.Is(err, auth.ErrTokenExpired), apperrors.Is(err, auth.ErrTokenInvalid):
		return apperrors.ErrInvalidToken
	default:
		return apperrors.InternalError(err)
	}
}
