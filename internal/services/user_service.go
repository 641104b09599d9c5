package services

import (
	"uru_backend/internal/apperrors"
	"uru_backend/internal/auth"
	"uru_backend/internal/models"
	"uru_backend/internal/repositories"
	"uru_backend/internal/services/dto"
)

type UserService interface {
	GetProfile(userID string) (*dto.UserResponse, error)
	UpdateProfile(userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	CheckEmail(emailAddr string) (*dto.CheckEmailResponse, error)
	VerificationStatus(userID string) (*dto.VerificationStatusResponse, error)
}

type UserServiceImpl struct {
	store repositories.Store
}

func NewUserService(store repositories.Store) UserService {
	return &UserServiceImpl{store: store}
}

// GetProfile возвращает профиль пользователя
func (s *UserServiceImpl) GetProfile(userID string) (*dto.UserResponse, error) {
	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// UpdateProfile обновляет имя и фамилию. Email и роль здесь неизменны.
func (s *UserServiceImpl) UpdateProfile(userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if err := s.store.Users().Update(user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// CheckEmail - открытая проверка занятости email
func (s *UserServiceImpl) CheckEmail(emailAddr string) (*dto.CheckEmailResponse, error) {
	exists, err := s.store.Users().ExistsEmail(models.NormalizeEmail(emailAddr))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	msg := "Email is available"
	if exists {
		msg = "Email is already registered"
	}
	return &dto.CheckEmailResponse{Exists: exists, Message: msg}, nil
}

// VerificationStatus - статус верификации с учетом провайдера:
// аккаунты внешних провайдеров считаются верифицированными
func (s *UserServiceImpl) VerificationStatus(userID string) (*dto.VerificationStatusResponse, error) {
	user, err := s.store.Users().FindByID(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	return &dto.VerificationStatusResponse{
		IsVerified:   auth.EffectiveVerified(user),
		AuthProvider: string(user.AuthProvider),
	}, nil
}
