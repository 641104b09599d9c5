package dto

import (
	"time"

	"uru_backend/internal/models"
)

// UserResponse — публичное представление пользователя
type UserResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Role            string    `json:"role"`
	AuthProvider    string    `json:"auth_provider"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewUserResponse строит UserResponse из модели
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            string(u.Role),
		AuthProvider:    string(u.AuthProvider),
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

// UpdateProfileRequest — тело PUT /auth/profile/.
// Email и роль здесь не меняются: email идет через flow смены email.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// VerificationStatusResponse — тело GET /auth/verification-status/
type VerificationStatusResponse struct {
	IsVerified   bool   `json:"is_verified"`
	AuthProvider string `json:"auth_provider"`
}

// CheckEmailResponse — тело GET /check-email/
type CheckEmailResponse struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
}
