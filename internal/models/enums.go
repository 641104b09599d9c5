package models

// UserRole — закрытый набор ролей
type UserRole string

const (
	UserRoleSuperAdmin UserRole = "superadmin"
	UserRoleStudent    UserRole = "student"
	UserRoleTeacher    UserRole = "teacher"
)

// IsValid проверяет, что роль входит в закрытый набор
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleSuperAdmin, UserRoleStudent, UserRoleTeacher:
		return true
	}
	return false
}

// AuthProvider — способ аутентификации пользователя
type AuthProvider string

const (
	AuthProviderEmail    AuthProvider = "email"
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderGitHub   AuthProvider = "github"
	AuthProviderFacebook AuthProvider = "facebook"
)

func (p AuthProvider) IsValid() bool {
	switch p {
	case AuthProviderEmail, AuthProviderGoogle, AuthProviderGitHub, AuthProviderFacebook:
		return true
	}
	return false
}
