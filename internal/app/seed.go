package app

import (
	"uru_backend/internal/auth"
	"uru_backend/internal/config"
	"uru_backend/internal/logger"
	"uru_backend/internal/models"
	"uru_backend/internal/repositories"
)

// seedFirstAdmin создает первого superadmin из конфигурации, если его
// еще нет. Создается сразу верифицированным и активным.
func seedFirstAdmin(store repositories.Store, cfg *config.Config) error {
	adminEmail := models.NormalizeEmail(cfg.Admin.Email)
	adminPassword := cfg.Admin.Password

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("Admin credentials are not configured, skipping admin seeding")
		return nil
	}

	if _, err := store.Users().FindByEmail(adminEmail); err == nil {
		return nil
	} else if !repositories.IsNotFound(err) {
		return err
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:           adminEmail,
		PasswordHash:    hash,
		Role:            models.UserRoleSuperAdmin,
		AuthProvider:    models.AuthProviderEmail,
		IsActive:        true,
		IsStaff:         true,
		IsAdmin:         true,
		IsEmailVerified: true,
	}
	if err := store.Users().Create(admin); err != nil {
		// Параллельный инстанс мог успеть первым
		if repositories.IsAlreadyExists(err) {
			return nil
		}
		return err
	}

	logger.Info("First admin user created", "email", adminEmail)
	return nil
}
