package repositories

import (
	"errors"
	"time"

	"uru_backend/internal/models"

	"gorm.io/gorm"
)

// GormStore — реализация Store поверх GORM/Postgres.
// Уникальные индексы (email пользователя, token и user_id заявки)
// обеспечиваются на уровне БД, поэтому конкурирующие конфликтующие
// запросы разрешаются через constraint violation, а не через потерянные
// обновления.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository {
	return &gormUserRepository{db: s.db}
}

func (s *GormStore) PendingEmailChanges() PendingEmailChangeRepository {
	return &gormPendingRepository{db: s.db}
}

// Transaction выполняет fn в транзакции БД (read committed)
func (s *GormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// --- UserRepository ---

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (r *gormUserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *gormUserRepository) SetPassword(userID, hash string, changedAt time.Time) error {
	result := r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password_hash":        hash,
		"last_password_change": changedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *gormUserRepository) MarkEmailVerified(userID string) error {
	result := r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("is_email_verified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *gormUserRepository) UpdateEmail(userID, newEmail string) error {
	result := r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("email", newEmail)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *gormUserRepository) Delete(userID string) error {
	// Заявки на смену email уходят каскадом (FK OnDelete:CASCADE)
	result := r.db.Delete(&models.User{}, "id = ?", userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *gormUserRepository) ExistsEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *gormUserRepository) ExistsVerifiedEmail(email, excludeUserID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("email = ? AND is_email_verified = ? AND id <> ?", email, true, excludeUserID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormUserRepository) DeleteUnverifiedByEmail(email, excludeUserID string) (int64, error) {
	result := r.db.Where("email = ? AND is_email_verified = ? AND id <> ?", email, false, excludeUserID).
		Delete(&models.User{})
	return result.RowsAffected, result.Error
}

// --- PendingEmailChangeRepository ---

type gormPendingRepository struct {
	db *gorm.DB
}

func (r *gormPendingRepository) Create(p *models.PendingEmailChange) error {
	if err := r.db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPendingEmailTaken
		}
		return err
	}
	return nil
}

func (r *gormPendingRepository) DeleteByUserID(userID string) error {
	return r.db.Delete(&models.PendingEmailChange{}, "user_id = ?", userID).Error
}

func (r *gormPendingRepository) ExistsLiveForEmail(email, excludeUserID string, now time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.PendingEmailChange{}).
		Where("new_email = ? AND user_id <> ? AND expires_at >= ?", email, excludeUserID, now).
		Count(&count).Error
	return count > 0, err
}

func (r *gormPendingRepository) FindLiveByToken(token string, now time.Time) (*models.PendingEmailChange, error) {
	var pending models.PendingEmailChange
	err := r.db.Where("token = ? AND expires_at >= ?", token, now).First(&pending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPendingChangeNotFound
		}
		return nil, err
	}
	return &pending, nil
}

func (r *gormPendingRepository) Delete(id string) error {
	result := r.db.Delete(&models.PendingEmailChange{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Конкурирующая верификация успела первой
		return ErrPendingChangeNotFound
	}
	return nil
}

func (r *gormPendingRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", now).Delete(&models.PendingEmailChange{})
	return result.RowsAffected, result.Error
}
