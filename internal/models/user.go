package models

import "time"

type User struct {
	BaseModel
	Email     string `gorm:"uniqueIndex;not null"`
	FirstName string
	LastName  string

	// Пустой хеш означает "unusable password": аккаунт создан внешним
	// провайдером и вход по паролю для него невозможен.
	PasswordHash string

	Role         UserRole     `gorm:"type:varchar(20);not null;default:'student'"`
	AuthProvider AuthProvider `gorm:"type:varchar(20);not null;default:'email'"`

	IsActive        bool `gorm:"default:true"`
	IsStaff         bool `gorm:"default:false"`
	IsAdmin         bool `gorm:"default:false"`
	IsEmailVerified bool `gorm:"default:false"`

	LastPasswordChange *time.Time `gorm:"index"`

	PendingEmailChange *PendingEmailChange `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// HasUsablePassword сообщает, можно ли входить по паролю
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// FullName возвращает имя и фамилию через пробел
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// PendingEmailChange — одна живая заявка на смену email.
// Уникальный индекс по UserID гарантирует не более одной заявки на
// пользователя, уникальный индекс по Token — глобальную уникальность токена.
type PendingEmailChange struct {
	BaseModel
	UserID    string    `gorm:"type:uuid;uniqueIndex;not null"`
	NewEmail  string    `gorm:"not null;index"`
	Token     string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// IsExpired сообщает, истекла ли заявка
func (p *PendingEmailChange) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
