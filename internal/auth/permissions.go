package auth

import "uru_backend/internal/models"

// Principal — явный контекст вызывающего пользователя. Передается в
// операции вместо глобального состояния сессии.
type Principal struct {
	UserID        string
	Role          models.UserRole
	Authenticated bool
	Verified      bool
}

// Anonymous возвращает principal неаутентифицированного запроса
func Anonymous() Principal {
	return Principal{}
}

// PrincipalFor строит principal из записи пользователя
func PrincipalFor(u *models.User) Principal {
	return Principal{
		UserID:        u.ID,
		Role:          u.Role,
		Authenticated: true,
		Verified:      EffectiveVerified(u),
	}
}

// EffectiveVerified: для email-аккаунтов верифицированность определяется
// флагом, аккаунты внешних провайдеров считаются верифицированными.
func EffectiveVerified(u *models.User) bool {
	if u == nil {
		return false
	}
	if u.AuthProvider == models.AuthProviderEmail {
		return u.IsEmailVerified
	}
	return true
}

// Predicate — композируемый предикат доступа. readOnly=true для
// безопасных методов (GET, HEAD, OPTIONS).
//
// Все предикаты первым делом проверяют Authenticated, до обращения к
// роли или флагу верификации: на анонимном principal эти поля пусты.
type Predicate func(p Principal, readOnly bool) bool

// IsAuthenticated - достаточно аутентификации
func IsAuthenticated() Predicate {
	return func(p Principal, _ bool) bool {
		return p.Authenticated
	}
}

// IsAuthenticatedAndVerified - аутентифицирован и email подтвержден
func IsAuthenticatedAndVerified() Predicate {
	return func(p Principal, _ bool) bool {
		return p.Authenticated && p.Verified
	}
}

// IsVerifiedRole - верифицирован и роль входит в набор
func IsVerifiedRole(roles ...models.UserRole) Predicate {
	return func(p Principal, _ bool) bool {
		if !p.Authenticated || !p.Verified {
			return false
		}
		return roleIn(p.Role, roles)
	}
}

// IsRole - роль входит в набор, верификация не требуется
func IsRole(roles ...models.UserRole) Predicate {
	return func(p Principal, _ bool) bool {
		if !p.Authenticated {
			return false
		}
		return roleIn(p.Role, roles)
	}
}

// IsSuperAdminOrReadOnly - полный доступ верифицированному superadmin,
// read-only для перечисленных верифицированных ролей
func IsSuperAdminOrReadOnly(readOnlyRoles ...models.UserRole) Predicate {
	return func(p Principal, readOnly bool) bool {
		if !p.Authenticated || !p.Verified {
			return false
		}
		if p.Role == models.UserRoleSuperAdmin {
			return true
		}
		return readOnly && roleIn(p.Role, readOnlyRoles)
	}
}

// AnyOf - дизъюнкция предикатов
func AnyOf(preds ...Predicate) Predicate {
	return func(p Principal, readOnly bool) bool {
		for _, pred := range preds {
			if pred(p, readOnly) {
				return true
			}
		}
		return false
	}
}

func roleIn(role models.UserRole, roles []models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
