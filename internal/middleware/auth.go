package middleware

import (
	"net/http"
	"strings"

	"uru_backend/internal/apperrors"
	"uru_backend/internal/auth"
	"uru_backend/internal/logger"
	"uru_backend/internal/repositories"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// AuthMiddleware - проверка access-токена и загрузка пользователя.
// Удаленный или деактивированный пользователь получает 401, даже если
// его токен еще не истек.
func AuthMiddleware(issuer *auth.SessionIssuer, store repositories.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := issuer.VerifyAccess(c.Request.Context(), tokenStr)
		if err != nil {
			apperrors.HandleError(c, apperrors.ErrInvalidToken)
			c.Abort()
			return
		}

		user, err := store.Users().FindByID(claims.Subject)
		if err != nil || !user.IsActive {
			apperrors.HandleError(c, apperrors.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set(principalKey, auth.PrincipalFor(user))
		ctx := logger.WithUserID(c.Request.Context(), user.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Require - guard поверх предиката доступа. Ставится после
// AuthMiddleware; без него principal анонимный и предикат закроет
// доступ сам.
func Require(pred auth.Predicate) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFromContext(c)
		readOnly := isReadOnlyMethod(c.Request.Method)

		if !pred(p, readOnly) {
			if !p.Authenticated {
				apperrors.HandleError(c, apperrors.ErrUnauthorized)
			} else {
				apperrors.HandleError(c, apperrors.ErrForbidden)
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFromContext возвращает principal запроса или анонимный
func PrincipalFromContext(c *gin.Context) auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.Anonymous()
}

func isReadOnlyMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
