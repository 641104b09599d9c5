package auth

import (
	"context"
	"errors"
	"time"

	"uru_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrTokenBlacklisted - refresh-токен уже был использован или отозван
var ErrTokenBlacklisted = errors.New("token is blacklisted")

// TokenPair — пара bearer-токенов, выдаваемая клиенту
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SessionClaims — полезная нагрузка access/refresh токенов
type SessionClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// SessionIssuer выпускает пары access+refresh, проверяет access-токены
// входящих запросов и ротирует refresh-токены. Отзыв реализован через
// Blacklist по jti.
type SessionIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	blacklist  Blacklist
	now        func() time.Time
}

func NewSessionIssuer(secret string, accessTTL, refreshTTL time.Duration, rotate bool, blacklist Blacklist) *SessionIssuer {
	return &SessionIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		rotate:     rotate,
		blacklist:  blacklist,
		now:        time.Now,
	}
}

// IssuePair выпускает новую пару токенов для пользователя
func (s *SessionIssuer) IssuePair(user *models.User) (*TokenPair, error) {
	access, err := s.sign(user.ID, string(user.Role), tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user.ID, string(user.Role), tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyAccess проверяет access-токен входящего запроса и возвращает
// его claims. Отозванные (blacklisted) токены не проходят.
func (s *SessionIssuer) VerifyAccess(ctx context.Context, tokenStr string) (*SessionClaims, error) {
	claims, err := s.parse(tokenStr, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenBlacklisted
	}
	return claims, nil
}

// Refresh проверяет refresh-токен и выдает новую пару. При включенной
// ротации потребленный refresh-токен попадает в blacklist атомарно
// по отношению к конкурирующим запросам с тем же токеном: второй
// одновременный вызов получает ErrTokenBlacklisted.
func (s *SessionIssuer) Refresh(ctx context.Context, refreshStr string) (*TokenPair, *SessionClaims, error) {
	claims, err := s.parse(refreshStr, tokenTypeRefresh)
	if err != nil {
		return nil, nil, err
	}

	if s.rotate {
		consumed, err := s.blacklist.Consume(ctx, claims.ID, s.ttlRemaining(claims))
		if err != nil {
			return nil, nil, err
		}
		if !consumed {
			return nil, nil, ErrTokenBlacklisted
		}
	} else {
		revoked, err := s.blacklist.Contains(ctx, claims.ID)
		if err != nil {
			return nil, nil, err
		}
		if revoked {
			return nil, nil, ErrTokenBlacklisted
		}
	}

	access, err := s.sign(claims.Subject, claims.Role, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, nil, err
	}
	refresh := refreshStr
	if s.rotate {
		refresh, err = s.sign(claims.Subject, claims.Role, tokenTypeRefresh, s.refreshTTL)
		if err != nil {
			return nil, nil, err
		}
	}
	return &TokenPair{Access: access, Refresh: refresh}, claims, nil
}

// Revoke отзывает refresh-токен (logout). Идемпотентен: повторный
// отзыв уже отозванного токена не является ошибкой.
func (s *SessionIssuer) Revoke(ctx context.Context, refreshStr string) error {
	claims, err := s.parse(refreshStr, tokenTypeRefresh)
	if err != nil {
		return err
	}
	_, err = s.blacklist.Consume(ctx, claims.ID, s.ttlRemaining(claims))
	return err
}

func (s *SessionIssuer) sign(subject, role, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *SessionIssuer) parse(tokenStr, wantType string) (*SessionClaims, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

func (s *SessionIssuer) ttlRemaining(claims *SessionClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(s.now())
}
