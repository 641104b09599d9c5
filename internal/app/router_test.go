package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uru_backend/internal/auth"
	"uru_backend/internal/config"
	"uru_backend/internal/email"
	"uru_backend/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	store    *repositories.MemoryStore
	provider *MockEmailProvider
	cfg      *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTTLMin = 15
	cfg.JWT.RefreshTTLDays = 7
	cfg.JWT.RotateRefresh = true
	cfg.Tokens.ActivationTTLHours = 24
	cfg.Tokens.ResetTTLHours = 24
	cfg.Tokens.EmailChangeTTLHours = 24
	cfg.Frontend.BaseURL = "http://localhost:3000"
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Requests = 5
	cfg.RateLimit.WindowSec = 60

	store := repositories.NewMemoryStore()
	provider := &MockEmailProvider{}

	deps := &Dependencies{
		Cfg:   cfg,
		Store: store,
		Issuer: auth.NewSessionIssuer(
			cfg.JWT.Secret,
			time.Duration(cfg.JWT.AccessTTLMin)*time.Minute,
			time.Duration(cfg.JWT.RefreshTTLDays)*24*time.Hour,
			cfg.JWT.RotateRefresh,
			auth.NewRedisBlacklist(rdb),
		),
		Codec:  auth.NewPurposeTokenCodec(cfg.JWT.Secret),
		Mailer: email.NewMailer(provider),
		Redis:  rdb,
	}

	return &testServer{
		router:   SetupRouter(deps),
		store:    store,
		provider: provider,
		cfg:      cfg,
	}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	parsed := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

// register регистрирует пользователя и возвращает пару токенов
func (ts *testServer) register(t *testing.T, emailAddr, password string) (access, refresh string) {
	t.Helper()

	rec, body := ts.request(t, http.MethodPost, "/registration/", "", gin.H{
		"email":            emailAddr,
		"password":         password,
		"confirm_password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	token := body["token"].(map[string]interface{})
	return token["access"].(string), token["refresh"].(string)
}

// linkSegments достает сегменты ссылки после marker из последнего письма
func (ts *testServer) linkSegments(t *testing.T, marker string) []string {
	t.Helper()
	msgs := ts.provider.Sent()
	require.NotEmpty(t, msgs, "no emails were sent")

	htmlBody := msgs[len(msgs)-1].HTMLBody
	idx := strings.Index(htmlBody, marker)
	require.GreaterOrEqual(t, idx, 0, "marker %q not found in email body", marker)

	rest := htmlBody[idx+len(marker):]
	if end := strings.IndexAny(rest, "\"<"); end >= 0 {
		rest = rest[:end]
	}
	return strings.Split(strings.Trim(rest, "/"), "/")
}

func (ts *testServer) markVerified(t *testing.T, emailAddr string) {
	t.Helper()
	u, err := ts.store.Users().FindByEmail(emailAddr)
	require.NoError(t, err)
	require.NoError(t, ts.store.Users().MarkEmailVerified(u.ID))
}

func TestRegistrationScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec, body := ts.request(t, http.MethodPost, "/registration/", "", gin.H{
		"email":            "alice@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, false, user["is_email_verified"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["message"])

	// Дубликат отклоняется с пополевой ошибкой email
	rec, body = ts.request(t, http.MethodPost, "/registration/", "", gin.H{
		"email":            "alice@example.com",
		"password":         "password456",
		"confirm_password": "password456",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "email")
}

func TestRegistration_ValidationErrors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec, body := ts.request(t, http.MethodPost, "/registration/", "", gin.H{
		"email":            "not-an-email",
		"password":         "password123",
		"confirm_password": "password456",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "confirm_password")
}

func TestLoginScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "password123")

	rec, body := ts.request(t, http.MethodPost, "/login/", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])

	// Провал логина: 404 c non_field_errors, существование аккаунта не
	// подтверждается
	rec, body = ts.request(t, http.MethodPost, "/login/", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "non_field_errors")

	rec, _ = ts.request(t, http.MethodPost, "/login/", "", gin.H{
		"email":    "ghost@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	access, refresh := ts.register(t, "alice@example.com", "password123")

	rec, body := ts.request(t, http.MethodPost, "/auth/logout/", access, gin.H{"refresh": refresh})
	require.Equal(t, http.StatusResetContent, rec.Code)
	assert.NotEmpty(t, body["message"])

	// Отозванный refresh больше не обменивается
	rec, _ = ts.request(t, http.MethodPost, "/token/refresh/", "", gin.H{"refresh": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActivationScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "password123")

	segments := ts.linkSegments(t, "/activate/")
	require.Len(t, segments, 2)
	path := "/activate/" + segments[0] + "/" + segments[1] + "/"

	rec, body := ts.request(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, body["message"])

	u, err := ts.store.Users().FindByEmail("alice@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsEmailVerified)

	// Повтор: ссылка одноразовая
	rec, body = ts.request(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid activation link", body["error"])
}

func TestPasswordResetScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "password123")
	ts.markVerified(t, "alice@example.com")
	ts.provider.Reset()

	// Несуществующий email: тот же 200, доставки нет
	rec, body := ts.request(t, http.MethodPost, "/send-password-reset-email/", "", gin.H{
		"email": "ghost@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	ghostMsg := body["message"]
	assert.Empty(t, ts.provider.Sent())

	// Существующий: идентичный ответ, письмо ушло
	rec, body = ts.request(t, http.MethodPost, "/send-password-reset-email/", "", gin.H{
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ghostMsg, body["message"])
	require.Len(t, ts.provider.Sent(), 1)

	segments := ts.linkSegments(t, "/password-reset-confirm/")
	require.Len(t, segments, 2)
	path := "/password-reset-confirm/" + segments[0] + "/" + segments[1] + "/"

	rec, _ = ts.request(t, http.MethodPost, path, "", gin.H{
		"password":         "brand-new-pass",
		"confirm_password": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Повтор того же токена отклоняется
	rec, body = ts.request(t, http.MethodPost, path, "", gin.H{
		"password":         "yet-another-pass",
		"confirm_password": "yet-another-pass",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", body["error"])

	// Новый пароль действует
	rec, _ = ts.request(t, http.MethodPost, "/login/", "", gin.H{
		"email":    "alice@example.com",
		"password": "brand-new-pass",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordReset_UnverifiedUserCannotConfirm(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "password123")
	ts.provider.Reset()

	rec, _ := ts.request(t, http.MethodPost, "/send-password-reset-email/", "", gin.H{
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	segments := ts.linkSegments(t, "/password-reset-confirm/")
	require.Len(t, segments, 2)
	path := "/password-reset-confirm/" + segments[0] + "/" + segments[1] + "/"

	// Email не подтвержден: сброс не завершается
	rec, body := ts.request(t, http.MethodPost, path, "", gin.H{
		"password":         "brand-new-pass",
		"confirm_password": "brand-new-pass",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", body["error"])

	// Старый пароль остался в силе
	rec, _ = ts.request(t, http.MethodPost, "/login/", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmailChangeScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "password123")
	ts.markVerified(t, "alice@example.com")

	// Токены выданы до верификации, но статус проверяется по записи
	rec, _ := ts.request(t, http.MethodPost, "/login/", "", gin.H{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var loginBody struct {
		Token struct {
			Access string `json:"access"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginBody))
	access := loginBody.Token.Access

	ts.provider.Reset()
	rec, body := ts.request(t, http.MethodPut, "/auth/change-email/", access, gin.H{
		"new_email": "new@x.com",
		"password":  "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, body["message"])

	msgs := ts.provider.Sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"new@x.com"}, msgs[0].To)

	token := ts.linkSegments(t, "/verify-email-change/")[0]
	rec, body = ts.request(t, http.MethodGet, "/verify-email-change/"+token+"/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "new@x.com", body["email"])

	// Заявка удалена: повтор дает 400
	rec, body = ts.request(t, http.MethodGet, "/verify-email-change/"+token+"/", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", body["error"])

	u, err := ts.store.Users().FindByEmail("new@x.com")
	require.NoError(t, err)
	assert.True(t, u.IsEmailVerified)
}

func TestEmailChange_RequiresVerifiedEmail(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	access, _ := ts.register(t, "alice@example.com", "password123")

	rec, _ := ts.request(t, http.MethodPut, "/auth/change-email/", access, gin.H{
		"new_email": "new@x.com",
		"password":  "password123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/auth/profile/"},
		{http.MethodPost, "/auth/change-password/"},
		{http.MethodDelete, "/auth/delete-account/"},
		{http.MethodGet, "/superadmin/"},
	} {
		rec, _ := ts.request(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestRoleGuards(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	// student с подтвержденным email
	accessStudent, _ := ts.register(t, "student@example.com", "password123")
	ts.markVerified(t, "student@example.com")

	rec, _ := ts.request(t, http.MethodGet, "/student/", accessStudent, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.request(t, http.MethodGet, "/superadmin/", accessStudent, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// superadmin проходит и на teacher-эндпоинт (read-only предикат)
	ts.cfg.Admin.Email = "root@example.com"
	ts.cfg.Admin.Password = "admin-password-1"
	require.NoError(t, seedFirstAdmin(ts.store, ts.cfg))

	rec, _ = ts.request(t, http.MethodPost, "/login/", "", gin.H{
		"email": "root@example.com", "password": "admin-password-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var loginBody struct {
		Token struct {
			Access string `json:"access"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginBody))

	rec, _ = ts.request(t, http.MethodGet, "/superadmin/", loginBody.Token.Access, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.request(t, http.MethodGet, "/teacher/", loginBody.Token.Access, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	access, refresh := ts.register(t, "alice@example.com", "password123")

	// verify
	rec, _ := ts.request(t, http.MethodPost, "/token/verify/", "", gin.H{"token": access})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.request(t, http.MethodPost, "/token/verify/", "", gin.H{"token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// refresh с ротацией
	rec, body := ts.request(t, http.MethodPost, "/token/refresh/", "", gin.H{"refresh": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	newRefresh := body["refresh"].(string)
	require.NotEqual(t, refresh, newRefresh)

	// Потребленный refresh отклонен
	rec, _ = ts.request(t, http.MethodPost, "/token/refresh/", "", gin.H{"refresh": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// obtain
	rec, body = ts.request(t, http.MethodPost, "/token/", "", gin.H{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["access"])
	assert.NotEmpty(t, body["refresh"])
}

func TestProfileEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	access, _ := ts.register(t, "alice@example.com", "password123")

	rec, body := ts.request(t, http.MethodGet, "/auth/profile/", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", body["email"])

	rec, body = ts.request(t, http.MethodPut, "/auth/profile/", access, gin.H{
		"first_name": "Alice",
		"last_name":  "Liddell",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", body["first_name"])
	assert.Equal(t, "Liddell", body["last_name"])

	rec, body = ts.request(t, http.MethodGet, "/auth/verification-status/", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["is_verified"])
	assert.Equal(t, "email", body["auth_provider"])
}

func TestCheckEmail(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "password123")

	rec, body := ts.request(t, http.MethodGet, "/check-email/?email=alice@example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["exists"])

	rec, body = ts.request(t, http.MethodGet, "/check-email/?email=ghost@example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["exists"])

	rec, _ = ts.request(t, http.MethodGet, "/check-email/", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimiting(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.cfg.RateLimit.Enabled = true

	payload := gin.H{"email": "ghost@example.com"}
	for i := 0; i < ts.cfg.RateLimit.Requests; i++ {
		rec, _ := ts.request(t, http.MethodPost, "/send-password-reset-email/", "", payload)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := ts.request(t, http.MethodPost, "/send-password-reset-email/", "", payload)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "non_field_errors")
}

func TestDeleteAccountScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	access, _ := ts.register(t, "alice@example.com", "password123")

	rec, _ := ts.request(t, http.MethodDelete, "/auth/delete-account/", access, gin.H{
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Токен мертв вместе с аккаунтом
	rec, _ = ts.request(t, http.MethodGet, "/auth/profile/", access, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
