package services_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"uru_backend/internal/auth"
	"uru_backend/internal/config"
	"uru_backend/internal/email"
	"uru_backend/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// recordingProvider запоминает письма вместо доставки
type recordingProvider struct {
	mu   sync.Mutex
	sent []email.Message
}

func (p *recordingProvider) Send(msg *email.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, *msg)
	return nil
}

func (p *recordingProvider) Close() error { return nil }

func (p *recordingProvider) messages() []email.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]email.Message, len(p.sent))
	copy(out, p.sent)
	return out
}

func (p *recordingProvider) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}

// lastLinkSegment вытаскивает из последнего письма сегмент ссылки после
// marker и до следующего "/"
func (p *recordingProvider) lastLinkSegments(t *testing.T, marker string) []string {
	t.Helper()
	msgs := p.messages()
	if len(msgs) == 0 {
		t.Fatalf("no emails were sent")
	}
	body := msgs[len(msgs)-1].HTMLBody
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("marker %q not found in email body", marker)
	}
	rest := body[idx+len(marker):]
	if end := strings.IndexAny(rest, "\"<"); end >= 0 {
		rest = rest[:end]
	}
	return strings.Split(strings.Trim(rest, "/"), "/")
}

type testEnv struct {
	store    *repositories.MemoryStore
	provider *recordingProvider
	mailer   *email.Mailer
	codec    *auth.PurposeTokenCodec
	issuer   *auth.SessionIssuer
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
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

	provider := &recordingProvider{}

	return &testEnv{
		store:    repositories.NewMemoryStore(),
		provider: provider,
		mailer:   email.NewMailer(provider),
		codec:    auth.NewPurposeTokenCodec(cfg.JWT.Secret),
		issuer: auth.NewSessionIssuer(
			cfg.JWT.Secret,
			time.Duration(cfg.JWT.AccessTTLMin)*time.Minute,
			time.Duration(cfg.JWT.RefreshTTLDays)*24*time.Hour,
			cfg.JWT.RotateRefresh,
			auth.NewRedisBlacklist(rdb),
		),
		cfg: cfg,
	}
}
