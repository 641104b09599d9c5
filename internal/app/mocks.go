package app

import (
	"sync"

	"uru_backend/internal/email"
)

// MockEmailProvider используется для тестов и локальной разработки.
// Запоминает отправленные письма вместо реальной доставки.
type MockEmailProvider struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *MockEmailProvider) Send(msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, *msg)
	return nil
}

func (m *MockEmailProvider) Close() error { return nil }

// Sent возвращает копию отправленных писем
func (m *MockEmailProvider) Sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]email.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// Reset очищает накопленные письма
func (m *MockEmailProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
