package email

// Provider определяет интерфейс для отправки email
type Provider interface {
	// Send отправляет email сообщение
	Send(msg *Message) error

	// Close закрывает соединение с провайдером
	Close() error
}
