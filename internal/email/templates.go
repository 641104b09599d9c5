package email

import (
	"fmt"
	"html/template"
	"strings"
)

// Шаблоны транзакционных писем. Ссылки собираются сервисами и приходят
// сюда уже готовыми.
var (
	verificationTpl = template.Must(template.New("verification").Parse(`
<p>Здравствуйте{{if .Name}}, {{.Name}}{{end}}!</p>
<p>Для подтверждения email перейдите по ссылке:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Ссылка действительна {{.TTLHours}} ч. Если вы не регистрировались, проигнорируйте это письмо.</p>
`))

	passwordResetTpl = template.Must(template.New("password_reset").Parse(`
<p>Здравствуйте{{if .Name}}, {{.Name}}{{end}}!</p>
<p>Для сброса пароля перейдите по ссылке:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Ссылка действительна {{.TTLHours}} ч. Если вы не запрашивали сброс, проигнорируйте это письмо.</p>
`))

	emailChangeTpl = template.Must(template.New("email_change").Parse(`
<p>Здравствуйте{{if .Name}}, {{.Name}}{{end}}!</p>
<p>Для подтверждения нового email перейдите по ссылке:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Ссылка действительна {{.TTLHours}} ч. Если вы не запрашивали смену email, проигнорируйте это письмо.</p>
`))
)

// Mailer собирает письма из шаблонов и отправляет их через Provider
type Mailer struct {
	provider Provider
}

func NewMailer(provider Provider) *Mailer {
	return &Mailer{provider: provider}
}

// SendVerification отправляет письмо подтверждения email
func (m *Mailer) SendVerification(to, name, link string, ttlHours int) error {
	return m.send(to, "Подтверждение email", verificationTpl, TemplateData{
		"Name": name, "Link": link, "TTLHours": ttlHours,
	})
}

// SendPasswordReset отправляет письмо сброса пароля
func (m *Mailer) SendPasswordReset(to, name, link string, ttlHours int) error {
	return m.send(to, "Сброс пароля", passwordResetTpl, TemplateData{
		"Name": name, "Link": link, "TTLHours": ttlHours,
	})
}

// SendEmailChange отправляет письмо подтверждения нового адреса.
// Уходит на НОВЫЙ адрес: владение именно им и подтверждается.
func (m *Mailer) SendEmailChange(to, name, link string, ttlHours int) error {
	return m.send(to, "Подтверждение смены email", emailChangeTpl, TemplateData{
		"Name": name, "Link": link, "TTLHours": ttlHours,
	})
}

func (m *Mailer) send(to, subject string, tpl *template.Template, data TemplateData) error {
	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return m.provider.Send(&Message{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: buf.String(),
	})
}
