package services

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"text/template"

	"learning-platform/backend/config"
	"learning-platform/backend/metrics"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailMessage struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// NewMailer returns a SendGrid mailer when an API key is configured and a
// log-only mailer otherwise.
func NewMailer(cfg *config.Config, logger *log.Logger) Mailer {
	if cfg.SendGridAPIKey == "" {
		return &LogMailer{logger: logger}
	}
	return &SendGridMailer{
		key:        cfg.SendGridAPIKey,
		from:       sgmail.NewEmail(cfg.AppName, cfg.MailFrom),
		subjPrefix: "[" + cfg.AppName + "] ",
	}
}

type SendGridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func (m *SendGridMailer) Send(ctx context.Context, msg EmailMessage) error {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	message := sgmail.NewV3Mail()
	message.SetFrom(m.from)
	message.AddPersonalizations(p)
	message.AddContent(sgmail.NewContent("text/plain", msg.Text))

	client := sendgrid.NewSendClient(m.key)
	res, err := client.SendWithContext(ctx, message)
	if err != nil {
		metrics.EmailsFailed.Inc()
		return errors.Wrap(err, "sendgrid send")
	}
	if res.StatusCode >= http.StatusBadRequest {
		metrics.EmailsFailed.Inc()
		return errors.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

type LogMailer struct {
	logger *log.Logger
}

func (m *LogMailer) Send(_ context.Context, msg EmailMessage) error {
	m.logger.Printf("mail to=%s subject=%q\n%s", msg.ToEmail, msg.Subject, msg.Text)
	return nil
}

var badgeEmail = template.Must(template.New("badge").Parse(`Hola {{.Name}}:

¡Felicidades! Completaste "{{.Course}}" y obtuviste la insignia "{{.Badge}}".
{{if .Description}}
{{.Description}}
{{end}}
Consulta todas tus insignias en {{.ProfileURL}}
`))

type badgeEmailData struct {
	Name        string
	Course      string
	Badge       string
	Description string
	ProfileURL  string
}

func renderBadgeEmail(data badgeEmailData) (string, error) {
	var buf bytes.Buffer
	if err := badgeEmail.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
