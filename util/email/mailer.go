package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"
)

//go:embed templates
var templateFS embed.FS

type Mailer struct {
	host     string
	port     int
	username string
	password string
	sender   string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(host string, port int, username, password, sender string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		sender:   sender,
		send:     smtp.SendMail,
	}
}

// Enabled is false when no SMTP host is configured; Send is then a no-op.
func (m *Mailer) Enabled() bool {
	return m != nil && m.host != ""
}

// Send renders templateFile with data. Templates define "subject" and "htmlBody".
func (m *Mailer) Send(recipient string, data interface{}, templateFile string) error {
	if !m.Enabled() {
		return nil
	}

	subject, body, err := render(templateFile, data)
	if err != nil {
		return err
	}

	msg := buildMessage(m.sender, recipient, subject, body, time.Now())

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var sendErr error
	for i := 1; i <= 3; i++ {
		sendErr = m.send(addr, auth, m.sender, []string{recipient}, msg)
		if sendErr == nil {
			return nil
		}
		if i < 3 {
			time.Sleep(time.Duration(i) * 250 * time.Millisecond)
		}
	}
	return fmt.Errorf("sending mail to %s: %w", recipient, sendErr)
}

func render(templateFile string, data interface{}) (string, string, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return "", "", err
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return "", "", err
	}
	body := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(body, "htmlBody", data); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject.String()), body.String(), nil
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return b.Bytes()
}
