// Package email provides OTP email dispatch via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
)

// Sender dispatches one templated OTP message. Implementations report
// delivery failure through the returned error.
type Sender interface {
	SendOTP(to, otp string) error
}

// Config holds SMTP configuration.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer sends mail through a plain-auth SMTP relay.
type Mailer struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewMailer creates a new SMTP mailer.
func NewMailer(config Config) *Mailer {
	return &Mailer{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   smtp.PlainAuth("", config.Username, config.Password, config.Host),
	}
}

// IsConfigured returns true if the mailer has enough configuration to send.
func (m *Mailer) IsConfigured() bool {
	return m.config.Host != "" && m.config.Port != "" && m.config.From != ""
}

type otpTemplateData struct {
	AppName       string
	OTP           string
	ExpiryMinutes int
}

var otpTemplate = template.Must(template.New("otp").Parse(`<html>
<body>
  <h3>Your {{.AppName}} verification code</h3>
  <p>Enter this code to verify your email address:</p>
  <h1 style="font-size: 2em; letter-spacing: 5px;">{{.OTP}}</h1>
  <p>This code will expire in {{.ExpiryMinutes}} minutes.</p>
  <p>If you did not request this, you can ignore this email.</p>
</body>
</html>`))

// RenderOTPBody renders the HTML body for an OTP message.
func RenderOTPBody(otp string, expiryMinutes int) (string, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, otpTemplateData{
		AppName:       "Undertone",
		OTP:           otp,
		ExpiryMinutes: expiryMinutes,
	})
	if err != nil {
		return "", fmt.Errorf("render otp template: %w", err)
	}
	return buf.String(), nil
}

// SendOTP sends the verification code to the given address.
func (m *Mailer) SendOTP(to, otp string) error {
	if !m.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	html, err := RenderOTPBody(otp, 10)
	if err != nil {
		return err
	}

	from := m.config.From
	if m.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: Your Undertone verification code\r\n")
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", html)

	return smtp.SendMail(m.server, m.auth, m.config.From, []string{to}, msg.Bytes())
}
