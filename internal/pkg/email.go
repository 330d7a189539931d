package pkg

import (
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer 发送 HTML 邮件；未配置 Host 时 Enabled 返回 false
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Enabled() bool { return m != nil && m.cfg.Host != "" }

func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.Enabled() {
		return Unavailable("email is not configured")
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: m.cfg.Host}
	return d.DialAndSend(msg)
}

func ResetCodeHTML(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hello,</p><p>Your PulseLoop password reset code is <b style="font-size:18px;">%s</b>.</p><p>It expires in %d minutes. Do not share it with anyone.</p>`,
		code, int(ttl.Minutes()))
}

func InvitationHTML(inviterName, signupURL string) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
<h2>You're invited to PulseLoop</h2>
<p><b>%s</b> has invited you to join PulseLoop, the community for nurses and healthcare professionals.</p>
<p><a href="%s" style="background:#0d9488;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none;">Accept invitation</a></p>
<p>If the button does not work, copy this link into your browser:<br>%s</p>
</div>`, html.EscapeString(inviterName), signupURL, signupURL)
}
