package email

//go:generate mockgen -destination=../mocks/mock_mailer.go -package=mocks github.com/judovisa/auth-service/internal/email Sender

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"github.com/judovisa/auth-service/config"
	"github.com/judovisa/auth-service/internal/logger"
	"go.uber.org/zap"
)

// Sender delivers out-of-band mail. The raw reset token only ever leaves the
// service through here.
type Sender interface {
	SendPasswordReset(to, username, resetToken string) error
}

type SMTPSender struct {
	host        string
	port        int
	user        string
	pass        string
	from        string
	frontendURL string
	production  bool
	log         *zap.Logger
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:        cfg.SMTPHost,
		port:        cfg.SMTPPort,
		user:        cfg.SMTPUser,
		pass:        cfg.SMTPPass,
		from:        cfg.EmailFrom,
		frontendURL: cfg.FrontendURL,
		production:  cfg.IsProduction(),
		log:         logger.Named("email"),
	}
}

func (s *SMTPSender) SendPasswordReset(to, username, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, resetToken)

	// Without SMTP configured, development logs the link instead of sending.
	if s.host == "" {
		if s.production {
			return fmt.Errorf("smtp host not configured")
		}
		s.log.Info("password reset link (no SMTP configured)",
			zap.String("to", to),
			zap.String("url", resetURL),
		)
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Judovisa - Password reset")
	m.SetBody("text/plain", resetText(username, resetURL))
	m.AddAlternative("text/html", resetHTML(username, resetURL))

	d := mail.NewDialer(s.host, s.port, s.user, s.pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.host,
		InsecureSkipVerify: !s.production,
	}
	if s.port == 465 {
		d.SSL = true
	}

	if err := d.DialAndSend(m); err != nil {
		s.log.Error("smtp send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	s.log.Info("password reset email sent", zap.String("to", to))
	return nil
}

func resetText(username, resetURL string) string {
	return fmt.Sprintf(`Hi %s,

You requested a password reset for your Judovisa account.

Click the link below to choose a new password:
%s

The link is valid for 1 hour.

If you did not request a password reset you can ignore this message.
Your account stays safe.

The Judovisa team`, username, resetURL)
}

func resetHTML(username, resetURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; color: #333;">
  <div style="background: #1a1a2e; padding: 20px; border-radius: 8px 8px 0 0; text-align: center;">
    <h1 style="color: #e94560; margin: 0;">Judovisa</h1>
  </div>
  <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px; border: 1px solid #ddd;">
    <h2>Hi %s,</h2>
    <p>You requested a password reset for your Judovisa account.</p>
    <p>Click the button below to choose a new password:</p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="%s"
         style="background: #e94560; color: white; padding: 14px 28px;
                text-decoration: none; border-radius: 6px; font-size: 16px;
                font-weight: bold; display: inline-block;">
        Reset password
      </a>
    </div>
    <p style="color: #666; font-size: 14px;">The link is valid for <strong>1 hour</strong>.</p>
    <p style="color: #666; font-size: 14px;">
      If you did not request a password reset, ignore this message.
      Your account stays safe.
    </p>
    <hr style="border: none; border-top: 1px solid #ddd; margin: 20px 0;">
    <p style="color: #999; font-size: 12px;">
      If the button does not work, copy this link into your browser:<br>
      <a href="%s" style="color: #e94560; word-break: break-all;">%s</a>
    </p>
  </div>
</body>
</html>`, username, resetURL, resetURL, resetURL)
}
