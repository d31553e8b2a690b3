package mail

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

// Mailer delivers receipt email. key identifies the mail template context
// (form id + handler) and is carried through for logging and queue retries.
type Mailer interface {
	SendMail(key, to, subject, body string) error
}

type SMTPMailer struct {
	cfg *cfgpkg.Config
	log *zap.SugaredLogger
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) Mailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

func (m *SMTPMailer) SendMail(key, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Mail.Sender)
	msg.SetHeader("To", to)
	if m.cfg.Mail.BCC != "" {
		msg.SetHeader("Bcc", m.cfg.Mail.BCC)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(
		m.cfg.Mail.SMTPHost,
		m.cfg.Mail.SMTPPort,
		m.cfg.Mail.SMTPUser,
		m.cfg.Mail.SMTPPassword,
	)

	if err := d.DialAndSend(msg); err != nil {
		m.log.Warnw("mail send failed", "key", key, "to", to, "err", err)
		return err
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
