package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/config"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
	"github.com/TSHgroup/hh25-backend/internal/infra/worker"
)

var (
	_ adapter.Mailer = (*SMTPMailer)(nil)
	_ adapter.Mailer = (*LogMailer)(nil)
	_ adapter.Mailer = (*AsyncMailer)(nil)
)

// NewMailer returns an SMTP mailer, or a log-only one when no host is configured.
func NewMailer(cfg config.MailConfig, log *zerolog.Logger, dev bool) adapter.Mailer {
	if cfg.Host == "" {
		return &LogMailer{log: log, dev: dev}
	}
	return &SMTPMailer{cfg: cfg}
}

type SMTPMailer struct {
	cfg config.MailConfig
}

func (m *SMTPMailer) Send(ctx context.Context, msg adapter.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, buildMessage(m.cfg.From, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from string, msg adapter.Mail) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// LogMailer only logs outgoing mail.
type LogMailer struct {
	log *zerolog.Logger
	dev bool
}

func (m *LogMailer) Send(ctx context.Context, msg adapter.Mail) error {
	logging.With(ctx, m.log).Info().
		Str("to", logging.Redact(msg.To, m.dev)).
		Str("subject", msg.Subject).
		Int("bytes", len(msg.HTML)).
		Msg("mail (not delivered, no smtp host)")
	return nil
}

// AsyncMailer hands delivery to the worker pool so request handlers never wait on SMTP.
type AsyncMailer struct {
	inner adapter.Mailer
	pool  *worker.Pool
}

func NewAsyncMailer(inner adapter.Mailer, pool *worker.Pool) *AsyncMailer {
	return &AsyncMailer{inner: inner, pool: pool}
}

// Send enqueues msg; the returned error only reports a full queue.
func (m *AsyncMailer) Send(_ context.Context, msg adapter.Mail) error {
	return m.pool.Submit("mail", func(ctx context.Context) error {
		return m.inner.Send(ctx, msg)
	})
}
