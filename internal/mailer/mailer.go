// Package mailer rapor ve şifre sıfırlama e-postalarını SMTP üzerinden gönderir.
package mailer

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("e-posta sunucusu yapılandırılmamış")

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// New SMTP_HOST tanımlı değilse her gönderimde ErrNotConfigured dönen bir Mailer verir.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return disabled{}
	}
	return &SMTP{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.MailFrom,
	}
}

type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return errors.New("alıcı adresi yok")
	}
	msg := build(s.from, m)

	// gomail context desteklemiyor; en azından iptal edilmiş istekte bağlantı açılmaz
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(msg); err != nil {
		return err
	}
	logger.Get().Info("E-posta gönderildi", zap.Strings("to", m.To), zap.String("subject", m.Subject))
	return nil
}

func build(from string, m Message) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)

	for _, a := range m.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		msg.Attach(a.Name, settings...)
	}
	return msg
}

type disabled struct{}

func (disabled) Send(_ context.Context, m Message) error {
	logger.Get().Warn("E-posta gönderilmedi, SMTP tanımlı değil", zap.String("subject", m.Subject))
	return ErrNotConfigured
}

// Recorder gönderilen mesajları bellekte tutar; testlerde ve SMTP'siz geliştirmede kullanılır.
type Recorder struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, m)
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.Sent...)
}
