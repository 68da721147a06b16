package email

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"

	"TourScanner/internal/domain"
	"TourScanner/internal/infrastructure/notify"
	"TourScanner/internal/ports"
)

const channelName = "email"

// Config carries SMTP submission settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Subject  string
	Timeout  time.Duration
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Notifier mails the digest of new records over STARTTLS with PLAIN auth.
type Notifier struct {
	cfg    Config
	sender sender
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier validates cfg and prepares an SMTP client. From defaults to Username.
func NewNotifier(cfg Config) (*Notifier, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Host == "" {
		return nil, errors.New("email notifier: smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("email notifier: sender address is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("email notifier: at least one receiver is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "email notifier: smtp client")
	}
	return &Notifier{cfg: cfg, sender: client}, nil
}

// Notify sends one message listing all records.
func (n *Notifier) Notify(ctx context.Context, records []domain.Record) error {
	msg, err := n.buildMessage(records)
	if err != nil {
		return &domain.NotifyError{Channel: channelName, Err: err}
	}
	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return &domain.NotifyError{Channel: channelName, Err: eris.Wrapf(err, "send via %s", n.cfg.Host)}
	}
	return nil
}

func (n *Notifier) buildMessage(records []domain.Record) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, eris.Wrapf(err, "sender %q", n.cfg.From)
	}
	if err := msg.To(n.cfg.To...); err != nil {
		return nil, eris.Wrap(err, "receivers")
	}
	msg.Subject(n.cfg.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, notify.FormatDigest(records))
	return msg, nil
}
