package docrelay

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

const (
	defaultEmailSubject = "Invoice"
	defaultEmailBody    = "Invoice"
)

type smtpSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type EmailSinkOptions struct {
	Server   string
	Port     int
	Login    string
	Password string
	From     string
	To       string
	Subject  string
	Body     string

	// sender overrides the SMTP client, for tests.
	sender smtpSender
}

// EmailSink delivers each staged document as an attachment on a
// fixed-subject message through an authenticated SMTP relay with
// mandatory STARTTLS.
type EmailSink struct {
	sender  smtpSender
	from    string
	to      string
	subject string
	body    string
}

func NewEmailSink(opts EmailSinkOptions) (*EmailSink, error) {
	from := strings.TrimSpace(opts.From)
	to := strings.TrimSpace(opts.To)
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: email sink needs from and to addresses", ErrInvalidInput)
	}
	subject := strings.TrimSpace(opts.Subject)
	if subject == "" {
		subject = defaultEmailSubject
	}
	body := opts.Body
	if strings.TrimSpace(body) == "" {
		body = defaultEmailBody
	}
	sender := opts.sender
	if sender == nil {
		server := strings.TrimSpace(opts.Server)
		if server == "" {
			return nil, fmt.Errorf("%w: email sink needs an smtp server", ErrInvalidInput)
		}
		client, err := mail.NewClient(server,
			mail.WithPort(opts.Port),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Login),
			mail.WithPassword(opts.Password),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
		if err != nil {
			return nil, err
		}
		sender = client
	}
	return &EmailSink{
		sender:  sender,
		from:    from,
		to:      to,
		subject: subject,
		body:    body,
	}, nil
}

func (s *EmailSink) Deliver(ctx context.Context, filename string, content []byte) error {
	if s == nil {
		return ErrInvalidState
	}
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("%w: from address: %v", ErrSinkUnavailable, err)
	}
	if err := msg.To(s.to); err != nil {
		return fmt.Errorf("%w: to address: %v", ErrSinkUnavailable, err)
	}
	msg.Subject(s.subject)
	msg.SetBodyString(mail.TypeTextPlain, s.body)
	if err := msg.AttachReader(filename, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("%w: attach %s: %v", ErrSinkUnavailable, filename, err)
	}
	if err := s.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: send %s: %v", ErrSinkUnavailable, filename, err)
	}
	return nil
}
