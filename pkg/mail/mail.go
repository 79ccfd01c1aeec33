package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/iota-uz/newsletter/pkg/configuration"
)

type Sender interface {
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
}

// TransportError is returned when a message could not be handed to the transport.
type TransportError struct {
	Recipient string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mail: send to %s: %v", e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewSender picks the transport named in opts.
func NewSender(opts configuration.MailOptions, logger *logrus.Entry) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case configuration.MailTransportSMTP:
		return NewSMTPSender(opts, logger), nil
	case configuration.MailTransportLog, "":
		return NewLogSender(opts.SenderAddress, logger), nil
	default:
		return nil, fmt.Errorf("mail: unknown transport %q", opts.Transport)
	}
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer        dialer
	host          string
	senderAddress string
	senderName    string
	logger        *logrus.Entry
	m             *metrics
}

func NewSMTPSender(opts configuration.MailOptions, logger *logrus.Entry) *SMTPSender {
	if logger == nil {
		logger = logrusNop()
	}
	d := gomail.NewDialer(opts.Host, opts.Port, opts.User, opts.Password)
	if opts.InsecureSkipVerify {
		logger.Warn("mail: InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	logger.WithFields(logrus.Fields{
		"host": opts.Host,
		"port": opts.Port,
		"user": opts.User,
	}).Info("mail: smtp sender initialized")

	return &SMTPSender{
		dialer:        d,
		host:          opts.Host,
		senderAddress: opts.SenderAddress,
		senderName:    opts.SenderName,
		logger:        logger,
		m:             getMetrics(),
	}
}

// Send makes a single attempt. The message carries a text/plain part with a text/html alternative.
// gomail has no context support, so a cancelled ctx abandons the wait but not the dial.
func (s *SMTPSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Recipient: recipient, Err: err}
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(msg)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		s.m.sendTotal.WithLabelValues(s.host, "failure").Inc()
		return &TransportError{Recipient: recipient, Err: err}
	}
	s.m.sendTotal.WithLabelValues(s.host, "success").Inc()
	s.logger.WithField("recipient", recipient).Debug("mail: sent")
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	senderAddress string
	logger        *logrus.Entry
}

func NewLogSender(senderAddress string, logger *logrus.Entry) *LogSender {
	if logger == nil {
		logger = logrusNop()
	}
	return &LogSender{senderAddress: senderAddress, logger: logger}
}

func (s *LogSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Recipient: recipient, Err: err}
	}
	s.logger.WithFields(logrus.Fields{
		"from":       s.senderAddress,
		"to":         recipient,
		"subject":    subject,
		"text_bytes": len(textBody),
		"html_bytes": len(htmlBody),
	}).Info("mail: message logged instead of sent")
	return nil
}

func logrusNop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
