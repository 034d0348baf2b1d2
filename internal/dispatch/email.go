package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/config"
)

// ErrTransport is matched by every mail delivery failure.
var ErrTransport = errors.New("dispatch: transport failed")

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("dispatch: no recipients")

// Transport delivers a fully formed MIME message.
type Transport interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// Message is one report email.
type Message struct {
	To       []string
	Subject  string
	Body     string
	PDF      []byte
	Filename string
}

// Mailer composes report emails and hands them to a Transport.
type Mailer struct {
	transport Transport
	from      string
	defaults  Message
	now       func() time.Time
	logger    arbor.ILogger
}

// NewMailer creates a mailer; recipients, subject and body in cfg are used
// when a Message leaves them empty.
func NewMailer(transport Transport, cfg config.EmailConfig, logger arbor.ILogger) *Mailer {
	return &Mailer{
		transport: transport,
		from:      cfg.From,
		defaults: Message{
			To:      cfg.To,
			Subject: cfg.Subject,
			Body:    cfg.Body,
		},
		now:    time.Now,
		logger: logger,
	}
}

// SendReport builds and sends msg. Failures are logged and reported as false.
func (m *Mailer) SendReport(ctx context.Context, msg Message) bool {
	if err := m.Send(ctx, msg); err != nil {
		m.logger.Error().
			Strs("to", m.withDefaults(msg).To).
			Err(err).
			Msg("Report email not sent")
		return false
	}
	return true
}

// Send is SendReport with the error returned instead of logged.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	msg = m.withDefaults(msg)
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: %w", ErrTransport, ErrNoRecipients)
	}

	raw, err := BuildMIME(m.from, msg, m.now())
	if err != nil {
		return fmt.Errorf("%w: compose: %w", ErrTransport, err)
	}

	if err := m.transport.Send(ctx, m.from, msg.To, raw); err != nil {
		if errors.Is(err, ErrTransport) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	m.logger.Info().
		Strs("to", msg.To).
		Str("attachment", msg.Filename).
		Int("bytes", len(raw)).
		Msg("Report email sent")
	return nil
}

func (m *Mailer) withDefaults(msg Message) Message {
	if len(msg.To) == 0 {
		msg.To = m.defaults.To
	}
	if msg.Subject == "" {
		msg.Subject = m.defaults.Subject
	}
	if msg.Body == "" {
		msg.Body = m.defaults.Body
	}
	return msg
}

// BuildMIME renders msg as multipart/mixed: a text/plain body plus the PDF as
// an application/pdf attachment.
func BuildMIME(from string, msg Message, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: from}})

	to := make([]*mail.Address, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	th.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(pw, msg.Body); err != nil {
		return nil, err
	}
	if err := pw.Close(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	if len(msg.PDF) > 0 {
		var ah mail.AttachmentHeader
		ah.SetContentType("application/pdf", nil)
		ah.Set("Content-Transfer-Encoding", "base64")
		ah.SetFilename(msg.Filename)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, err
		}
		if _, err := aw.Write(msg.PDF); err != nil {
			return nil, err
		}
		if err := aw.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SMTPTransport sends mail over SMTP, upgrading with STARTTLS when the
// server offers it.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string

	// TLSConfig overrides the STARTTLS configuration.
	TLSConfig *tls.Config
}

// NewSMTPTransport builds a transport from the email config.
func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

// Send delivers msg to every recipient in a single SMTP session.
func (t *SMTPTransport) Send(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %w", ErrTransport, addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: handshake: %w", ErrTransport, err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := t.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: t.Host}
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("%w: starttls: %w", ErrTransport, err)
		}
	}

	if t.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", t.Username, t.Password, t.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("%w: auth: %w", ErrTransport, err)
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%w: mail from: %w", ErrTransport, err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(strings.TrimSpace(rcpt)); err != nil {
			return fmt.Errorf("%w: rcpt %s: %w", ErrTransport, rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: data: %w", ErrTransport, err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("%w: write: %w", ErrTransport, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close data: %w", ErrTransport, err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("%w: quit: %w", ErrTransport, err)
	}
	return nil
}
