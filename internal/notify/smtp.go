package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// SMTPSink delivers notifications as plain-text mail through the business's
// SMTP relay.
type SMTPSink struct {
	Host         string
	Port         string
	User         string
	Password     string
	From         string
	AdminEmail   string
	BusinessName string
	Log          *zap.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSink(host, port, user, password, from, adminEmail, businessName string, log *zap.Logger) *SMTPSink {
	return &SMTPSink{
		Host:         host,
		Port:         port,
		User:         user,
		Password:     password,
		From:         from,
		AdminEmail:   adminEmail,
		BusinessName: businessName,
		Log:          log,
		send:         smtp.SendMail,
	}
}

func (s *SMTPSink) SendBookingConfirmation(ctx context.Context, d BookingDetails) error {
	subject := fmt.Sprintf("%s: your booking for %s is confirmed", s.BusinessName, d.Date)
	verb := "is"
	if len(d.Hours) > 1 {
		verb = "are"
	}
	body := fmt.Sprintf("Hi %s,\r\n\r\nYour lesson%s on %s at %s %s confirmed.\r\n\r\nSee you then!\r\n%s\r\n",
		d.CustomerName, plural(len(d.Hours)), d.Date, hourList(d.Hours), verb, s.BusinessName)
	return s.deliver(ctx, d.CustomerEmail, subject, body)
}

func (s *SMTPSink) SendAdminNotification(ctx context.Context, d BookingDetails, eventID string) error {
	subject := fmt.Sprintf("New booking: %s on %s", d.CustomerName, d.Date)
	body := fmt.Sprintf("Customer: %s\r\nEmail: %s\r\nPhone: %s\r\nDate: %s\r\nHours: %s\r\nEvent: %s\r\n",
		d.CustomerName, d.CustomerEmail, d.CustomerPhone, d.Date, hourList(d.Hours), eventID)
	return s.deliver(ctx, s.AdminEmail, subject, body)
}

func (s *SMTPSink) SendCancellationNotice(ctx context.Context, email, name, date, note string) error {
	subject := fmt.Sprintf("%s: your booking for %s was cancelled", s.BusinessName, date)
	body := fmt.Sprintf("Hi %s,\r\n\r\nYour booking on %s has been cancelled.\r\n", name, date)
	if note != "" {
		body += fmt.Sprintf("\r\nNote: %s\r\n", note)
	}
	return s.deliver(ctx, email, subject, body)
}

func (s *SMTPSink) deliver(_ context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("no recipient")
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	addr := s.Host + ":" + s.Port
	if err := s.send(addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func hourList(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%02d:00", h)
	}
	return strings.Join(parts, ", ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
