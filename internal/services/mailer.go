package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gopkg.in/gomail.v2"
)

// OTPPurpose says what a code is for, which picks the email template.
type OTPPurpose string

const (
	PurposeVerification  OTPPurpose = "verification"
	PurposePasswordReset OTPPurpose = "password_reset"
)

// SendTimeout bounds a single SMTP delivery attempt. Exceeding it is a
// delivery failure, not a handler failure.
const SendTimeout = 10 * time.Second

// EmailSender delivers one-time codes. Constructed once at process start
// and injected into the auth service.
type EmailSender interface {
	SendOTP(ctx context.Context, to, code string, purpose OTPPurpose) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns an EmailSender that delivers over SMTP.
func NewSMTPMailer(host string, port int, username, password, from string) EmailSender {
	return &smtpMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *smtpMailer) SendOTP(ctx context.Context, to, code string, purpose OTPPurpose) error {
	subject := "Your AgriMitra verification code"
	intro := "Use this code to verify your email address."
	if purpose == PurposePasswordReset {
		subject = "Your AgriMitra password reset code"
		intro = "Use this code to reset your password."
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>%s</p><h2>%s</h2><p>The code expires in 10 minutes.</p>", intro, code))

	// gomail has no context support, so run the send in a goroutine and
	// bound it ourselves. A timed-out send keeps running in the
	// background; the SMTP server may still deliver it.
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	timer := time.NewTimer(SendTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("mailer: send to %s failed: %v", to, err)
		}
		return err
	case <-timer.C:
		log.Printf("mailer: send to %s timed out after %s", to, SendTimeout)
		return fmt.Errorf("mail send timed out after %s", SendTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
