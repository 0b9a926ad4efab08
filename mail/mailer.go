package mail

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"tours_backend/domain"
)

// SMTPMailer sends transactional mail through the configured SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	email    string
	password string
	logger   *logrus.Logger
}

func NewSMTPMailer(host string, port int, email, password string, logger *logrus.Logger) domain.Mailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		email:    email,
		password: password,
		logger:   logger,
	}
}

func (mailer *SMTPMailer) send(to, subject, body string) error {
	message := gomail.NewMessage()
	message.SetHeader("From", mailer.email)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)

	dialer := gomail.NewDialer(mailer.host, mailer.port, mailer.email, mailer.password)
	if err := dialer.DialAndSend(message); err != nil {
		mailer.logger.Errorf("failed to send mail to %s: %s", to, err)
		return err
	}
	return nil
}

func (mailer *SMTPMailer) SendPasswordReset(to, name, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password and passwordConfirm to:\n%s\n\nThe link is valid for 10 minutes. If you didn't forget your password, please ignore this email.",
		name, resetURL,
	)
	return mailer.send(to, "Your password reset token (valid for 10 min)", body)
}

func (mailer *SMTPMailer) SendWelcome(to, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome aboard! We're glad to have you booking tours with us.", name)
	return mailer.send(to, "Welcome to the tours family!", body)
}
