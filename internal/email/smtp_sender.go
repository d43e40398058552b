package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender envía correos via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	appName  string
	useTLS   bool
}

func NewSMTPSender(host string, port int, username, password, from, fromName, appName string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		appName:  appName,
		useTLS:   useTLS,
	}, nil
}

func (s *SMTPSender) SendWelcome(_ context.Context, toEmail, firstName, verificationURL string) error {
	subject := "Welcome to " + s.appName
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to %s! Please verify your email address by visiting:\n%s\n\nIf you did not create this account, you can ignore this message.\n",
		firstName,
		s.appName,
		verificationURL,
	)
	return s.send(toEmail, subject, body)
}

func (s *SMTPSender) SendOTP(_ context.Context, toEmail, code string, expiresInMinutes int) error {
	subject := "Your Verification Code - " + s.appName
	body := fmt.Sprintf(
		"Your verification code is %s.\nIt expires in %d minutes.\n",
		code,
		expiresInMinutes,
	)
	return s.send(toEmail, subject, body)
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, toEmail, resetURL string) error {
	subject := "Password Reset Request"
	body := fmt.Sprintf(
		"We received a request to reset your password. Visit the link below to choose a new one:\n%s\n\nIf you did not request this, no action is needed.\n",
		resetURL,
	)
	return s.send(toEmail, subject, body)
}

func (s *SMTPSender) send(toEmail, subject, body string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	msg := buildMessage(s.from, s.fromName, toEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.useTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{
			ServerName: s.host,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.host)
		if err != nil {
			return err
		}
		defer client.Quit()

		if auth != nil {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
		if err := client.Mail(s.from); err != nil {
			return err
		}
		if err := client.Rcpt(toEmail); err != nil {
			return err
		}
		writer, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := writer.Write([]byte(msg)); err != nil {
			_ = writer.Close()
			return err
		}
		return writer.Close()
	}

	return smtp.SendMail(addr, auth, s.from, []string{toEmail}, []byte(msg))
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
