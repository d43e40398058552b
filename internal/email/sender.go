package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envío de correos transaccionales.
type Sender interface {
	SendWelcome(ctx context.Context, toEmail, firstName, verificationURL string) error
	SendOTP(ctx context.Context, toEmail, code string, expiresInMinutes int) error
	SendPasswordReset(ctx context.Context, toEmail, resetURL string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) fail() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

func (s *disabledSender) SendWelcome(_ context.Context, _, _, _ string) error {
	return s.fail()
}

func (s *disabledSender) SendOTP(_ context.Context, _, _ string, _ int) error {
	return s.fail()
}

func (s *disabledSender) SendPasswordReset(_ context.Context, _, _ string) error {
	return s.fail()
}
