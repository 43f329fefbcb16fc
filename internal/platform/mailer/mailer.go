// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer provides transactional email dispatch for the platform.

It abstracts the email provider behind a small interface so domain services
never depend on a concrete vendor SDK.

Architecture:

  - Mailer: The dispatch contract consumed by the invite and identity services.
  - ResendMailer: Production implementation backed by the Resend API.
  - LogMailer: Development implementation that logs instead of sending.

Dispatch failures are surfaced to callers — whether a failure is fatal is a
per-workflow decision (an invitation stays 'pending' and can be resent).
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Mailer defines the transactional email dispatch contract.
type Mailer interface {

	/*
		SendInvitation dispatches a role-invitation email with the acceptance link.

		Parameters:
		  - context: context.Context
		  - input: InvitationEmail

		Returns:
		  - error: Provider/transport failures
	*/
	SendInvitation(context context.Context, input InvitationEmail) error

	/*
		SendPasswordReset dispatches a password-reset email with the callback link.

		Parameters:
		  - context: context.Context
		  - input: PasswordResetEmail

		Returns:
		  - error: Provider/transport failures
	*/
	SendPasswordReset(context context.Context, input PasswordResetEmail) error
}

// InvitationEmail holds the rendering inputs for an invitation dispatch.
type InvitationEmail struct {
	To           string
	FirstName    string
	Role         string
	AcceptURL    string // Callback URL with the opaque token embedded
	TempPassword string // Present for instructor invitations only
}

// PasswordResetEmail holds the rendering inputs for a reset dispatch.
type PasswordResetEmail struct {
	To        string
	FirstName string
	ResetURL  string
}

// # Resend Implementation

// ResendMailer implements [Mailer] using the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

// NewResendMailer creates a production mailer backed by Resend.
func NewResendMailer(apiKey, from string, logger *slog.Logger) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("mailer: resend API key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("mailer: from address is required")
	}

	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger,
	}, nil
}

// SendInvitation dispatches the invitation email via Resend.
func (mailer *ResendMailer) SendInvitation(context context.Context, input InvitationEmail) error {
	params := &resend.SendEmailRequest{
		From:    mailer.from,
		To:      []string{input.To},
		Subject: fmt.Sprintf("You've been invited to Atheneo as %s", article(input.Role)),
		Html:    invitationTemplate(input),
	}

	sent, err := mailer.client.Emails.SendWithContext(context, params)
	if err != nil {
		return fmt.Errorf("mailer_invitation_send_failed: %w", err)
	}

	mailer.logger.Info("invitation_email_sent",
		slog.String("to", input.To),
		slog.String("provider_id", sent.Id),
	)
	return nil
}

// SendPasswordReset dispatches the password reset email via Resend.
func (mailer *ResendMailer) SendPasswordReset(context context.Context, input PasswordResetEmail) error {
	params := &resend.SendEmailRequest{
		From:    mailer.from,
		To:      []string{input.To},
		Subject: "Reset your Atheneo password",
		Html:    passwordResetTemplate(input),
	}

	sent, err := mailer.client.Emails.SendWithContext(context, params)
	if err != nil {
		return fmt.Errorf("mailer_reset_send_failed: %w", err)
	}

	mailer.logger.Info("reset_email_sent",
		slog.String("to", input.To),
		slog.String("provider_id", sent.Id),
	)
	return nil
}

// # Development Implementation

// LogMailer implements [Mailer] by logging the message instead of sending it.
// Used in development and in tests where no provider credentials exist.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendInvitation logs the invitation instead of dispatching it.
func (mailer *LogMailer) SendInvitation(context context.Context, input InvitationEmail) error {
	mailer.logger.Info("invitation_email_logged",
		slog.String("to", input.To),
		slog.String("role", input.Role),
		slog.String("accept_url", input.AcceptURL),
	)
	return nil
}

// SendPasswordReset logs the reset instead of dispatching it.
func (mailer *LogMailer) SendPasswordReset(context context.Context, input PasswordResetEmail) error {
	mailer.logger.Info("reset_email_logged",
		slog.String("to", input.To),
		slog.String("reset_url", input.ResetURL),
	)
	return nil
}

// article prefixes the role with the correct indefinite article.
func article(role string) string {
	switch role {
	case "admin", "instructor":
		return "an " + role
	default:
		return "a " + role
	}
}
