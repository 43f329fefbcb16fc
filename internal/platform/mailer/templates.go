// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import "fmt"

// invitationTemplate renders the invitation email body.
//
// Plain inline HTML keeps the dependency surface small; the SPA owns the
// visual identity, emails only need to be legible and carry the link.
func invitationTemplate(input InvitationEmail) string {
	credentialBlock := ""
	if input.TempPassword != "" {
		credentialBlock = fmt.Sprintf(
			`<p>Your temporary password is <code>%s</code>. You will be asked to change it after your first sign-in.</p>`,
			input.TempPassword,
		)
	}

	return fmt.Sprintf(`
		<h2>Welcome to Atheneo, %s!</h2>
		<p>You have been invited to join Atheneo as <strong>%s</strong>.</p>
		<p><a href="%s">Accept your invitation</a></p>
		%s
		<p>This invitation expires in 7 days.</p>`,
		input.FirstName, input.Role, input.AcceptURL, credentialBlock,
	)
}

// passwordResetTemplate renders the password-reset email body.
func passwordResetTemplate(input PasswordResetEmail) string {
	return fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Hi %s, someone requested a password reset for your Atheneo account.</p>
		<p><a href="%s">Choose a new password</a></p>
		<p>If this wasn't you, you can safely ignore this email.</p>`,
		input.FirstName, input.ResetURL,
	)
}
