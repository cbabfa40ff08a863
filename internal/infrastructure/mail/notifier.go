package mail

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// Notifier renders user notifications and queues them for delivery.
type Notifier struct {
	queue   ports.MailQueue
	appName string
}

func NewNotifier(queue ports.MailQueue, appName string) *Notifier {
	return &Notifier{queue: queue, appName: appName}
}

func (n *Notifier) PasswordResetLink(ctx context.Context, user *domain.User, link string, validFor time.Duration) error {
	msg := ports.MailMessage{
		To:       user.Email,
		ToName:   user.Name,
		Subject:  "Reset Password Notification",
		HTMLBody: n.resetHTML(user.Name, link, validFor),
		TextBody: n.resetText(user.Name, link, validFor),
	}
	if err := n.queue.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("queue reset mail: %w", err)
	}
	return nil
}

func (n *Notifier) resetText(name, link string, validFor time.Duration) string {
	return fmt.Sprintf(`Hello %s,

You are receiving this email because we received a password reset request for your account.

Reset your password: %s

This password reset link will expire in %d minutes.

If you did not request a password reset, no further action is required.

%s
`, name, link, int(validFor.Minutes()), n.appName)
}

func (n *Notifier) resetHTML(name, link string, validFor time.Duration) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
	<title>Reset Password</title>
</head>
<body style="margin: 0; padding: 24px; font-family: Arial, sans-serif; background-color: #f7f9fc; color: #333333;">
	<table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="border-collapse: collapse; background-color: #ffffff;">
		<tr>
			<td style="padding: 32px;">
				<p style="margin-top: 0;">Hello <strong>%s</strong>,</p>
				<p>You are receiving this email because we received a password reset request for your account.</p>
				<p style="text-align: center; padding: 16px 0;">
					<a href="%s" style="background-color: #2d3748; color: #ffffff; padding: 12px 24px; border-radius: 4px; text-decoration: none;">Reset Password</a>
				</p>
				<p>This password reset link will expire in %d minutes.</p>
				<p>If you did not request a password reset, no further action is required.</p>
				<p style="margin-bottom: 0;">%s</p>
			</td>
		</tr>
	</table>
</body>
</html>`, html.EscapeString(name), html.EscapeString(link), int(validFor.Minutes()), html.EscapeString(n.appName))
}
