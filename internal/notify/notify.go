// Package notify delivers the recovery emails.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Message is a plain text email.
type Message struct {
	Subject string
	Body    string
}

// Notifier sends a message to an address. Delivery is best effort, callers log failures.
type Notifier interface {
	Send(ctx context.Context, to string, msg Message) error
}

// VerificationCode returns the message carrying a recovery code.
func VerificationCode(title, code string, ttl time.Duration) Message {
	return Message{
		Subject: title + ": password recovery code",
		Body: fmt.Sprintf(
			"Your password recovery code is %s\n\nIt expires in %d minutes. "+
				"If you did not request it you can ignore this message.\n",
			code, int(ttl.Minutes()),
		),
	}
}

// PasswordChanged returns the confirmation sent after a reset.
func PasswordChanged(title string) Message {
	return Message{
		Subject: title + ": password changed",
		Body: "Your password was changed and every open session was signed out.\n\n" +
			"If you did not do this, request a new recovery code right away.\n",
	}
}
