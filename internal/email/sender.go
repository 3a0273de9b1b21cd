// Package email delivers the market's transactional mail: address
// verification and password-reset messages for the account layer.
package email

import "context"

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
