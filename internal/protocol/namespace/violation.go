package namespace

import (
	"fmt"

	"walletlink/internal/protocol/reason"
)

// Violation is a namespace failure tied to one namespace key. Its Reason is
// sent to the peer as is.
type Violation struct {
	Key    string
	Reason reason.Reason
}

func (v *Violation) Error() string {
	return fmt.Sprintf("namespace %q: %s", v.Key, v.Reason.Message)
}

func violation(key string, c reason.Coded, format string, args ...any) *Violation {
	return &Violation{Key: key, Reason: c.Reason().WithMessage(fmt.Sprintf(format, args...))}
}
