package agent

import (
	"fmt"

	"github.com/clawsync/clawsync/internal/ratelimit"
)

// RejectionReason names why admission turned a message away.
type RejectionReason string

const (
	RejectSessionRate RejectionReason = "session_rate"
	RejectGlobalRate  RejectionReason = "global_rate"
	RejectTooLong     RejectionReason = "too_long"
	RejectEmpty       RejectionReason = "empty"
)

// RejectionError reports an admission failure with a message suitable
// for sending back to the user as-is.
type RejectionError struct {
	Reason  RejectionReason
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// Guard performs admission checks before a message reaches the model.
// Checks run in a fixed order: session rate, global rate, then length.
// An oversized message therefore still consumes a rate token.
type Guard struct {
	session   *ratelimit.Limiter
	global    *ratelimit.Limiter
	maxLength int
}

// NewGuard creates an admission guard. globalKey requests share one
// bucket under the fixed key "global".
func NewGuard(session, global *ratelimit.Limiter, maxLength int) *Guard {
	if maxLength <= 0 {
		maxLength = 4000
	}
	return &Guard{session: session, global: global, maxLength: maxLength}
}

// Admit checks a message against the rate and length limits. A nil
// return admits the message.
func (g *Guard) Admit(sessionKey, message string) error {
	if !g.session.Allow(sessionKey) {
		return &RejectionError{
			Reason:  RejectSessionRate,
			Message: "You're sending messages too quickly. Please wait a moment and try again.",
		}
	}
	if !g.global.Allow("global") {
		return &RejectionError{
			Reason:  RejectGlobalRate,
			Message: "The assistant is handling a lot of traffic right now. Please try again shortly.",
		}
	}
	if len(message) == 0 {
		return &RejectionError{
			Reason:  RejectEmpty,
			Message: "Please send a message with some content.",
		}
	}
	if len(message) > g.maxLength {
		return &RejectionError{
			Reason: RejectTooLong,
			Message: fmt.Sprintf("That message is too long (%d characters). Please keep it under %d characters.",
				len(message), g.maxLength),
		}
	}
	return nil
}
