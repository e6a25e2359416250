// Package timer tracks the one-second retransmit deadline every
// in-flight message carries, per spec: created_at + 1s, reset on resend.
package timer

import "time"

// RetransmitInterval is the fixed per-message retransmit deadline.
const RetransmitInterval = 1 * time.Second

// Deadline is the expiry clock attached to an outstanding message.
type Deadline struct {
	expiresAt time.Time
}

// New starts a deadline RetransmitInterval from now.
func New() Deadline {
	return Deadline{expiresAt: time.Now().Add(RetransmitInterval)}
}

// IsTimeout reports whether the deadline has elapsed.
func (d Deadline) IsTimeout() bool {
	return time.Now().After(d.expiresAt)
}

// Reset pushes the deadline RetransmitInterval out from now; called
// whenever the message it guards is re-sent.
func (d *Deadline) Reset() {
	d.expiresAt = time.Now().Add(RetransmitInterval)
}
