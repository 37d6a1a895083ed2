package chat

import "time"

// Transcript is the ordered, oldest-first list of stored turns for one session.
type Transcript []Turn

// Clone returns an independent copy safe to hand out of the store.
func (t Transcript) Clone() Transcript {
	copied := make(Transcript, len(t))
	copy(copied, t)
	return copied
}

// Record captures a transient anonymous conversation.
type Record struct {
	ID         string     `json:"id"`
	Transcript Transcript `json:"transcript"`
	LastActive time.Time  `json:"lastActive"`
}
