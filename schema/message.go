package schema

import "github.com/google/uuid"

// MessageType distinguishes an agent being invoked from it producing a
// result. Every forward has a matching return (or terminates the run).
type MessageType string

const (
	MessageForward MessageType = "forward"
	MessageReturn  MessageType = "return"
)

// Message is one entry in the user-visible conversation log: a record of an
// agent being invoked (forward) or producing a result (return). A
// forward/return pair shares a CallID.
type Message struct {
	Type     MessageType
	Sender   string
	Receiver string
	Content  string
	CallID   string
}

// NewCallID mints a fresh unique call id for a forward/return pair.
func NewCallID() string {
	return uuid.NewString()
}
