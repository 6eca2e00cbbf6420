// Package ipc defines the message envelope exchanged between tasks. Message
// routing and delivery are built on top of this envelope and are not part of
// the kernel core.
package ipc

// PayloadMax defines the capacity of a message payload buffer.
const PayloadMax = 256

// Message is the fixed-layout envelope for inter-task communication.
type Message struct {
	// SenderID identifies the task that produced the message.
	SenderID uint32

	// Channel identifies the channel the message was sent on.
	Channel uint32

	// Len is the number of valid payload bytes.
	Len uint16

	// Payload is the inline message buffer.
	Payload [PayloadMax]byte
}

// Data returns the valid portion of the message payload. A length larger
// than the buffer capacity yields an empty view.
func (m *Message) Data() []byte {
	if int(m.Len) > PayloadMax {
		return m.Payload[:0]
	}
	return m.Payload[:m.Len]
}
