// Package hub fans scoring results out to renderer WebSocket connections
// using a channel-based broadcast loop.
package hub

// Message is one encoded frame queued for clients. Subject scopes delivery:
// clients that follow a subject only receive messages for it, and an empty
// Subject reaches everyone.
type Message struct {
	Subject string
	Data    []byte
}

// NewMessage creates a message for subject from pre-encoded JSON.
func NewMessage(subject string, data []byte) Message {
	return Message{Subject: subject, Data: data}
}
