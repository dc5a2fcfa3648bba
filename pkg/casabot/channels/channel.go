// Package channels defines the transport abstraction: each messaging
// platform (WhatsApp, Discord, the CLI) implements Channel to receive and
// send text messages in a unified way.
package channels

import (
	"context"
	"errors"
	"time"
)

// ErrChannelDisconnected is returned by Send when the underlying
// connection is down.
var ErrChannelDisconnected = errors.New("channel disconnected")

// Channel is the contract every transport implements.
type Channel interface {
	// Name returns the channel identifier (e.g. "whatsapp", "discord").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send delivers a message to the given chat.
	Send(ctx context.Context, to string, msg *OutgoingMessage) error

	// Receive returns the stream of incoming messages. The channel is
	// closed on Disconnect.
	Receive() <-chan *IncomingMessage

	// IsConnected reports current connection state.
	IsConnected() bool
}

// IncomingMessage is a text message received from any channel.
type IncomingMessage struct {
	// ID is the platform's message identifier.
	ID string

	// Channel identifies the source transport.
	Channel string

	// From is the sender identifier on the platform.
	From string

	// FromName is the sender display name, if available.
	FromName string

	// ChatID is the group or DM identifier replies go to.
	ChatID string

	// IsGroup marks group chats.
	IsGroup bool

	// Content is the message text.
	Content string

	Timestamp time.Time
}

// OutgoingMessage is a text reply headed to a chat.
type OutgoingMessage struct {
	Content string

	// ReplyTo optionally references the message being answered.
	ReplyTo string
}
