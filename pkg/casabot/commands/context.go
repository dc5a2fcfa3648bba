package commands

import "context"

type chatKey struct{}

// Chat identifies the conversation a command was invoked from. Handlers
// that act per-chat (subscriptions) read it from the context.
type Chat struct {
	Channel string
	ChatID  string
}

// WithChat attaches the originating conversation to the context.
func WithChat(ctx context.Context, channel, chatID string) context.Context {
	return context.WithValue(ctx, chatKey{}, Chat{Channel: channel, ChatID: chatID})
}

// ChatFrom extracts the originating conversation, if set.
func ChatFrom(ctx context.Context) (Chat, bool) {
	c, ok := ctx.Value(chatKey{}).(Chat)
	return c, ok
}
