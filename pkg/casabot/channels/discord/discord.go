// Package discord implements a slim Discord transport using discordgo.
// Text messages only; threads, media and interactive components are out
// of scope for this bot.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"casabot/pkg/casabot/channels"
)

// Config holds Discord channel configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// AllowedChannels restricts which channel IDs the bot responds in.
	// Empty means respond everywhere.
	AllowedChannels []string `yaml:"allowed_channels"`
}

// Discord implements channels.Channel over the discordgo gateway.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	messages       chan *channels.IncomingMessage
	connected      atomic.Bool
	messagesClosed atomic.Bool
}

// New creates a Discord channel instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway WebSocket connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)
	d.logger.Info("discord connected", "bot", session.State.User.Username)
	return nil
}

// Disconnect closes the gateway connection and the message stream.
func (d *Discord) Disconnect() error {
	d.connected.Store(false)
	if d.session != nil {
		if err := d.session.Close(); err != nil {
			d.logger.Warn("discord close failed", "error", err)
		}
	}
	if d.messagesClosed.CompareAndSwap(false, true) {
		close(d.messages)
	}
	d.logger.Info("discord disconnected")
	return nil
}

// Send posts text to the given Discord channel ID.
func (d *Discord) Send(ctx context.Context, to string, msg *channels.OutgoingMessage) error {
	if !d.connected.Load() {
		return channels.ErrChannelDisconnected
	}
	if _, err := d.session.ChannelMessageSend(to, msg.Content); err != nil {
		return fmt.Errorf("discord: sending message: %w", err)
	}
	return nil
}

// Receive returns the incoming message stream.
func (d *Discord) Receive() <-chan *channels.IncomingMessage {
	return d.messages
}

// IsConnected reports connection state.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// onMessageCreate forwards inbound text messages, skipping the bot's own
// and anything outside the allowlist.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if m.Content == "" {
		return
	}
	if !d.channelAllowed(m.ChannelID) {
		return
	}

	msg := &channels.IncomingMessage{
		ID:        m.ID,
		Channel:   "discord",
		From:      m.Author.ID,
		FromName:  m.Author.Username,
		ChatID:    m.ChannelID,
		IsGroup:   m.GuildID != "",
		Content:   m.Content,
		Timestamp: time.Now(),
	}
	if ts := m.Timestamp; !ts.IsZero() {
		msg.Timestamp = ts
	}

	if d.messagesClosed.Load() {
		return
	}
	select {
	case d.messages <- msg:
	default:
		d.logger.Warn("incoming queue full, dropping message", "chat", msg.ChatID)
	}
}

func (d *Discord) channelAllowed(id string) bool {
	if len(d.cfg.AllowedChannels) == 0 {
		return true
	}
	for _, allowed := range d.cfg.AllowedChannels {
		if allowed == id {
			return true
		}
	}
	return false
}

var _ channels.Channel = (*Discord)(nil)
