// Package whatsapp implements the WhatsApp transport using whatsmeow, a
// native Go WhatsApp Web client. Sessions persist in SQLite; first login
// prints a QR code for pairing.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for the session store.

	"casabot/pkg/casabot/channels"
)

// Config holds WhatsApp channel configuration.
type Config struct {
	// SessionDir is the directory holding the SQLite session database.
	SessionDir string `yaml:"session_dir"`

	// RespondToGroups enables handling messages from group chats.
	RespondToGroups bool `yaml:"respond_to_groups"`

	// RespondToDMs enables handling direct messages.
	RespondToDMs bool `yaml:"respond_to_dms"`

	// Trigger, when non-empty, requires group messages to contain this
	// keyword before the bot reacts. DMs are always handled.
	Trigger string `yaml:"trigger"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SessionDir:      "./data/whatsapp",
		RespondToGroups: false,
		RespondToDMs:    true,
	}
}

// WhatsApp implements channels.Channel over whatsmeow.
type WhatsApp struct {
	cfg    Config
	client *whatsmeow.Client
	logger *slog.Logger

	messages       chan *channels.IncomingMessage
	connected      atomic.Bool
	messagesClosed atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a WhatsApp channel instance.
func New(cfg Config, logger *slog.Logger) *WhatsApp {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = DefaultConfig().SessionDir
	}
	return &WhatsApp{
		cfg:      cfg,
		logger:   logger.With("component", "whatsapp"),
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// Name returns "whatsapp".
func (w *WhatsApp) Name() string { return "whatsapp" }

// Connect opens the session store and connects to WhatsApp Web. With no
// stored session the QR pairing flow runs in the background, so startup
// is never blocked on a scan.
func (w *WhatsApp) Connect(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	dbPath := filepath.Join(w.cfg.SessionDir, "whatsapp.db")
	container, err := sqlstore.New(w.ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL", dbPath),
		waLog.Noop)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}

	device, err := container.GetFirstDevice(w.ctx)
	if err != nil {
		return fmt.Errorf("loading device: %w", err)
	}

	store.SetOSInfo("Casabot", [3]uint32{1, 0, 0})

	w.client = whatsmeow.NewClient(device, waLog.Noop)
	w.client.AddEventHandler(w.handleEvent)
	w.client.EnableAutoReconnect = true

	if w.client.Store.ID == nil {
		w.logger.Info("no whatsapp session, QR pairing required")
		go func() {
			if err := w.loginWithQR(w.ctx); err != nil {
				w.logger.Warn("qr login incomplete", "error", err)
			}
		}()
		return nil
	}

	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	w.connected.Store(true)
	w.logger.Info("whatsapp connected", "jid", w.client.Store.ID.String())
	return nil
}

// loginWithQR drives the first-login pairing flow, logging each QR code
// for the operator to scan.
func (w *WhatsApp) loginWithQR(ctx context.Context) error {
	qrChan, err := w.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("getting QR channel: %w", err)
	}
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connecting for QR: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-qrChan:
			if !ok {
				return fmt.Errorf("QR channel closed")
			}
			switch evt.Event {
			case "code":
				// The raw code can be rendered with any QR tool, or the
				// companion app's pairing screen.
				w.logger.Info("scan this code with WhatsApp > Linked Devices",
					"qr", evt.Code)
			case "success":
				w.connected.Store(true)
				w.logger.Info("whatsapp paired", "jid", w.client.Store.ID.String())
				return nil
			case "timeout":
				return fmt.Errorf("QR code expired before scan")
			}
		}
	}
}

// Disconnect closes the connection and the incoming message stream.
func (w *WhatsApp) Disconnect() error {
	w.connected.Store(false)
	if w.cancel != nil {
		w.cancel()
	}
	if w.client != nil {
		w.client.Disconnect()
	}
	if w.messagesClosed.CompareAndSwap(false, true) {
		close(w.messages)
	}
	w.logger.Info("whatsapp disconnected")
	return nil
}

// Send delivers a text message to the given JID.
func (w *WhatsApp) Send(ctx context.Context, to string, msg *channels.OutgoingMessage) error {
	if !w.connected.Load() {
		return channels.ErrChannelDisconnected
	}

	jid, err := parseJID(to)
	if err != nil {
		return fmt.Errorf("invalid JID %q: %w", to, err)
	}

	waMsg := &waE2E.Message{Conversation: proto.String(msg.Content)}
	if _, err := w.client.SendMessage(ctx, jid, waMsg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Receive returns the incoming message stream.
func (w *WhatsApp) Receive() <-chan *channels.IncomingMessage {
	return w.messages
}

// IsConnected reports connection state.
func (w *WhatsApp) IsConnected() bool { return w.connected.Load() }

// handleEvent dispatches whatsmeow events.
func (w *WhatsApp) handleEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		w.handleMessage(evt)
	case *events.Connected:
		w.connected.Store(true)
		w.logger.Info("whatsapp connection established")
	case *events.Disconnected:
		w.connected.Store(false)
		w.logger.Warn("whatsapp connection lost")
	case *events.LoggedOut:
		w.connected.Store(false)
		w.logger.Warn("whatsapp session logged out, re-pairing required")
	}
}

// handleMessage converts a whatsmeow message event into the unified
// incoming message shape, applying group/DM filtering.
func (w *WhatsApp) handleMessage(evt *events.Message) {
	if evt.Info.IsFromMe {
		return
	}
	if evt.Info.Chat.Server == "broadcast" {
		return
	}

	isGroup := evt.Info.IsGroup
	if isGroup && !w.cfg.RespondToGroups {
		return
	}
	if !isGroup && !w.cfg.RespondToDMs {
		return
	}

	content := extractText(evt.Message)
	if content == "" {
		return
	}
	if isGroup && w.cfg.Trigger != "" &&
		!strings.Contains(strings.ToLower(content), strings.ToLower(w.cfg.Trigger)) {
		return
	}

	msg := &channels.IncomingMessage{
		ID:        string(evt.Info.ID),
		Channel:   "whatsapp",
		From:      evt.Info.Sender.String(),
		FromName:  evt.Info.PushName,
		ChatID:    evt.Info.Chat.String(),
		IsGroup:   isGroup,
		Content:   content,
		Timestamp: evt.Info.Timestamp,
	}

	if w.messagesClosed.Load() {
		return
	}
	select {
	case w.messages <- msg:
	default:
		w.logger.Warn("incoming queue full, dropping message", "chat", msg.ChatID)
	}
}

// extractText pulls plain text from the two text-bearing message shapes.
// Media messages yield "" and are ignored upstream.
func extractText(waMsg *waE2E.Message) string {
	if waMsg == nil {
		return ""
	}
	if waMsg.Conversation != nil {
		return waMsg.GetConversation()
	}
	if ext := waMsg.ExtendedTextMessage; ext != nil {
		return ext.GetText()
	}
	return ""
}

// parseJID converts a string to a WhatsApp JID. Accepts full JIDs
// ("5511999999999@s.whatsapp.net", "1234-5678@g.us") and bare phone
// numbers.
func parseJID(s string) (types.JID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.JID{}, fmt.Errorf("empty JID")
	}

	if strings.Contains(s, "@") {
		return types.ParseJID(s)
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) < 10 {
		return types.JID{}, fmt.Errorf("phone number too short: %s", s)
	}
	return types.NewJID(digits, types.DefaultUserServer), nil
}

var _ channels.Channel = (*WhatsApp)(nil)
