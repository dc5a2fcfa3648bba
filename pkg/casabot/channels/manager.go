package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MessageHandler processes one inbound message and returns the ordered
// replies to send back. Implemented by the router.
type MessageHandler func(ctx context.Context, channel, chatID, text string) []string

// Manager fans in messages from every registered channel and runs the
// handler. Messages from the same conversation are processed strictly one
// at a time; different conversations run concurrently.
type Manager struct {
	channels map[string]Channel
	handler  MessageHandler
	logger   *slog.Logger

	// workers holds one serial queue per active conversation.
	workers   map[string]chan *IncomingMessage
	workersMu sync.Mutex

	listenWg sync.WaitGroup
	workerWg sync.WaitGroup

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a channel manager that feeds messages to handler.
func NewManager(handler MessageHandler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		channels: make(map[string]Channel),
		workers:  make(map[string]chan *IncomingMessage),
		handler:  handler,
		logger:   logger.With("component", "channels"),
	}
}

// Register adds a channel. Must be called before Start.
func (m *Manager) Register(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := ch.Name()
	if _, exists := m.channels[name]; exists {
		return fmt.Errorf("channel %q already registered", name)
	}
	m.channels[name] = ch
	m.logger.Info("channel registered", "channel", name)
	return nil
}

// Start connects all registered channels and begins listening. A channel
// failing to connect is logged but does not stop the others.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.mu.RLock()
	snapshot := make(map[string]Channel, len(m.channels))
	for k, v := range m.channels {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	if len(snapshot) == 0 {
		m.logger.Warn("no channels registered")
		return nil
	}

	var connected int
	for name, ch := range snapshot {
		if err := ch.Connect(m.ctx); err != nil {
			m.logger.Error("channel connect failed", "channel", name, "error", err)
			continue
		}
		connected++
		m.logger.Info("channel connected", "channel", name)

		m.listenWg.Add(1)
		go func(c Channel) {
			defer m.listenWg.Done()
			m.listen(c)
		}(ch)
	}

	if connected == 0 {
		return fmt.Errorf("no channel connected successfully")
	}
	return nil
}

// Stop disconnects all channels and waits for in-flight handlers.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.RLock()
	for name, ch := range m.channels {
		if err := ch.Disconnect(); err != nil {
			m.logger.Warn("channel disconnect failed", "channel", name, "error", err)
		}
	}
	m.mu.RUnlock()

	m.listenWg.Wait()

	m.workersMu.Lock()
	for _, q := range m.workers {
		close(q)
	}
	m.workers = make(map[string]chan *IncomingMessage)
	m.workersMu.Unlock()

	m.workerWg.Wait()
	m.logger.Info("channel manager stopped")
}

// Send delivers text to a chat on a named channel. Used by the scheduler
// for digests and by anything else that replies out-of-band.
func (m *Manager) Send(ctx context.Context, channel, chatID, text string) error {
	m.mu.RLock()
	ch, ok := m.channels[channel]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown channel %q", channel)
	}
	return ch.Send(ctx, chatID, &OutgoingMessage{Content: text})
}

// listen drains one channel's incoming stream into per-conversation queues.
func (m *Manager) listen(ch Channel) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case msg, ok := <-ch.Receive():
			if !ok {
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}
			m.enqueue(msg)
		}
	}
}

// enqueue routes a message to its conversation's serial worker, creating
// the worker on first use.
func (m *Manager) enqueue(msg *IncomingMessage) {
	key := msg.Channel + "/" + msg.ChatID

	m.workersMu.Lock()
	q, ok := m.workers[key]
	if !ok {
		q = make(chan *IncomingMessage, 32)
		m.workers[key] = q
		m.workerWg.Add(1)
		go m.runWorker(q)
	}
	m.workersMu.Unlock()

	select {
	case q <- msg:
	default:
		m.logger.Warn("conversation queue full, dropping message",
			"channel", msg.Channel, "chat", msg.ChatID)
	}
}

// runWorker processes one conversation's messages in order.
func (m *Manager) runWorker(q chan *IncomingMessage) {
	defer m.workerWg.Done()
	for msg := range q {
		m.process(msg)
	}
}

func (m *Manager) process(msg *IncomingMessage) {
	m.logger.Debug("message received",
		"channel", msg.Channel, "chat", msg.ChatID, "from", msg.FromName)

	replies := m.handler(m.ctx, msg.Channel, msg.ChatID, msg.Content)
	for _, text := range replies {
		if text == "" {
			continue
		}
		if err := m.Send(m.ctx, msg.Channel, msg.ChatID, text); err != nil {
			m.logger.Warn("reply send failed",
				"channel", msg.Channel, "chat", msg.ChatID, "error", err)
		}
	}
}
