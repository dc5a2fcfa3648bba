package channels

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeChannel is an in-memory transport for manager tests.
type fakeChannel struct {
	name     string
	incoming chan *IncomingMessage

	mu        sync.Mutex
	sent      []string
	connected bool
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, incoming: make(chan *IncomingMessage, 16)}
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeChannel) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.connected = false
		close(f.incoming)
	}
	return nil
}

func (f *fakeChannel) Send(ctx context.Context, to string, msg *OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"|"+msg.Content)
	return nil
}

func (f *fakeChannel) Receive() <-chan *IncomingMessage { return f.incoming }

func (f *fakeChannel) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestManagerRoutesRepliesInOrder(t *testing.T) {
	fake := newFakeChannel("test")
	handler := func(ctx context.Context, channel, chatID, text string) []string {
		return []string{"first:" + text, "second:" + text}
	}

	m := NewManager(handler, slog.Default())
	if err := m.Register(fake); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	fake.incoming <- &IncomingMessage{Channel: "test", ChatID: "c1", Content: "hello"}

	waitFor(t, func() bool { return len(fake.sentMessages()) == 2 })
	sent := fake.sentMessages()
	if sent[0] != "c1|first:hello" || sent[1] != "c1|second:hello" {
		t.Errorf("sent = %v, want ordered two-message reply", sent)
	}
}

func TestManagerSerializesPerConversation(t *testing.T) {
	fake := newFakeChannel("test")

	var mu sync.Mutex
	inFlight := map[string]int{}
	maxInFlight := map[string]int{}

	handler := func(ctx context.Context, channel, chatID, text string) []string {
		mu.Lock()
		inFlight[chatID]++
		if inFlight[chatID] > maxInFlight[chatID] {
			maxInFlight[chatID] = inFlight[chatID]
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight[chatID]--
		mu.Unlock()
		return []string{"ok"}
	}

	m := NewManager(handler, slog.Default())
	m.Register(fake)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	for i := 0; i < 3; i++ {
		fake.incoming <- &IncomingMessage{Channel: "test", ChatID: "a", Content: "x"}
		fake.incoming <- &IncomingMessage{Channel: "test", ChatID: "b", Content: "y"}
	}

	waitFor(t, func() bool { return len(fake.sentMessages()) == 6 })

	mu.Lock()
	defer mu.Unlock()
	for chat, peak := range maxInFlight {
		if peak > 1 {
			t.Errorf("conversation %q had %d concurrent handlers, want 1", chat, peak)
		}
	}
}

func TestManagerSendUnknownChannel(t *testing.T) {
	m := NewManager(func(ctx context.Context, channel, chatID, text string) []string { return nil }, slog.Default())
	if err := m.Send(context.Background(), "nope", "c1", "hi"); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestManagerDuplicateRegistration(t *testing.T) {
	m := NewManager(nil, slog.Default())
	if err := m.Register(newFakeChannel("dup")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := m.Register(newFakeChannel("dup")); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}
