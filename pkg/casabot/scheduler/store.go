package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Subscription is one chat's standing request for a daily weather digest.
type Subscription struct {
	// ChatID is the conversation the digest is delivered to.
	ChatID string `json:"chat_id"`

	// Channel names the transport ("whatsapp", "discord", "cli").
	Channel string `json:"channel"`

	// City is geocoded on every delivery, so renames stay correct.
	City string `json:"city"`

	// Hour is the local delivery hour, 0-23.
	Hour int `json:"hour"`

	CreatedAt time.Time `json:"created_at"`
}

// Store persists subscriptions as a single JSON file. The file is small
// (one entry per chat), so every mutation rewrites it whole.
type Store struct {
	path string
	mu   sync.RWMutex
	subs map[string]Subscription
}

// OpenStore loads the subscription file at path, creating parent
// directories as needed. A missing file is an empty store.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, subs: make(map[string]Subscription)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading subscriptions: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.subs); err != nil {
			return nil, fmt.Errorf("parsing subscriptions: %w", err)
		}
	}
	return s, nil
}

// Subscribe adds or replaces the subscription for a chat.
func (s *Store) Subscribe(sub Subscription) error {
	if sub.ChatID == "" {
		return fmt.Errorf("chat ID is required")
	}
	if sub.City == "" {
		return fmt.Errorf("city is required")
	}
	if sub.Hour < 0 || sub.Hour > 23 {
		return fmt.Errorf("hour %d out of range", sub.Hour)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ChatID] = sub
	return s.save()
}

// Unsubscribe removes a chat's subscription. Returns false when none existed.
func (s *Store) Unsubscribe(chatID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[chatID]; !ok {
		return false, nil
	}
	delete(s.subs, chatID)
	return true, s.save()
}

// Get returns the subscription for a chat, if any.
func (s *Store) Get(chatID string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[chatID]
	return sub, ok
}

// List returns all subscriptions sorted by chat ID.
func (s *Store) List() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}

// save writes the file atomically (tmp + rename). Caller holds the lock.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	data, err := json.MarshalIndent(s.subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding subscriptions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing subscriptions: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing subscriptions file: %w", err)
	}
	return nil
}
