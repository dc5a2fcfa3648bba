// Package scheduler delivers daily weather digests to subscribed chats.
// Uses robfig/cron for scheduling: one hourly tick checks which
// subscriptions are due at the current local hour.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"casabot/pkg/casabot/weather"
)

// Sender delivers a message to a chat on a named channel. Implemented by
// the channel manager.
type Sender interface {
	Send(ctx context.Context, channel, chatID, text string) error
}

// Scheduler fires weather digests for due subscriptions.
type Scheduler struct {
	store   *Store
	weather *weather.Client
	sender  Sender
	cron    *cron.Cron
	logger  *slog.Logger

	// running guards against a tick overlapping a slow previous one.
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// New creates a digest scheduler over the given subscription store.
func New(store *Store, wc *weather.Client, sender Sender, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:   store,
		weather: wc,
		sender:  sender,
		logger:  logger.With("component", "scheduler"),
	}
}

// Start begins the hourly tick. Stop with Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	if _, err := s.cron.AddFunc("0 * * * *", func() { s.tick(ctx, time.Now()) }); err != nil {
		return fmt.Errorf("registering digest tick: %w", err)
	}
	s.cron.Start()

	s.logger.Info("digest scheduler started", "subscriptions", len(s.store.List()))
	return nil
}

// Stop halts the cron loop and waits for a running tick's entries to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.logger.Info("digest scheduler stopped")
}

// tick delivers digests to every subscription due at now's hour.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("skipping digest tick, previous still running")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	hour := now.Hour()
	for _, sub := range s.store.List() {
		if sub.Hour != hour {
			continue
		}
		if err := s.deliver(ctx, sub); err != nil {
			s.logger.Warn("digest delivery failed",
				"chat", sub.ChatID, "city", sub.City, "error", err)
		}
	}
}

func (s *Scheduler) deliver(ctx context.Context, sub Subscription) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	summary, err := s.weather.Summary(ctx, sub.City)
	if err != nil {
		return fmt.Errorf("fetching weather: %w", err)
	}

	msg := "Good morning! Today's weather\n" + summary
	if err := s.sender.Send(ctx, sub.Channel, sub.ChatID, msg); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}

	s.logger.Info("digest delivered", "chat", sub.ChatID, "city", sub.City)
	return nil
}
