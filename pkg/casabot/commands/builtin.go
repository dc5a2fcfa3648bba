package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"casabot/pkg/casabot/scheduler"
	"casabot/pkg/casabot/weather"
)

const defaultDigestHour = 8

// RegisterBuiltins wires the standard command set into the registry.
// subs may be nil when digests are disabled; the sub commands then
// report that the feature is off.
func RegisterBuiltins(reg *Registry, wc *weather.Client, subs *scheduler.Store) {
	reg.Register(Command{
		Name:        "ping",
		Description: "Check that the bot is alive",
		Usage:       "!ping",
		Run: func(ctx context.Context, args string) (string, error) {
			return "pong 🏓", nil
		},
	})

	reg.Register(Command{
		Name:        "help",
		Description: "List available commands",
		Usage:       "!help",
		Run: func(ctx context.Context, args string) (string, error) {
			var b strings.Builder
			b.WriteString("Available commands:\n")
			for _, cmd := range reg.List() {
				fmt.Fprintf(&b, "  %s — %s\n", cmd.Usage, cmd.Description)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	})

	reg.Register(Command{
		Name:        "weather",
		Description: "Current weather for a city",
		Usage:       "!weather <city>",
		Run: func(ctx context.Context, args string) (string, error) {
			if args == "" {
				return "", fmt.Errorf("usage: !weather <city>")
			}
			return wc.Summary(ctx, args)
		},
	})

	reg.Register(Command{
		Name:        "sub",
		Description: "Subscribe this chat to a daily weather digest",
		Usage:       "!sub <city> [hour]",
		Run: func(ctx context.Context, args string) (string, error) {
			if subs == nil {
				return "", fmt.Errorf("digests are not enabled")
			}
			chat, ok := ChatFrom(ctx)
			if !ok {
				return "", fmt.Errorf("no conversation to subscribe")
			}
			city, hour, err := parseSubArgs(args)
			if err != nil {
				return "", err
			}

			// Verify the city resolves before persisting.
			loc, err := wc.Geocode(ctx, city)
			if err != nil {
				return "", err
			}
			sub := scheduler.Subscription{
				ChatID:  chat.ChatID,
				Channel: chat.Channel,
				City:    loc.Name,
				Hour:    hour,
			}
			if err := subs.Subscribe(sub); err != nil {
				return "", err
			}
			return fmt.Sprintf("Subscribed: daily weather for %s, %s at %02d:00.", loc.Name, loc.Country, hour), nil
		},
	})

	reg.Register(Command{
		Name:        "unsub",
		Description: "Cancel this chat's weather digest",
		Usage:       "!unsub",
		Run: func(ctx context.Context, args string) (string, error) {
			if subs == nil {
				return "", fmt.Errorf("digests are not enabled")
			}
			chat, ok := ChatFrom(ctx)
			if !ok {
				return "", fmt.Errorf("no conversation to unsubscribe")
			}
			removed, err := subs.Unsubscribe(chat.ChatID)
			if err != nil {
				return "", err
			}
			if !removed {
				return "This chat has no weather digest.", nil
			}
			return "Weather digest cancelled.", nil
		},
	})
}

// parseSubArgs splits "!sub <city> [hour]". The city may contain spaces;
// a trailing bare number is the delivery hour.
func parseSubArgs(args string) (city string, hour int, err error) {
	if args == "" {
		return "", 0, fmt.Errorf("usage: !sub <city> [hour]")
	}
	hour = defaultDigestHour

	fields := strings.Fields(args)
	if len(fields) > 1 {
		if h, convErr := strconv.Atoi(fields[len(fields)-1]); convErr == nil {
			if h < 0 || h > 23 {
				return "", 0, fmt.Errorf("hour must be between 0 and 23")
			}
			hour = h
			fields = fields[:len(fields)-1]
		}
	}
	return strings.Join(fields, " "), hour, nil
}
