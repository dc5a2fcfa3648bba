// Package commands implements the bot's local chat commands: the
// !-prefixed handlers that run in-process, without the home controller.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"casabot/pkg/casabot/actions"
)

// Handler runs one local command. args is the raw text after the command
// name, already trimmed.
type Handler func(ctx context.Context, args string) (string, error)

// Command is a registered local command.
type Command struct {
	// Name is the bare command name, without the "!" prefix.
	Name string

	// Description is one line for !help and the model's tool description.
	Description string

	// Usage shows the argument syntax, e.g. "!weather <city>".
	Usage string

	Run Handler
}

// Registry holds the local commands. It satisfies the dispatch executor's
// CommandInvoker interface.
type Registry struct {
	byName map[string]Command
	order  []string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewRegistry creates an empty command registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName: make(map[string]Command),
		logger: logger.With("component", "commands"),
	}
}

// Register adds a command. Re-registering a name overwrites the previous
// handler with a warning.
func (r *Registry) Register(cmd Command) {
	name := strings.ToLower(strings.TrimPrefix(cmd.Name, "!"))
	cmd.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		r.logger.Warn("command re-registered, overwriting", "command", name)
	} else {
		r.order = append(r.order, name)
	}
	r.byName[name] = cmd
}

// List returns all commands sorted by name.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)

	out := make([]Command, 0, len(names))
	for _, n := range names {
		out = append(out, r.byName[n])
	}
	return out
}

// RegisterActions mirrors every registered command into the action
// catalog as a local-command definition, so the catalog stays the single
// inventory of everything the bot can dispatch. Call after all commands
// are registered.
func (r *Registry) RegisterActions(catalog *actions.Registry) {
	for _, cmd := range r.List() {
		catalog.Register(&actions.Definition{
			ID:          "!" + cmd.Name,
			Kind:        actions.KindLocalCommand,
			Description: cmd.Description,
		})
	}
}

// Has reports whether a command with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[strings.ToLower(strings.TrimPrefix(name, "!"))]
	return ok
}

// Invoke runs the named command with the given argument text.
func (r *Registry) Invoke(ctx context.Context, name, args string) (string, error) {
	key := strings.ToLower(strings.TrimPrefix(name, "!"))

	r.mu.RLock()
	cmd, ok := r.byName[key]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown command %q", name)
	}

	r.logger.Debug("running command", "command", key)
	return cmd.Run(ctx, strings.TrimSpace(args))
}

// ParseBang splits a "!command args" message. Returns ok=false when the
// text is not a bang command.
func ParseBang(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") || len(text) < 2 {
		return "", "", false
	}
	rest := text[1:]
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		return strings.ToLower(rest[:i]), strings.TrimSpace(rest[i:]), true
	}
	return strings.ToLower(rest), "", true
}
