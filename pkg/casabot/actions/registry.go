package actions

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry holds the process-wide catalog of actions, keyed by ID and by
// external alias. It is populated at startup and read-heavy afterwards.
// Both kinds live in the one catalog: remote-webhook actions carry their
// full parameter schema here, while local-command entries are thin
// mirrors whose handlers stay in the command registry.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Definition
	byAlias map[string]*Definition
	order   []string
	logger  *slog.Logger
}

// NewRegistry creates an empty action registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:    make(map[string]*Definition),
		byAlias: make(map[string]*Definition),
		logger:  logger.With("component", "actions"),
	}
}

// Register adds an action definition to the catalog. Re-registering an
// existing ID overwrites the previous definition with a warning, which keeps
// hot-reload style re-registration cheap during development.
func (r *Registry) Register(def *Definition) {
	if def == nil || def.ID == "" {
		return
	}
	if len(def.ParamOrder) == 0 && len(def.Params) > 0 {
		def.ParamOrder = make([]string, 0, len(def.Params))
		for name := range def.Params {
			def.ParamOrder = append(def.ParamOrder, name)
		}
		sort.Strings(def.ParamOrder)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.byID[def.ID]; exists {
		r.logger.Warn("action re-registered, overwriting", "id", def.ID)
		// The previous alias must not keep resolving to the old schema.
		delete(r.byAlias, prev.Alias())
	} else {
		r.order = append(r.order, def.ID)
	}
	r.byID[def.ID] = def
	r.byAlias[def.Alias()] = def
}

// Find resolves an action by ID or external alias.
func (r *Registry) Find(idOrAlias string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.byID[idOrAlias]; ok {
		return def, true
	}
	def, ok := r.byAlias[idOrAlias]
	return def, ok
}

// List returns all registered actions in insertion order.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.byID[id])
	}
	return defs
}

// Webhooks returns the registered remote-webhook actions in insertion order.
func (r *Registry) Webhooks() []*Definition {
	var defs []*Definition
	for _, def := range r.List() {
		if def.Kind == KindRemoteWebhook {
			defs = append(defs, def)
		}
	}
	return defs
}
