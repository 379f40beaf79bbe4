package stack

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/popstack/internal/config"
)

// Registry maps stack identifiers to stacks, e.g. one stack per window.
// Callers pass the registry explicitly; there is no package-level instance.
type Registry struct {
	mu     sync.RWMutex
	cfg    *config.Config
	logger *slog.Logger
	stacks map[ID]*Stack
}

// NewRegistry creates an empty registry. Stacks it creates share cfg.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	return &Registry{
		cfg:    cfg,
		logger: logger,
		stacks: make(map[ID]*Stack),
	}
}

// Register returns the stack for id, creating it on first use.
// Registering the same id twice returns the same stack.
func (r *Registry) Register(id ID) *Stack {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.stacks[id]; exists {
		return s
	}

	s := New(id, r.cfg, r.logger)
	r.stacks[id] = s
	r.logger.Debug("registered stack", "stack", id, "stacks", len(r.stacks))
	return s
}

// Lookup returns the stack for id without creating it.
func (r *Registry) Lookup(id ID) (*Stack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.stacks[id]
	return s, exists
}

// IDs returns the registered stack identifiers in sorted order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, 0, len(r.stacks))
	for id := range r.stacks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered stacks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stacks)
}

// Clean closes and drops every stack.
func (r *Registry) Clean() {
	r.mu.Lock()
	stacks := r.stacks
	r.stacks = make(map[ID]*Stack)
	r.mu.Unlock()

	for _, s := range stacks {
		s.Close()
	}
	r.logger.Debug("registry cleaned", "dropped", len(stacks))
}

// UpdateConfig applies a reloaded configuration to the registry and every stack.
func (r *Registry) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	r.mu.Lock()
	r.cfg = cfg
	stacks := make([]*Stack, 0, len(r.stacks))
	for _, s := range r.stacks {
		stacks = append(stacks, s)
	}
	r.mu.Unlock()

	for _, s := range stacks {
		s.UpdateConfig(cfg)
	}
}
