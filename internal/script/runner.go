package script

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/jmylchreest/popstack/internal/config"
	"github.com/jmylchreest/popstack/internal/model"
	"github.com/jmylchreest/popstack/internal/stack"
)

// Runner replays scripts against a registry.
type Runner struct {
	registry *stack.Registry
	cfg      *config.Config
	gen      *model.Generator
	logger   *slog.Logger
	refs     map[string]model.Identifier
}

// NewRunner creates a runner. Stacks named by the script are registered on
// first use. cfg supplies the base popup configuration for steps that
// override dismiss_after.
func NewRunner(registry *stack.Registry, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	return &Runner{
		registry: registry,
		cfg:      cfg,
		gen:      model.NewGenerator(nil, nil),
		logger:   logger,
		refs:     make(map[string]model.Identifier),
	}
}

// SetGenerator replaces the identifier generator, e.g. with a deterministic one.
func (r *Runner) SetGenerator(g *model.Generator) {
	if g != nil {
		r.gen = g
	}
}

// Refs returns the identifiers bound by "as" so far.
func (r *Runner) Refs() map[string]model.Identifier {
	return maps.Clone(r.refs)
}

// Run executes every step in order. It stops at the first failing step or
// when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, s *Script) error {
	if err := s.Validate(); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.exec(ctx, s, step); err != nil {
			return &StepError{Index: i + 1, Op: step.Op, Err: err}
		}
	}

	r.logger.Debug("script finished", "steps", len(s.Steps), "stacks", r.registry.Len())
	return nil
}

func (r *Runner) exec(ctx context.Context, s *Script, step Step) error {
	if step.Op == OpWait {
		d, err := parseDuration(step.Duration)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}

	st := r.registry.Register(stackFor(s, step))
	logger := r.logger.With("op", string(step.Op), "stack", string(st.ID()))

	switch step.Op {
	case OpInsert:
		d, err := r.descriptor(step)
		if err != nil {
			return err
		}
		st.Insert(d)
		if step.As != "" {
			r.refs[step.As] = d.ID()
		}
		logger.Debug("script insert", "popup_id", d.ID())

	case OpRemove:
		id, err := r.ref(step.Ref)
		if err != nil {
			return err
		}
		if !st.RemoveByID(id) {
			logger.Debug("popup not in stack", "ref", step.Ref)
		}

	case OpRemoveUpTo:
		var removed []model.Descriptor
		if step.Ref != "" {
			id, err := r.ref(step.Ref)
			if err != nil {
				return err
			}
			removed = st.RemoveUpToID(id)
		} else {
			removed = st.RemoveUpTo(func(d model.Descriptor) bool {
				return d.ID().HasType(step.Type)
			})
		}
		logger.Debug("script remove up to", "removed", len(removed))

	case OpRemoveLast:
		st.RemoveLast()

	case OpClear:
		st.Clear()

	case OpHeight:
		id, err := r.ref(step.Ref)
		if err != nil {
			return err
		}
		st.UpdateHeight(id, *step.Height)

	case OpPause, OpResume:
		id, err := r.ref(step.Ref)
		if err != nil {
			return err
		}
		var ok bool
		if step.Op == OpPause {
			ok = st.Pause(id)
		} else {
			ok = st.Resume(id)
		}
		if !ok {
			logger.Debug("no dismiss timer to change", "ref", step.Ref)
		}

	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, step.Op)
	}
	return nil
}

func (r *Runner) ref(name string) (model.Identifier, error) {
	id, ok := r.refs[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownRef, name)
	}
	return id, nil
}

// descriptor builds the popup for an insert step.
func (r *Runner) descriptor(step Step) (model.Descriptor, error) {
	anchor, err := step.anchor()
	if err != nil {
		return model.Descriptor{}, err
	}

	d := r.gen.NewDescriptor(step.Type, anchor, step.Payload)

	if step.DismissAfter != "" {
		after, err := parseDuration(step.DismissAfter)
		if err != nil {
			return model.Descriptor{}, fmt.Errorf("dismiss_after: %w", err)
		}
		d = d.WithConfig(model.WithAutoDismiss(r.cfg.PopupDefaults().For(anchor), after))
	}
	if step.Height != nil {
		d = d.WithHeight(*step.Height)
	}
	return d, nil
}

func stackFor(s *Script, step Step) stack.ID {
	switch {
	case step.Stack != "":
		return stack.ID(step.Stack)
	case s.Stack != "":
		return stack.ID(s.Stack)
	default:
		return DefaultStack
	}
}
