package script

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popstack/internal/model"
	"github.com/jmylchreest/popstack/internal/stack"
)

func run(t *testing.T, data string) (*stack.Registry, *Runner) {
	t.Helper()

	s, err := Parse([]byte(data))
	require.NoError(t, err)

	reg := stack.NewRegistry(nil, nil)
	t.Cleanup(reg.Clean)

	r := NewRunner(reg, nil, nil)
	r.SetGenerator(model.NewGenerator(nil, rand.New(rand.NewSource(1))))
	require.NoError(t, r.Run(context.Background(), s))
	return reg, r
}

func tags(items []model.Descriptor) []string {
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.TypeTag()
	}
	return out
}

func mustStack(t *testing.T, reg *stack.Registry, id stack.ID) *stack.Stack {
	t.Helper()
	s, ok := reg.Lookup(id)
	require.True(t, ok, "stack %s not registered", id)
	return s
}

func TestRunner_Insert(t *testing.T) {
	reg, r := run(t, `
steps:
  - op: insert
    type: toast
    anchor: top
    as: hello
    payload: Saved
    height: 64
  - op: insert
    type: sheet
    anchor: bottom
`)

	s := mustStack(t, reg, DefaultStack)
	items := s.Items()
	assert.Equal(t, []string{"toast", "sheet"}, tags(items))

	refs := r.Refs()
	require.Contains(t, refs, "hello")
	assert.Equal(t, refs["hello"], items[0].ID())
	assert.Equal(t, "Saved", items[0].Payload())
	assert.Equal(t, 64.0, s.InitialHeight())
	assert.Equal(t, stack.Priority{Top: 2, Centre: -2, Bottom: 3}, s.Priority())
}

func TestRunner_ReplaceMovesToTop(t *testing.T) {
	reg, r := run(t, `
steps:
  - op: insert
    type: a
    as: old
  - op: insert
    type: b
  - op: insert
    type: a
    as: fresh
`)

	s := mustStack(t, reg, DefaultStack)
	assert.Equal(t, []string{"b", "a"}, tags(s.Items()))
	assert.False(t, s.Contains(r.Refs()["old"]))
	assert.True(t, s.Contains(r.Refs()["fresh"]))
}

func TestRunner_RemoveUpTo(t *testing.T) {
	reg, _ := run(t, `
steps:
  - op: insert
    type: a
  - op: insert
    type: b
    as: b
  - op: insert
    type: c
  - op: insert
    type: d
  - op: remove-up-to
    ref: b
`)

	assert.Equal(t, []string{"a"}, tags(mustStack(t, reg, DefaultStack).Items()))
}

func TestRunner_RemoveUpToByType(t *testing.T) {
	reg, _ := run(t, `
steps:
  - op: insert
    type: a
  - op: insert
    type: b
  - op: insert
    type: c
  - op: remove-up-to
    type: b
`)

	assert.Equal(t, []string{"a"}, tags(mustStack(t, reg, DefaultStack).Items()))
}

func TestRunner_RemoveOps(t *testing.T) {
	reg, _ := run(t, `
stack: sheets
steps:
  - op: insert
    type: a
    as: a
  - op: insert
    type: b
  - op: insert
    type: c
  - op: remove
    ref: a
  - op: remove
    ref: a
  - op: remove-last
`)

	assert.Equal(t, []string{"b"}, tags(mustStack(t, reg, "sheets").Items()))
	_, ok := reg.Lookup(DefaultStack)
	assert.False(t, ok)
}

func TestRunner_ClearResetsPriority(t *testing.T) {
	reg, _ := run(t, `
steps:
  - op: insert
    type: a
    anchor: centre
  - op: clear
  - op: remove-last
`)

	s := mustStack(t, reg, DefaultStack)
	assert.Zero(t, s.Len())
	assert.Equal(t, stack.Priority{}, s.Priority())
}

func TestRunner_Height(t *testing.T) {
	reg, _ := run(t, `
steps:
  - op: insert
    type: a
    as: a
  - op: insert
    type: b
  - op: height
    ref: a
    height: 210
`)

	assert.Equal(t, 210.0, mustStack(t, reg, DefaultStack).InitialHeight())
}

func TestRunner_MultipleStacks(t *testing.T) {
	reg, _ := run(t, `
steps:
  - op: insert
    type: a
  - op: insert
    type: b
    stack: other
`)

	assert.Equal(t, []stack.ID{"main", "other"}, reg.IDs())
	assert.Equal(t, []string{"a"}, tags(mustStack(t, reg, "main").Items()))
	assert.Equal(t, []string{"b"}, tags(mustStack(t, reg, "other").Items()))
}

func TestRunner_DismissAfter(t *testing.T) {
	reg, _ := run(t, `
steps:
  - op: insert
    type: toast
    anchor: bottom
    dismiss_after: 20ms
  - op: insert
    type: sheet
    anchor: bottom
  - op: wait
    duration: 150ms
`)

	s := mustStack(t, reg, DefaultStack)
	assert.Equal(t, []string{"sheet"}, tags(s.Items()))
}

func TestRunner_DismissAfterKeepsAnchorDefaults(t *testing.T) {
	reg, _ := run(t, `
steps:
  - op: insert
    type: toast
    anchor: bottom
    dismiss_after: 1m
`)

	top, ok := mustStack(t, reg, DefaultStack).Top()
	require.True(t, ok)
	cfg := top.BottomConfig()
	assert.Equal(t, time.Minute, cfg.DismissAfter)
	assert.Equal(t, 40.0, cfg.CornerRadius)
}

func TestRunner_PauseResume(t *testing.T) {
	reg, r := run(t, `
steps:
  - op: insert
    type: toast
    as: t
    dismiss_after: 30ms
  - op: pause
    ref: t
  - op: wait
    duration: 80ms
`)

	s := mustStack(t, reg, DefaultStack)
	id := r.Refs()["t"]
	require.True(t, s.Contains(id))

	_, paused, ok := s.Remaining(id)
	require.True(t, ok)
	assert.True(t, paused)
}

func TestRunner_SeededIdentifiersRepeat(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - op: insert
    type: toast
    as: a
  - op: insert
    type: sheet
    anchor: bottom
    as: b
`))
	require.NoError(t, err)

	replay := func() map[string]model.Identifier {
		reg := stack.NewRegistry(nil, nil)
		defer reg.Clean()

		r := NewRunner(reg, nil, nil)
		r.SetGenerator(model.NewSeededGenerator(42))
		require.NoError(t, r.Run(context.Background(), s))
		return r.Refs()
	}

	first := replay()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, first, replay())
}

func TestRunner_Cancelled(t *testing.T) {
	s, err := Parse([]byte("steps:\n  - op: wait\n    duration: 10s\n"))
	require.NoError(t, err)

	reg := stack.NewRegistry(nil, nil)
	defer reg.Clean()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewRunner(reg, nil, nil).Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_InvalidScript(t *testing.T) {
	reg := stack.NewRegistry(nil, nil)
	defer reg.Clean()

	err := NewRunner(reg, nil, nil).Run(context.Background(), &Script{
		Steps: []Step{{Op: OpRemove, Ref: "missing"}},
	})
	assert.ErrorIs(t, err, ErrUnknownRef)
	assert.Zero(t, reg.Len())
}
