package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popstack/internal/model"
	"github.com/jmylchreest/popstack/internal/stack"
)

func newTestModel(t *testing.T) (Model, *stack.Stack) {
	t.Helper()
	s := stack.New("main", nil, nil)
	t.Cleanup(s.Close)
	return New(nil, s, nil), s
}

func runes(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		var ok bool
		m, ok = updated.(Model)
		require.True(t, ok)
	}
	return m
}

func typeTags(items []model.Descriptor) []string {
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.TypeTag()
	}
	return out
}

func TestModel_Push(t *testing.T) {
	m, s := newTestModel(t)

	m = press(t, m, runes("1"), runes("2"), runes("3"))

	assert.Equal(t, []string{"toast", "dialog", "sheet"}, typeTags(s.Items()))
	assert.Equal(t, stack.Priority{Top: 1, Centre: 2, Bottom: 3}, s.Priority())
	assert.Equal(t, 2, m.cursor)
	assert.Len(t, m.items, 3)
}

func TestModel_PushCyclesTypes(t *testing.T) {
	m, s := newTestModel(t)

	m = press(t, m, runes("t"), runes("t"), runes("t"), runes("t"))

	// The fourth push is a toast again and replaces the first.
	assert.Equal(t, []string{"banner", "alert", "toast"}, typeTags(s.Items()))
	assert.Equal(t, 2, m.cursor)
}

func TestModel_Navigation(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runes("1"), runes("2"), runes("3"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp}, runes("k"), runes("k"))
	assert.Equal(t, 0, m.cursor)

	m = press(t, m, runes("j"), tea.KeyMsg{Type: tea.KeyDown}, runes("j"))
	assert.Equal(t, 2, m.cursor)
}

func TestModel_RemoveSelected(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, runes("1"), runes("2"), runes("3"), runes("k"))

	m = press(t, m, runes("d"))

	assert.Equal(t, []string{"toast", "sheet"}, typeTags(s.Items()))
	assert.Equal(t, 1, m.cursor)
}

func TestModel_RemoveUpTo(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, runes("1"), runes("2"), runes("3"), runes("1"), runes("k"), runes("k"))

	m = press(t, m, runes("u"))

	assert.Equal(t, []string{"toast"}, typeTags(s.Items()))
	assert.Equal(t, 0, m.cursor)
}

func TestModel_RemoveLastAndClear(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, runes("1"), runes("3"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, []string{"toast"}, typeTags(s.Items()))

	m = press(t, m, runes("D"))
	assert.Zero(t, s.Len())
	assert.Equal(t, stack.Priority{}, s.Priority())
	assert.Empty(t, m.items)
	assert.Zero(t, m.cursor)

	// Empty stack operations are harmless.
	press(t, m, runes("p"), runes("d"), runes("u"), runes("s"), runes("h"), runes("r"))
	assert.Zero(t, s.Len())
}

func TestModel_Replace(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, runes("1"), runes("3"), runes("k"))
	before := s.Items()[0].ID()

	m = press(t, m, runes("r"))

	items := s.Items()
	assert.Equal(t, []string{"sheet", "toast"}, typeTags(items))
	assert.NotEqual(t, before, items[1].ID())
	assert.Equal(t, 1, m.cursor)
}

func TestModel_PauseResume(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, runes("T"))
	id := s.Items()[0].ID()

	m = press(t, m, runes("s"))
	_, paused, ok := s.Remaining(id)
	require.True(t, ok)
	assert.True(t, paused)

	press(t, m, runes("s"))
	_, paused, ok = s.Remaining(id)
	require.True(t, ok)
	assert.False(t, paused)
}

func TestModel_PauseWithoutTimer(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runes("1"))

	_, cmd := m.Update(runes("s"))
	require.NotNil(t, cmd)

	msg, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, msg.isErr)
}

func TestModel_Measure(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, runes("1"), runes("2"), runes("k"))

	press(t, m, runes("h"))

	d := s.Items()[0]
	h, ok := d.Height()
	require.True(t, ok)
	assert.Equal(t, measureHeight(d), h)
	assert.Greater(t, h, 0.0)
	assert.Equal(t, h, s.InitialHeight())
}

func TestModel_StackChanged(t *testing.T) {
	m, s := newTestModel(t)

	d := model.NewDescriptor("toast", model.AnchorTop, nil).
		WithConfig(model.TopConfig{DismissAfter: 10 * time.Millisecond})
	s.Insert(d)
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	updated, cmd := m.Update(stackChangedMsg{event: stack.ChangeEvent{
		Type:   stack.ChangeRemove,
		IDs:    []model.Identifier{d.ID()},
		Reason: stack.ReasonExpired,
	}})
	require.NotNil(t, cmd)
	m = updated.(Model)
	assert.Empty(t, m.items)
}

func TestModel_HelpToggle(t *testing.T) {
	m, _ := newTestModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)

	m = press(t, m, runes("?"))
	assert.Equal(t, ModeHelp, m.mode)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	// Stack keys are ignored while help is shown.
	m = press(t, m, runes("1"))
	assert.Empty(t, m.items)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeStack, m.mode)
}

func TestModel_View(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, "Initializing...", m.View())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	assert.Contains(t, m.View(), "Stack is empty")

	m = press(t, m, runes("1"), runes("3"))
	view := m.View()
	assert.Contains(t, view, "popstack · main")
	assert.Contains(t, view, "toast 1")
	assert.Contains(t, view, "sheet 1")
	assert.Contains(t, view, "bottom z=3")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestZOrder(t *testing.T) {
	p := stack.Priority{Top: 2, Centre: -2, Bottom: 3}
	assert.Equal(t, "centre(-2) < top(2) < bottom(3) < overlay(4)", zOrder(p))
}
