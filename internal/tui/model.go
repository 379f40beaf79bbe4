// Package tui provides a BubbleTea terminal demo that renders a popup stack
// as three layered anchor groups.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/popstack/internal/adapter/output"
	"github.com/jmylchreest/popstack/internal/config"
	"github.com/jmylchreest/popstack/internal/model"
	"github.com/jmylchreest/popstack/internal/stack"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeStack Mode = iota
	ModeHelp
)

// Pushed popups cycle through these types, so pushing the same anchor
// enough times replaces an earlier popup of the same type.
var popupTypes = map[model.Anchor][]string{
	model.AnchorTop:    {"toast", "banner", "alert"},
	model.AnchorCentre: {"dialog", "confirm"},
	model.AnchorBottom: {"sheet", "share", "picker"},
}

const (
	timedDismiss = 5 * time.Second
	rowHeight    = 16 // Pixels per rendered row when measuring popups
)

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg    *config.Config
	stack  *stack.Stack
	gen    *model.Generator
	logger *slog.Logger

	// Current mode
	mode Mode

	// Components
	help help.Model
	keys KeyMap

	// State
	items  []model.Descriptor
	cursor int
	pushed map[model.Anchor]int
	width  int
	height int
	ready  bool

	// Status message
	statusMsg string
	statusErr bool

	// Stack change subscription
	events <-chan stack.ChangeEvent
}

// New creates a new TUI model over s.
func New(cfg *config.Config, s *stack.Stack, logger *slog.Logger) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := Model{
		cfg:    cfg,
		stack:  s,
		gen:    model.NewGenerator(nil, nil),
		logger: logger,
		mode:   ModeStack,
		help:   help.New(),
		keys:   DefaultKeyMap(),
		pushed: make(map[model.Anchor]int),
	}

	if s != nil {
		m.events = s.Subscribe()
		m.items = s.Items()
	}

	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.watchForChanges,
		tick(),
	)
}

// watchForChanges waits for the next stack change event.
func (m Model) watchForChanges() tea.Msg {
	if m.events == nil {
		return nil
	}
	ev, ok := <-m.events
	if !ok {
		return nil
	}
	return stackChangedMsg{event: ev}
}

type stackChangedMsg struct {
	event stack.ChangeEvent
}

type tickMsg time.Time

// tick refreshes dismiss countdowns once a second.
func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type configReloadedMsg struct {
	cfg *config.Config
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case stackChangedMsg:
		m.refresh()
		if msg.event.Type == stack.ChangeRemove && msg.event.Reason == stack.ReasonExpired {
			return m, tea.Batch(m.watchForChanges, status("Popup expired", false))
		}
		return m, m.watchForChanges

	case tickMsg:
		return m, tick()

	case configReloadedMsg:
		m.cfg = msg.cfg
		m.refresh()
		return m, status("Configuration reloaded", false)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	return m, nil
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeStack
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeStack
		}
		return m, nil
	}

	return m.handleStackKey(msg)
}

// handleStackKey handles keys in stack mode.
func (m Model) handleStackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.stack == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.PushTop):
		return m.push(model.AnchorTop, 0)

	case key.Matches(msg, m.keys.PushCentre):
		return m.push(model.AnchorCentre, 0)

	case key.Matches(msg, m.keys.PushBottom):
		return m.push(model.AnchorBottom, 0)

	case key.Matches(msg, m.keys.PushTimed):
		return m.push(model.AnchorTop, timedDismiss)

	case key.Matches(msg, m.keys.Replace):
		d, ok := m.selected()
		if !ok {
			return m, nil
		}
		fresh := m.gen.NewDescriptor(d.TypeTag(), d.Anchor(), d.Payload())
		m.stack.Insert(fresh)
		m.refresh()
		m.cursor = m.indexOf(fresh.ID())
		return m, status("Replaced "+d.TypeTag(), false)

	case key.Matches(msg, m.keys.Remove):
		if d, ok := m.selected(); ok {
			m.stack.RemoveByID(d.ID())
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.RemoveUpTo):
		if d, ok := m.selected(); ok {
			removed := m.stack.RemoveUpToID(d.ID())
			m.refresh()
			return m, status(fmt.Sprintf("Dismissed %d popup(s)", len(removed)), false)
		}
		return m, nil

	case key.Matches(msg, m.keys.RemoveLast):
		m.stack.RemoveLast()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.stack.Clear()
		m.refresh()
		return m, status("Stack cleared", false)

	case key.Matches(msg, m.keys.Pause):
		d, ok := m.selected()
		if !ok {
			return m, nil
		}
		_, paused, hasTimer := m.stack.Remaining(d.ID())
		switch {
		case !hasTimer:
			return m, status("Selected popup has no dismiss timer", true)
		case paused:
			m.stack.Resume(d.ID())
			return m, status("Timer resumed", false)
		default:
			m.stack.Pause(d.ID())
			return m, status("Timer paused", false)
		}

	case key.Matches(msg, m.keys.Measure):
		if d, ok := m.selected(); ok {
			h := measureHeight(d)
			m.stack.UpdateHeight(d.ID(), h)
			m.refresh()
			return m, status(fmt.Sprintf("Measured %s at %gpx", d.TypeTag(), h), false)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyYAML):
		return m, m.copySnapshot(output.FormatYAML)

	case key.Matches(msg, m.keys.CopyJSON):
		return m, m.copySnapshot(output.FormatJSON)
	}

	return m, nil
}

// push inserts a new popup of the next type for anchor.
func (m Model) push(anchor model.Anchor, dismissAfter time.Duration) (tea.Model, tea.Cmd) {
	tags := popupTypes[anchor]
	n := m.pushed[anchor]
	m.pushed[anchor] = n + 1
	tag := tags[n%len(tags)]

	d := m.gen.NewDescriptor(tag, anchor, fmt.Sprintf("%s %d", tag, n+1))
	if dismissAfter > 0 {
		d = d.WithConfig(model.WithAutoDismiss(m.cfg.PopupDefaults().For(anchor), dismissAfter))
	}

	m.stack.Insert(d)
	m.refresh()
	m.cursor = len(m.items) - 1

	m.logger.Debug("tui pushed popup", "popup_id", d.ID())
	return m, nil
}

func (m Model) copySnapshot(format output.FormatType) tea.Cmd {
	cfg := m.cfg
	s := m.stack
	return func() tea.Msg {
		text, err := renderSnapshot(s, format)
		if err != nil {
			return copyResultMsg{err: err}
		}
		return copyResultMsg{err: copyText(text, cfg)}
	}
}

// refresh reloads the popups from the stack and clamps the cursor.
func (m *Model) refresh() {
	if m.stack == nil {
		return
	}
	m.items = m.stack.Items()
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (model.Descriptor, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return model.Descriptor{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) indexOf(id model.Identifier) int {
	for i, d := range m.items {
		if id.SameInstance(d) {
			return i
		}
	}
	return max(len(m.items)-1, 0)
}

// measureHeight reports the rendered height of a popup in pixels.
func measureHeight(d model.Descriptor) float64 {
	return float64(lipgloss.Height(renderPopup(d, "")) * rowHeight)
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeStack:
		return m.viewStack()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	popupStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (m Model) viewStack() string {
	if m.stack == nil {
		return "No stack"
	}

	priority := m.stack.Priority()
	header := titleStyle.Render("popstack · " + string(m.stack.ID()))
	info := dimStyle.Render(fmt.Sprintf("%d popup(s) · initial height %g · z: %s",
		len(m.items), m.stack.InitialHeight(), zOrder(priority)))

	var footer string
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		footer = statusStyle.Render(m.statusMsg)
	} else {
		footer = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		info,
		"",
		m.renderLayers(priority),
		"",
		m.renderList(),
		"",
		footer,
	)
}

// renderLayers draws each anchor group in its screen position. The group
// with the highest priority is highlighted.
func (m Model) renderLayers(priority stack.Priority) string {
	order := priority.Order()
	front := order[len(order)-1]

	var rows []string
	for _, anchor := range model.Anchors() {
		visible := m.stack.Visible(anchor)

		label := fmt.Sprintf("%s z=%g", anchor, priority.Of(anchor))
		if anchor == model.AnchorCentre && len(visible) > 0 {
			label += fmt.Sprintf(" (overlay z=%g)", priority.Overlay())
		}
		if anchor == front && len(m.items) > 0 {
			label = selectedStyle.Render(label)
		} else {
			label = dimStyle.Render(label)
		}

		boxes := make([]string, 0, len(visible))
		for _, d := range visible {
			boxes = append(boxes, renderPopup(d, m.borderColour(anchor == front)))
		}

		group := label
		if len(boxes) > 0 {
			group = lipgloss.JoinVertical(lipgloss.Left, label, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
		}

		pos := lipgloss.Left
		if anchor == model.AnchorCentre {
			pos = lipgloss.Center
		}
		if m.width > 0 {
			group = lipgloss.PlaceHorizontal(m.width, pos, group)
		}
		rows = append(rows, group)
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) borderColour(front bool) lipgloss.Color {
	if front {
		return lipgloss.Color("12")
	}
	return lipgloss.Color("8")
}

// renderPopup draws a single popup box.
func renderPopup(d model.Descriptor, colour lipgloss.Color) string {
	body := d.TypeTag()
	if p := d.Payload(); p != nil {
		body += "\n" + fmt.Sprint(p)
	}
	style := popupStyle
	if colour != "" {
		style = style.BorderForeground(colour)
	}
	return style.Render(body)
}

// renderList draws the stack from oldest to newest with the cursor.
func (m Model) renderList() string {
	if len(m.items) == 0 {
		return dimStyle.Render("Stack is empty. Press 1, 2 or 3 to push a popup.")
	}

	var sb strings.Builder
	for i, d := range m.items {
		line := fmt.Sprintf("%-6s %s  %s%s%s",
			d.Anchor(), d.ID(), humanize.Time(d.CreatedAt()), m.heightLabel(d), m.timerLabel(d))
		if i == m.cursor {
			sb.WriteString(selectedStyle.Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		if i < len(m.items)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m Model) heightLabel(d model.Descriptor) string {
	if h, ok := d.Height(); ok {
		return fmt.Sprintf("  h=%g", h)
	}
	return ""
}

func (m Model) timerLabel(d model.Descriptor) string {
	remaining, paused, ok := m.stack.Remaining(d.ID())
	if !ok {
		return ""
	}
	if paused {
		return fmt.Sprintf("  paused (%s left)", remaining.Round(100*time.Millisecond))
	}
	return fmt.Sprintf("  dismiss in %s", remaining.Round(100*time.Millisecond))
}

// zOrder lists the anchor groups from back to front.
func zOrder(p stack.Priority) string {
	order := p.Order()
	parts := make([]string, 0, len(order)+1)
	for _, a := range order {
		parts = append(parts, fmt.Sprintf("%s(%g)", a, p.Of(a)))
	}
	parts = append(parts, fmt.Sprintf("overlay(%g)", p.Overlay()))
	return strings.Join(parts, " < ")
}

func (m Model) viewHelp() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		"",
		m.help.FullHelpView(m.keys.FullHelp()),
		"",
		dimStyle.Render("Press ? or esc to return"),
	)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config     *config.Config
	Registry   *stack.Registry
	StackID    stack.ID
	ConfigPath string // Config file to watch for changes (empty = no watching)
	Logger     *slog.Logger
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := opts.Registry
	if reg == nil {
		reg = stack.NewRegistry(opts.Config, logger)
		defer reg.Clean()
	}

	id := opts.StackID
	if id == "" {
		id = "main"
	}

	m := New(opts.Config, reg.Register(id), logger)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Start config watcher if a path was provided
	if opts.ConfigPath != "" {
		watcher, err := config.NewWatcher(opts.ConfigPath, func(cfg *config.Config) {
			reg.UpdateConfig(cfg)
			p.Send(configReloadedMsg{cfg: cfg})
		}, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			defer func() { _ = watcher.Stop() }()
			if err := watcher.Start(); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
			}
		}
	}

	_, err := p.Run()
	return err
}
