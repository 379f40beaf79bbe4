package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jmylchreest/popstack/internal/adapter/output"
	"github.com/jmylchreest/popstack/internal/config"
	"github.com/jmylchreest/popstack/internal/stack"
)

// ErrNoClipboard is returned when no clipboard command is configured or found.
var ErrNoClipboard = errors.New("no clipboard command available")

const clipboardTimeout = 5 * time.Second

// clipboardCandidates are tried in order when no command is configured.
// Wayland sessions prefer wl-copy; X11 falls through to xclip and xsel.
var clipboardCandidates = []string{
	"wl-copy",
	"xclip -selection clipboard",
	"xsel --clipboard --input",
}

// copyText pipes text into the clipboard command.
func copyText(text string, cfg *config.Config) error {
	parts := strings.Fields(detectClipboardCommand(cfg, exec.LookPath))
	if len(parts) == 0 {
		return ErrNoClipboard
	}

	ctx, cancel := context.WithTimeout(context.Background(), clipboardTimeout)
	defer cancel()

	var stderr bytes.Buffer
	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", parts[0], err, msg)
		}
		return fmt.Errorf("%s: %w", parts[0], err)
	}
	return nil
}

// detectClipboardCommand returns the configured clipboard command, or the
// first candidate whose binary lookPath can find.
func detectClipboardCommand(cfg *config.Config, lookPath func(string) (string, error)) string {
	if cfg != nil && cfg.Clipboard.Command != "" {
		return cfg.Clipboard.Command
	}

	for _, candidate := range clipboardCandidates {
		bin, _, _ := strings.Cut(candidate, " ")
		if bin == "wl-copy" && os.Getenv("WAYLAND_DISPLAY") == "" {
			continue
		}
		if _, err := lookPath(bin); err == nil {
			return candidate
		}
	}
	return ""
}

// renderSnapshot formats the current state of s with one of the output formatters.
func renderSnapshot(s *stack.Stack, format output.FormatType) (string, error) {
	f, err := output.NewFormatter(format, output.DefaultFormatterOptions())
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := f.Format(&buf, []output.Snapshot{output.NewSnapshot(s)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
