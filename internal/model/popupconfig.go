package model

import (
	"errors"
	"strings"
	"time"
)

// Anchor is the screen region a popup is attached to.
type Anchor int

const (
	// AnchorTop attaches the popup to the top edge.
	AnchorTop Anchor = iota
	// AnchorCentre centres the popup.
	AnchorCentre
	// AnchorBottom attaches the popup to the bottom edge.
	AnchorBottom
)

// ErrInvalidAnchor is returned when an anchor name cannot be parsed.
var ErrInvalidAnchor = errors.New("anchor must be top, centre or bottom")

// Anchors returns all anchors in their canonical order.
func Anchors() []Anchor {
	return []Anchor{AnchorTop, AnchorCentre, AnchorBottom}
}

// String returns the string representation of the anchor.
func (a Anchor) String() string {
	switch a {
	case AnchorTop:
		return "top"
	case AnchorCentre:
		return "centre"
	case AnchorBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParseAnchor parses an anchor name. "center" is accepted as an alias.
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return AnchorTop, nil
	case "centre", "center":
		return AnchorCentre, nil
	case "bottom":
		return AnchorBottom, nil
	default:
		return AnchorTop, ErrInvalidAnchor
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Anchor) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Anchor) UnmarshalText(text []byte) error {
	parsed, err := ParseAnchor(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// PopupConfig is the per-popup configuration. Each anchor has its own
// concrete type.
type PopupConfig interface {
	Anchor() Anchor
	// AutoDismiss returns how long the popup stays before it is dismissed
	// automatically. Zero means never.
	AutoDismiss() time.Duration
}

// TopConfig configures a popup anchored to the top edge.
type TopConfig struct {
	CornerRadius   float64
	IgnoreSafeArea bool
	DragToDismiss  bool
	DragThreshold  float64 // Fraction of the popup height, 0-1
	TapOutside     bool
	Stacked        bool
	DismissAfter   time.Duration
}

// Anchor implements PopupConfig.
func (TopConfig) Anchor() Anchor { return AnchorTop }

// AutoDismiss implements PopupConfig.
func (c TopConfig) AutoDismiss() time.Duration { return c.DismissAfter }

// DismissesAt reports whether dragging the popup by distance dismisses it.
// Top popups are dismissed by dragging upwards (negative distance).
func (c TopConfig) DismissesAt(distance, height float64) bool {
	return c.DragToDismiss && passesThreshold(-distance, height, c.DragThreshold)
}

// CentreConfig configures a centred popup.
type CentreConfig struct {
	CornerRadius      float64
	HorizontalPadding float64
	TapOutside        bool
	DismissAfter      time.Duration
}

// Anchor implements PopupConfig.
func (CentreConfig) Anchor() Anchor { return AnchorCentre }

// AutoDismiss implements PopupConfig.
func (c CentreConfig) AutoDismiss() time.Duration { return c.DismissAfter }

// BottomConfig configures a popup anchored to the bottom edge.
type BottomConfig struct {
	CornerRadius   float64
	IgnoreSafeArea bool
	DragToDismiss  bool
	DragThreshold  float64 // Fraction of the popup height, 0-1
	DragDetents    []float64
	TapOutside     bool
	Stacked        bool
	DismissAfter   time.Duration
}

// Anchor implements PopupConfig.
func (BottomConfig) Anchor() Anchor { return AnchorBottom }

// AutoDismiss implements PopupConfig.
func (c BottomConfig) AutoDismiss() time.Duration { return c.DismissAfter }

// DismissesAt reports whether dragging the popup by distance dismisses it.
// Bottom popups are dismissed by dragging downwards (positive distance).
func (c BottomConfig) DismissesAt(distance, height float64) bool {
	return c.DragToDismiss && passesThreshold(distance, height, c.DragThreshold)
}

func passesThreshold(distance, height, threshold float64) bool {
	if distance <= 0 || height <= 0 {
		return false
	}
	return distance/height >= threshold
}

// Defaults holds the default configuration for each anchor.
type Defaults struct {
	Top    TopConfig
	Centre CentreConfig
	Bottom BottomConfig
}

// DefaultDefaults returns the built-in per-anchor defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Top: TopConfig{
			CornerRadius:  16,
			DragToDismiss: true,
			DragThreshold: 0.5,
			Stacked:       true,
		},
		Centre: CentreConfig{
			CornerRadius:      24,
			HorizontalPadding: 12,
			TapOutside:        true,
		},
		Bottom: BottomConfig{
			CornerRadius:  40,
			DragToDismiss: true,
			DragThreshold: 0.5,
			Stacked:       true,
		},
	}
}

// For returns the default configuration for an anchor.
func (d Defaults) For(anchor Anchor) PopupConfig {
	switch anchor {
	case AnchorCentre:
		return d.Centre
	case AnchorBottom:
		return d.Bottom
	default:
		return d.Top
	}
}

// WithAutoDismiss returns a copy of cfg with its dismiss delay set to after.
func WithAutoDismiss(cfg PopupConfig, after time.Duration) PopupConfig {
	switch c := cfg.(type) {
	case TopConfig:
		c.DismissAfter = after
		return c
	case CentreConfig:
		c.DismissAfter = after
		return c
	case BottomConfig:
		c.DismissAfter = after
		return c
	default:
		return cfg
	}
}
