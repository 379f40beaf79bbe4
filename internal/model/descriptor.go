// Package model defines the popup identity and descriptor types shared by the
// stack, the output formatters and the terminal demo.
package model

import (
	"time"
)

// FocusCallback is called when a popup becomes the most recent one in its stack.
type FocusCallback func(id Identifier)

// Descriptor is a type-erased record of one popup instance.
// Descriptors are values: the With* methods return modified copies, so a
// snapshot taken from a stack never aliases the stack's own state.
type Descriptor struct {
	id        Identifier
	anchor    Anchor
	config    PopupConfig // nil until resolved against defaults
	payload   any
	height    float64
	hasHeight bool
	onFocus   FocusCallback
	createdAt time.Time
}

// NewDescriptor creates a descriptor with a fresh identifier from the default
// generator.
func NewDescriptor(typeTag string, anchor Anchor, payload any) Descriptor {
	return defaultGenerator.NewDescriptor(typeTag, anchor, payload)
}

// NewDescriptor creates a descriptor whose identifier comes from g.
func (g *Generator) NewDescriptor(typeTag string, anchor Anchor, payload any) Descriptor {
	if anchor < AnchorTop || anchor > AnchorBottom {
		anchor = AnchorTop
	}
	createdAt := time.Now()
	if g.now != nil {
		createdAt = g.now()
	}
	return Descriptor{
		id:        g.New(typeTag),
		anchor:    anchor,
		payload:   payload,
		createdAt: createdAt,
	}
}

// ID returns the popup identifier.
func (d Descriptor) ID() Identifier { return d.id }

// TypeTag returns the popup type tag.
func (d Descriptor) TypeTag() string { return d.id.TypeTag() }

// Anchor returns the anchor group. It never changes for a descriptor.
func (d Descriptor) Anchor() Anchor { return d.anchor }

// Payload returns the opaque rendering payload.
func (d Descriptor) Payload() any { return d.payload }

// CreatedAt returns when the descriptor was constructed.
func (d Descriptor) CreatedAt() time.Time { return d.createdAt }

// Height returns the last measured height, if one was recorded.
func (d Descriptor) Height() (float64, bool) { return d.height, d.hasHeight }

// IsZero reports whether d is the zero descriptor.
func (d Descriptor) IsZero() bool { return d.id == "" }

// WithConfig returns a copy using cfg. A configuration for a different
// anchor is discarded, leaving the anchor default to be applied.
func (d Descriptor) WithConfig(cfg PopupConfig) Descriptor {
	if cfg == nil || cfg.Anchor() != d.anchor {
		d.config = nil
		return d
	}
	d.config = cfg
	return d
}

// WithHeight returns a copy with a recorded height.
func (d Descriptor) WithHeight(h float64) Descriptor {
	d.height = h
	d.hasHeight = true
	return d
}

// WithOnFocus returns a copy with a focus callback.
func (d Descriptor) WithOnFocus(cb FocusCallback) Descriptor {
	d.onFocus = cb
	return d
}

// ResolveConfig returns a copy whose missing configuration is filled from defaults.
func (d Descriptor) ResolveConfig(defaults Defaults) Descriptor {
	if d.config == nil {
		d.config = defaults.For(d.anchor)
	}
	return d
}

// Config returns the popup configuration, falling back to the built-in
// default for the anchor when none has been resolved.
func (d Descriptor) Config() PopupConfig {
	if d.config == nil {
		return DefaultDefaults().For(d.anchor)
	}
	return d.config
}

// TopConfig returns the configuration as a TopConfig, or the default.
func (d Descriptor) TopConfig() TopConfig {
	if cfg, ok := d.config.(TopConfig); ok {
		return cfg
	}
	return DefaultDefaults().Top
}

// CentreConfig returns the configuration as a CentreConfig, or the default.
func (d Descriptor) CentreConfig() CentreConfig {
	if cfg, ok := d.config.(CentreConfig); ok {
		return cfg
	}
	return DefaultDefaults().Centre
}

// BottomConfig returns the configuration as a BottomConfig, or the default.
func (d Descriptor) BottomConfig() BottomConfig {
	if cfg, ok := d.config.(BottomConfig); ok {
		return cfg
	}
	return DefaultDefaults().Bottom
}

// DismissesAt reports whether a drag of distance dismisses the popup.
// Centre popups cannot be dragged away. The recorded height is used; a popup
// without a measured height is never dismissed by dragging.
func (d Descriptor) DismissesAt(distance float64) bool {
	if !d.hasHeight {
		return false
	}
	switch cfg := d.Config().(type) {
	case TopConfig:
		return cfg.DismissesAt(distance, d.height)
	case BottomConfig:
		return cfg.DismissesAt(distance, d.height)
	default:
		return false
	}
}

// Focus invokes the focus callback if one is set.
func (d Descriptor) Focus() {
	if d.onFocus != nil {
		d.onFocus(d.id)
	}
}
