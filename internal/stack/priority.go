package stack

import (
	"sort"

	"github.com/jmylchreest/popstack/internal/model"
)

// Priority constants. Higher values render on top.
const (
	// MaxPriority is held by the anchor group of the most recent popup.
	MaxPriority = 3
	// PriorityStep is subtracted from every other group when a new group
	// becomes the most recent.
	PriorityStep = 1
	// OverlayPriority is the dimming overlay, above every popup group.
	OverlayPriority = MaxPriority + 1
)

// Priority holds the relative z-order of the three anchor groups.
// Only the relative order matters; values may go negative.
type Priority struct {
	Top    float64 `json:"top" yaml:"top"`
	Centre float64 `json:"centre" yaml:"centre"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// Of returns the priority of an anchor group.
func (p Priority) Of(anchor model.Anchor) float64 {
	switch anchor {
	case model.AnchorCentre:
		return p.Centre
	case model.AnchorBottom:
		return p.Bottom
	default:
		return p.Top
	}
}

// Overlay returns the overlay priority.
func (p Priority) Overlay() float64 {
	return OverlayPriority
}

// Reshuffle moves anchor to the front. It is a no-op when the anchor is
// already the most recent group, so repeated inserts into one group do not
// churn the order.
func (p *Priority) Reshuffle(anchor model.Anchor) {
	if p.Of(anchor) == MaxPriority {
		return
	}
	for _, a := range model.Anchors() {
		if a == anchor {
			p.set(a, MaxPriority)
		} else {
			p.set(a, p.Of(a)-PriorityStep)
		}
	}
}

// Reset returns all groups to the initial equal state.
func (p *Priority) Reset() {
	*p = Priority{}
}

// Order returns the anchors in render order, lowest priority first.
// Ties keep the canonical top, centre, bottom order.
func (p Priority) Order() []model.Anchor {
	anchors := model.Anchors()
	sort.SliceStable(anchors, func(i, j int) bool {
		return p.Of(anchors[i]) < p.Of(anchors[j])
	})
	return anchors
}

func (p *Priority) set(anchor model.Anchor, v float64) {
	switch anchor {
	case model.AnchorCentre:
		p.Centre = v
	case model.AnchorBottom:
		p.Bottom = v
	default:
		p.Top = v
	}
}
