package model

import (
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IdentifierSeparator splits the type tag from the instance suffix.
const IdentifierSeparator = "#"

// Identifier identifies a single popup instance.
// The raw value is "<type tag>#<ULID>": the tag is shared by every instance of
// a popup type, the ULID is unique to the instance.
type Identifier string

// ParseIdentifier wraps a raw value. Any string is accepted; values without a
// separator have an empty type tag.
func ParseIdentifier(raw string) Identifier {
	return Identifier(raw)
}

// String returns the raw value.
func (id Identifier) String() string {
	return string(id)
}

// TypeTag returns the popup type part of the identifier.
func (id Identifier) TypeTag() string {
	idx := strings.LastIndex(string(id), IdentifierSeparator)
	if idx < 0 {
		return ""
	}
	return string(id[:idx])
}

// Suffix returns the instance part of the identifier.
func (id Identifier) Suffix() string {
	idx := strings.LastIndex(string(id), IdentifierSeparator)
	if idx < 0 {
		return ""
	}
	return string(id[idx+len(IdentifierSeparator):])
}

// SameType reports whether both identifiers belong to the same popup type.
func (id Identifier) SameType(other Identifier) bool {
	return id.TypeTag() == other.TypeTag()
}

// HasType reports whether the identifier was created for the given type tag.
func (id Identifier) HasType(tag string) bool {
	return id.TypeTag() == tag
}

// SameInstance reports whether d is the popup instance named by id.
func (id Identifier) SameInstance(d Descriptor) bool {
	return id == d.ID()
}

// Generator creates identifiers.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// NewGenerator creates a generator using the given clock and entropy source.
// A nil clock uses time.Now; a nil entropy source uses the ulid default.
// The entropy is wrapped in monotonic mode so identifiers created within the
// same millisecond never collide.
func NewGenerator(now func() time.Time, entropy io.Reader) *Generator {
	g := &Generator{now: now}
	if entropy != nil {
		g.entropy = ulid.Monotonic(entropy, 0)
	}
	return g
}

// SeededEpoch is the timestamp used by NewSeededGenerator.
var SeededEpoch = time.UnixMilli(0).UTC()

// NewSeededGenerator returns a generator whose identifiers depend only on seed
// and the order of calls. The clock is pinned to SeededEpoch so the ULID time
// prefix does not vary between runs.
func NewSeededGenerator(seed int64) *Generator {
	return NewGenerator(func() time.Time { return SeededEpoch }, rand.New(rand.NewSource(seed)))
}

// New creates a fresh identifier for typeTag.
func (g *Generator) New(typeTag string) Identifier {
	g.mu.Lock()
	defer g.mu.Unlock()

	var id ulid.ULID
	if g.now == nil && g.entropy == nil {
		id = ulid.Make()
	} else {
		now := time.Now
		if g.now != nil {
			now = g.now
		}
		entropy := g.entropy
		if entropy == nil {
			entropy = ulid.DefaultEntropy()
		}
		id = ulid.MustNew(ulid.Timestamp(now()), entropy)
	}

	return Identifier(typeTag + IdentifierSeparator + id.String())
}

var defaultGenerator = NewGenerator(nil, nil)

// NewIdentifier creates a fresh identifier for typeTag using the default generator.
func NewIdentifier(typeTag string) Identifier {
	return defaultGenerator.New(typeTag)
}
