package entity

import (
	"math/rand"
	"strings"
	"time"
)

const (
	// PlaceholderPrefix marks synthesized author identifiers. The prefix
	// sorts below every alphanumeric character, which is what makes
	// placeholder ids lose to external ids under CanonicalID.
	PlaceholderPrefix = "#"

	// DocIDPrefix marks synthesized document identifiers.
	DocIDPrefix = "@"

	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 7
)

// Minter issues placeholder identifiers for authors and documents that
// arrive without one. It is an injected dependency so tests can seed it
// and assert deterministic ids.
//
// A Minter is not safe for concurrent use; all minting happens on the
// single graph-ingestion path.
type Minter struct {
	rnd *rand.Rand
}

// NewMinter returns a Minter seeded with the given value.
func NewMinter(seed int64) *Minter {
	return &Minter{rnd: rand.New(rand.NewSource(seed))}
}

// NewRandomMinter returns a Minter seeded from the current time.
func NewRandomMinter() *Minter {
	return NewMinter(time.Now().UnixNano())
}

// AuthorID mints a placeholder author identifier.
func (m *Minter) AuthorID() string {
	return PlaceholderPrefix + m.token(idLength)
}

// DocID mints a synthesized document identifier.
func (m *Minter) DocID() string {
	return DocIDPrefix + m.token(idLength)
}

func (m *Minter) token(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(idAlphabet[m.rnd.Intn(len(idAlphabet))])
	}
	return b.String()
}

// IsPlaceholder reports whether id is a synthesized placeholder rather
// than an externally issued identifier.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}
