// Package entity defines the author and document records the resolution
// graph is built from, together with their merge semantics.
package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xrash/smetrics"
)

// MatchKey is the coarse blocking key used to decide merge candidacy:
// first initial plus lowercased surname.
type MatchKey struct {
	Initial string
	Surname string
}

// String renders the key as "initial surname".
func (k MatchKey) String() string {
	return k.Initial + " " + k.Surname
}

// Author represents a person discovered during a crawl. Records are
// mutated in place by merges for the life of the crawl; any reference
// held across a merge must be refreshed through the graph's identity
// registry.
type Author struct {
	// Name is the diacritic-normalized display name.
	Name string

	// ID is either a stable externally issued identifier or a
	// synthesized placeholder (see PlaceholderPrefix).
	ID string

	// MatchKey is derived from Name at construction.
	MatchKey MatchKey

	// ParentIDs holds the identifiers of the authors whose crawl
	// discovered this one. A nil slice means the parentage is unknown.
	ParentIDs []string

	// Documents is the set of document fingerprints associated with
	// this author.
	Documents map[string]struct{}

	// Profile metadata, harvested from the author's profile page.
	ProfileName string
	Institution string
	EmailDomain string
	Interests   []string
}

// NewAuthor builds an Author from a raw display name. The name is
// diacritic-shaved and must contain internal whitespace so that an
// initial+surname match key can be derived; otherwise ErrInvalidName is
// returned. When id is empty a placeholder id is minted. An empty
// parentID leaves the parent set unknown.
func NewAuthor(name, id, parentID string, m *Minter) (*Author, error) {
	shaved := shaveMarksLatin(strings.TrimSpace(name))

	key, err := DeriveMatchKey(shaved)
	if err != nil {
		return nil, fmt.Errorf("author %q: %w", name, err)
	}

	if id == "" {
		id = m.AuthorID()
	}

	var parents []string
	if parentID != "" {
		parents = []string{parentID}
	}

	return &Author{
		Name:      shaved,
		ID:        id,
		MatchKey:  key,
		ParentIDs: parents,
		Documents: make(map[string]struct{}),
	}, nil
}

// DeriveMatchKey computes the blocking key for a display name: the last
// whitespace-delimited token is the surname, the first character of the
// remaining text is the initial.
func DeriveMatchKey(name string) (MatchKey, error) {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) < 2 {
		return MatchKey{}, ErrInvalidName
	}

	rest := strings.Join(fields[:len(fields)-1], " ")
	return MatchKey{
		Initial: string([]rune(rest)[0]),
		Surname: fields[len(fields)-1],
	}, nil
}

// Placeholder reports whether the author's id is synthesized.
func (a *Author) Placeholder() bool {
	return IsPlaceholder(a.ID)
}

// Similarity is the diagnostic tuple returned by Compare. It is a
// secondary signal only; the authoritative merge trigger is an exact
// match-key collision under a shared parent.
type Similarity struct {
	SameMatchKey bool
	SameParent   bool
	NameSim      float64
}

// Compare reports how alike two authors look: match-key equality,
// shared parentage, and Jaro similarity over lowercased names.
func Compare(a, b *Author) Similarity {
	return Similarity{
		SameMatchKey: a.MatchKey == b.MatchKey,
		SameParent:   shareParent(a.ParentIDs, b.ParentIDs),
		NameSim:      smetrics.Jaro(strings.ToLower(a.Name), strings.ToLower(b.Name)),
	}
}

func shareParent(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// CanonicalID picks the surviving identifier of a merge. Placeholder
// ids always lose to external ids; between two external ids the
// lexicographically greater one wins. A single string comparison covers
// both rules because the placeholder prefix sorts below every
// alphanumeric character. The choice is stable and symmetric.
func CanonicalID(x, y string) string {
	if x > y {
		return x
	}
	return y
}

// SymmetricUpdate reconciles two authors with the same match key,
// mutating both records to an identical merged state: the longer name,
// the canonical id, the union of document sets, and the union of parent
// sets unless either side's parentage is unknown (then the merged
// parentage is unknown too). Idempotent and commutative.
//
// Both records alias the same content afterwards; callers holding other
// references to either must refresh them through the identity registry.
func SymmetricUpdate(a, b *Author) error {
	if a.MatchKey != b.MatchKey {
		return fmt.Errorf("merge %q with %q: %w", a.MatchKey, b.MatchKey, ErrNameMismatch)
	}

	name := longerName(a.Name, b.Name)
	id := CanonicalID(a.ID, b.ID)
	parents := mergeParents(a.ParentIDs, b.ParentIDs)
	docs := unionDocs(a.Documents, b.Documents)

	// Profile metadata follows the canonical id's owner, falling back
	// to the other record where the owner's field is empty.
	owner, other := a, b
	if b.ID == id && a.ID != id {
		owner, other = b, a
	}
	profileName := coalesce(owner.ProfileName, other.ProfileName)
	institution := coalesce(owner.Institution, other.Institution)
	emailDomain := coalesce(owner.EmailDomain, other.EmailDomain)
	interests := owner.Interests
	if len(interests) == 0 {
		interests = other.Interests
	}

	for _, r := range []*Author{a, b} {
		r.Name = name
		r.ID = id
		r.ParentIDs = parents
		r.Documents = docs
		r.ProfileName = profileName
		r.Institution = institution
		r.EmailDomain = emailDomain
		r.Interests = interests
	}
	return nil
}

// UpdateTo overwrites a's mutable fields from canonical. The match keys
// must agree.
func (a *Author) UpdateTo(canonical *Author) error {
	if a.MatchKey != canonical.MatchKey {
		return fmt.Errorf("update %q to %q: %w", a.MatchKey, canonical.MatchKey, ErrNameMismatch)
	}
	a.Name = canonical.Name
	a.ID = canonical.ID
	a.ParentIDs = canonical.ParentIDs
	a.Documents = canonical.Documents
	a.ProfileName = canonical.ProfileName
	a.Institution = canonical.Institution
	a.EmailDomain = canonical.EmailDomain
	a.Interests = canonical.Interests
	return nil
}

// AddDocumentRef records a document fingerprint on the author.
func (a *Author) AddDocumentRef(fingerprint string) {
	if a.Documents == nil {
		a.Documents = make(map[string]struct{})
	}
	a.Documents[fingerprint] = struct{}{}
}

// AdoptProfile fills in profile metadata from a freshly parsed page.
// Non-empty incoming fields win; existing values survive blanks so that
// repeated pagination pages do not erase earlier harvests.
func (a *Author) AdoptProfile(profileName, institution, emailDomain string, interests []string) {
	a.ProfileName = coalesce(profileName, a.ProfileName)
	a.Institution = coalesce(institution, a.Institution)
	a.EmailDomain = coalesce(emailDomain, a.EmailDomain)
	if len(interests) > 0 {
		a.Interests = interests
	}
}

// longerName prefers the longer of two names; on equal length the
// lexicographically greater one, so the choice is symmetric.
func longerName(x, y string) string {
	if len(x) > len(y) {
		return x
	}
	if len(y) > len(x) {
		return y
	}
	if x > y {
		return x
	}
	return y
}

// mergeParents unions two parent sets. If either side is unknown the
// result is unknown: uncertainty propagates rather than being guessed
// away.
func mergeParents(a, b []string) []string {
	if a == nil || b == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	for _, id := range b {
		seen[id] = struct{}{}
	}
	merged := make([]string, 0, len(seen))
	for id := range seen {
		merged = append(merged, id)
	}
	sort.Strings(merged)
	return merged
}

func unionDocs(a, b map[string]struct{}) map[string]struct{} {
	docs := make(map[string]struct{}, len(a)+len(b))
	for fp := range a {
		docs[fp] = struct{}{}
	}
	for fp := range b {
		docs[fp] = struct{}{}
	}
	return docs
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
