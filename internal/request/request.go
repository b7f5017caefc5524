// Package request models the crawl state machine: three typed request
// variants, each translating fetched pages into entities and follow-up
// requests, bounded in depth by a hop counter.
package request

import (
	"fmt"

	"github.com/matsen/scholargraph/internal/entity"
)

// Kind discriminates the request variants.
type Kind int

const (
	KindNameSearch Kind = iota
	KindAuthorProfile
	KindTitleSearch
)

func (k Kind) String() string {
	switch k {
	case KindNameSearch:
		return "name-search"
	case KindAuthorProfile:
		return "author-profile"
	case KindTitleSearch:
		return "title-search"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Request is a tagged union over the three variants. Exactly one
// payload pointer is non-nil, matching Kind. Hop counts how many
// author-to-title-search expansions separate this request from the
// seed search; it is incremented exactly once per such expansion.
type Request struct {
	Kind Kind
	Hop  int

	NameSearch  *NameSearch
	Profile     *AuthorProfile
	TitleSearch *TitleSearch
}

// Outcome is what parsing a request's pages produced.
type Outcome struct {
	Authors   []*entity.Author
	Documents []*entity.Document
	Requests  []*Request
}

// URLs returns the fetchable URLs, in dependency order. Profile pages
// are independent and safe to fetch concurrently; the other variants
// expose a single URL.
func (r *Request) URLs() []string {
	switch r.Kind {
	case KindNameSearch:
		return r.NameSearch.urls()
	case KindAuthorProfile:
		return r.Profile.urls()
	case KindTitleSearch:
		return r.TitleSearch.urls()
	}
	return nil
}

// Parse consumes the fetched bodies, one per URL in URLs order.
func (r *Request) Parse(ex Extractor, mint *entity.Minter, pages [][]byte) (Outcome, error) {
	if len(pages) == 0 {
		return Outcome{}, fmt.Errorf("request: no pages for %s", r.Kind)
	}
	switch r.Kind {
	case KindNameSearch:
		return r.NameSearch.parse(ex, mint, pages)
	case KindAuthorProfile:
		return r.Profile.parse(ex, mint, r.Hop, pages)
	case KindTitleSearch:
		return r.TitleSearch.parse(ex, mint, pages)
	}
	return Outcome{}, fmt.Errorf("request: unknown kind %d", int(r.Kind))
}
