package request

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/matsen/scholargraph/internal/entity"
)

const (
	profileBase     = "https://scholar.google.com/citations?"
	profilePageSize = 100
)

// AuthorProfile fetches an author's publication-list pages. The pages
// are independently addressable, so all of them can be in flight at
// once. MaxPage 0 means metadata only: a single page is fetched and no
// title searches are emitted, which is how crawl depth is bounded.
type AuthorProfile struct {
	AuthorID string
	MaxPage  int
}

// NewAuthorProfile builds a profile request for a site-assigned id.
func NewAuthorProfile(id string, hop, maxPage int) *Request {
	return &Request{
		Kind:    KindAuthorProfile,
		Hop:     hop,
		Profile: &AuthorProfile{AuthorID: id, MaxPage: maxPage},
	}
}

func (p *AuthorProfile) urls() []string {
	n := p.MaxPage
	if n < 1 {
		n = 1
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v := url.Values{}
		v.Set("user", p.AuthorID)
		v.Set("hl", "en")
		v.Set("cstart", strconv.Itoa(i*profilePageSize))
		v.Set("pagesize", strconv.Itoa(profilePageSize))
		v.Set("view_op", "list_works")
		v.Set("sortby", "pubdate")
		out = append(out, profileBase+v.Encode())
	}
	return out
}

// parse harvests profile metadata from the first page and, unless
// MaxPage is 0, emits one title search per publication line across all
// pages. Title searches carry hop+1: this is the only place the hop
// counter advances.
func (p *AuthorProfile) parse(ex Extractor, mint *entity.Minter, hop int, pages [][]byte) (Outcome, error) {
	first, err := ex.Profile(pages[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("parse profile %s: %w", p.AuthorID, err)
	}

	var out Outcome
	a, err := entity.NewAuthor(first.DisplayName, p.AuthorID, "", mint)
	switch {
	case err == nil:
		a.ProfileName = first.DisplayName
		a.Institution = first.Institution
		a.EmailDomain = first.EmailDomain
		a.Interests = first.Interests
		out.Authors = append(out.Authors, a)
	case errors.Is(err, entity.ErrInvalidName):
		// mononym display name; keep the titles, skip the record
	default:
		return Outcome{}, fmt.Errorf("profile %s: %w", p.AuthorID, err)
	}

	if p.MaxPage == 0 {
		return out, nil
	}

	emit := func(pg ProfilePage) {
		for _, frags := range pg.TitleFragments {
			if len(frags) == 0 {
				continue
			}
			out.Requests = append(out.Requests, NewTitleSearch(p.AuthorID, frags, hop+1))
		}
	}
	emit(first)
	for i, raw := range pages[1:] {
		pg, err := ex.Profile(raw)
		if err != nil {
			return Outcome{}, fmt.Errorf("parse profile %s page %d: %w", p.AuthorID, i+2, err)
		}
		emit(pg)
	}
	return out, nil
}
