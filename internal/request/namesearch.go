package request

import (
	"fmt"
	"net/url"

	"github.com/matsen/scholargraph/internal/entity"
)

const nameSearchBase = "https://scholar.google.com/citations?view_op=search_authors&mauthors="

// DefaultMaxSearchPages bounds name-search pagination.
const DefaultMaxSearchPages = 10

// NameSearch enumerates paginated search results for a free-text
// author name. The first page's URL is built from the query; later
// pages carry an explicit URL discovered on the previous page.
type NameSearch struct {
	Query   string
	PageURL string
	Page    int
	MaxPage int
}

// NewNameSearch builds the hop-0 seed request for an author name.
func NewNameSearch(query string, maxPage int) *Request {
	if maxPage <= 0 {
		maxPage = DefaultMaxSearchPages
	}
	return &Request{
		Kind:       KindNameSearch,
		NameSearch: &NameSearch{Query: query, Page: 1, MaxPage: maxPage},
	}
}

func (n *NameSearch) urls() []string {
	if n.PageURL != "" {
		return []string{n.PageURL}
	}
	return []string{nameSearchBase + url.QueryEscape(n.Query)}
}

// parse emits one profile follow-up per candidate, a stub author for
// every candidate whose name yields a match key, and a next-page
// search while pagination and the page bound allow. Profile follow-ups
// leave MaxPage zero; the scheduler assigns it from its depth budget
// before enqueueing.
func (n *NameSearch) parse(ex Extractor, mint *entity.Minter, pages [][]byte) (Outcome, error) {
	page, err := ex.AuthorList(pages[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("parse author list: %w", err)
	}

	var out Outcome
	for _, stub := range page.Candidates {
		// The profile is worth crawling even when the display name is a
		// mononym; only the stub record needs a derivable match key.
		out.Requests = append(out.Requests, NewAuthorProfile(stub.ID, 0, 0))

		a, err := entity.NewAuthor(stub.Name, stub.ID, "", mint)
		if err != nil {
			continue
		}
		a.ProfileName = stub.Name
		out.Authors = append(out.Authors, a)
	}

	if page.NextPageURL != "" && n.Page < n.MaxPage {
		out.Requests = append(out.Requests, &Request{
			Kind: KindNameSearch,
			NameSearch: &NameSearch{
				Query:   n.Query,
				PageURL: page.NextPageURL,
				Page:    n.Page + 1,
				MaxPage: n.MaxPage,
			},
		})
	}
	return out, nil
}
