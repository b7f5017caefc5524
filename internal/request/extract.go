package request

import "github.com/matsen/scholargraph/internal/entity"

// AuthorStub is an author reference lifted from markup: a display name
// and, when the page links to a profile, the site-assigned id.
type AuthorStub struct {
	ID   string
	Name string
}

// AuthorListPage is one page of an author-name search.
type AuthorListPage struct {
	Candidates  []AuthorStub
	NextPageURL string
}

// ProfilePage is one page of an author's publication list plus the
// descriptive header fields, which repeat on every page.
type ProfilePage struct {
	DisplayName string
	Institution string
	EmailDomain string
	Interests   []string

	// TitleFragments holds one fragment list per publication line.
	// Long titles are elided by the site, so a line yields several
	// fragments rather than one exact title.
	TitleFragments [][]string
}

// TitleResult is one hit on a title-exact search page.
type TitleResult struct {
	DocID    string
	Title    string
	Linked   []AuthorStub
	Unlinked []string
	Metadata entity.Metadata
}

// ResultPage is a title-search result page, best match first.
type ResultPage struct {
	Results []TitleResult
}

// Extractor turns raw markup into structured fields. Implementations
// are page-layout specific and live outside this package; the state
// machine only consumes the structured forms.
type Extractor interface {
	AuthorList(raw []byte) (AuthorListPage, error)
	Profile(raw []byte) (ProfilePage, error)
	TitleResults(raw []byte) (ResultPage, error)
}
