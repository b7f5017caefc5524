// Package scholar implements the markup extractor for the profile
// site's page layouts. Everything here is layout-specific; the crawl
// core only sees the structured fields.
package scholar

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/matsen/scholargraph/internal/request"
)

const siteBase = "https://scholar.google.com"

// Extractor parses the site's author-search, profile, and title-search
// pages.
type Extractor struct{}

// New returns the page-layout extractor.
func New() *Extractor { return &Extractor{} }

var _ request.Extractor = (*Extractor)(nil)

// AuthorList parses an author-search result page: one candidate per
// profile card, plus the next-page URL hidden in the pager button's
// onclick handler.
func (e *Extractor) AuthorList(raw []byte) (request.AuthorListPage, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return request.AuthorListPage{}, err
	}

	var page request.AuthorListPage
	for _, card := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "div" && hasClass(n, "gs_ai_t")
	}) {
		a := firstMatch(card, func(n *html.Node) bool {
			return n.Data == "a" && n.Parent != nil && n.Parent.Data == "h3"
		})
		if a == nil {
			continue
		}
		id := userParam(getAttr(a, "href"))
		name := strings.TrimSpace(textContent(a))
		if id == "" || name == "" {
			continue
		}
		page.Candidates = append(page.Candidates, request.AuthorStub{ID: id, Name: name})
	}

	if btn := firstMatch(doc, func(n *html.Node) bool {
		return n.Data == "button" && hasClass(n, "gs_btnPR") && getAttr(n, "onclick") != ""
	}); btn != nil {
		page.NextPageURL = nextURLFromOnclick(getAttr(btn, "onclick"))
	}
	return page, nil
}

// nextURLFromOnclick digs the next-page location out of the pager
// button's handler, e.g. window.location='/citations?\x26after_author=…'.
func nextURLFromOnclick(onclick string) string {
	start := strings.Index(onclick, "'")
	end := strings.LastIndex(onclick, "'")
	if start < 0 || end <= start {
		return ""
	}
	path := strings.ReplaceAll(onclick[start+1:end], `\x`, "%")
	if path == "" {
		return ""
	}
	return siteBase + path
}

var fragmentSplit = regexp.MustCompile(`[^A-Za-z0-9;:" \[\]{},.\-]+`)

// Profile parses one publication-list page: header metadata plus the
// title fragments of each listed publication. Long titles are elided
// with an ellipsis, so each line yields fragments, not an exact title.
func (e *Extractor) Profile(raw []byte) (request.ProfilePage, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return request.ProfilePage{}, err
	}

	page := request.ProfilePage{
		DisplayName: textOfID(doc, "gsc_prf_in"),
		EmailDomain: emailDomain(textOfID(doc, "gsc_prf_ivh")),
	}
	if inst := firstMatch(doc, func(n *html.Node) bool {
		return n.Data == "a" && hasClass(n, "gsc_prf_ila")
	}); inst != nil {
		page.Institution = strings.TrimSpace(textContent(inst))
	}
	if div := elementByID(doc, "gsc_prf_int"); div != nil {
		for _, a := range findAll(div, func(n *html.Node) bool { return n.Data == "a" }) {
			if t := strings.TrimSpace(textContent(a)); t != "" {
				page.Interests = append(page.Interests, t)
			}
		}
	}

	for _, cell := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "td" && hasClass(n, "gsc_a_t")
	}) {
		a := firstMatch(cell, func(n *html.Node) bool { return n.Data == "a" })
		if a == nil {
			continue
		}
		if frags := titleFragments(a); len(frags) > 0 {
			page.TitleFragments = append(page.TitleFragments, frags)
		}
	}
	return page, nil
}

// titleFragments splits one publication line into searchable pieces,
// dropping the elision dots and anything too short to narrow a search.
func titleFragments(a *html.Node) []string {
	var frags []string
	for c := a.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		t := strings.Trim(c.Data, " - …")
		for _, f := range fragmentSplit.Split(t, -1) {
			f = strings.TrimSpace(f)
			if len(f) > 2 {
				frags = append(frags, f)
			}
		}
	}
	return frags
}

// TitleResults parses a title-search page: one result per data-did
// container, with linked coauthors from the byline anchors and the
// remaining names as plain strings.
func (e *Extractor) TitleResults(raw []byte) (request.ResultPage, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return request.ResultPage{}, err
	}

	var page request.ResultPage
	for _, div := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "div" && getAttr(n, "data-did") != ""
	}) {
		res := request.TitleResult{DocID: getAttr(div, "data-did")}

		if h3a := firstMatch(div, func(n *html.Node) bool {
			return n.Data == "a" && n.Parent != nil && n.Parent.Data == "h3"
		}); h3a != nil {
			res.Title = strings.TrimSpace(textContent(h3a))
		}

		byline := firstMatch(div, func(n *html.Node) bool {
			return n.Data == "div" && hasClass(n, "gs_a")
		})
		if byline != nil {
			parseByline(byline, &res)
		}

		page.Results = append(page.Results, res)
	}
	return page, nil
}

// parseByline reads the authors-venue-publisher line. Linked authors
// are anchors; everything before the first   in the text nodes is
// unlinked author names; the tail carries venue and year.
func parseByline(byline *html.Node, res *request.TitleResult) {
	for _, a := range findAll(byline, func(n *html.Node) bool { return n.Data == "a" }) {
		id := userParam(getAttr(a, "href"))
		name := strings.TrimSpace(textContent(a))
		if id != "" && name != "" {
			res.Linked = append(res.Linked, request.AuthorStub{ID: id, Name: name})
		}
	}

	var text strings.Builder
	for c := byline.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	head, tail, _ := strings.Cut(text.String(), " ")
	for _, name := range strings.Split(head, ", ") {
		name = strings.Trim(name, " …-")
		if len(name) > 2 {
			res.Unlinked = append(res.Unlinked, name)
		}
	}

	// "- Journal of X, 2020 - Publisher"
	tail = strings.ReplaceAll(tail, " ", " ")
	tail = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tail), "-"))
	parts := strings.Split(tail, " - ")
	if len(parts) > 0 && parts[0] != "" {
		venue := strings.TrimSpace(parts[0])
		if n, date, ok := splitTrailingYear(venue); ok {
			venue, res.Metadata.PublicationDate = n, date
		}
		res.Metadata.Journal = strings.Trim(venue, " ,")
	}
	if len(parts) > 1 {
		res.Metadata.Publisher = strings.TrimSpace(parts[1])
	}
}

var trailingYear = regexp.MustCompile(`^(.*?),?\s*(\d{4})$`)

func splitTrailingYear(s string) (string, string, bool) {
	m := trailingYear.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s, "", false
	}
	return m[1], m[2], true
}

func userParam(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("user")
}

// emailDomain pulls the domain out of the "Verified email at …" line.
func emailDomain(s string) string {
	s = strings.TrimSpace(s)
	if _, after, ok := strings.Cut(s, " at "); ok {
		dom, _, _ := strings.Cut(strings.TrimSpace(after), " ")
		return strings.Trim(dom, " -")
	}
	if i := strings.Index(s, "@"); i >= 0 {
		dom, _, _ := strings.Cut(s[i+1:], " ")
		return strings.Trim(dom, " -")
	}
	return ""
}
