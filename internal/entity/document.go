package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Metadata holds the bibliographic fields of a document. All fields are
// raw strings as extracted from the page; empty means not present.
type Metadata struct {
	PublicationDate string `json:"publication_date,omitempty"`
	Pages           string `json:"pages,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	Journal         string `json:"journal,omitempty"`
	Volume          string `json:"volume,omitempty"`
	Issue           string `json:"issue,omitempty"`
	Conference      string `json:"conference,omitempty"`
	Book            string `json:"book,omitempty"`
}

// Venue returns the first non-empty of journal, conference, book.
func (m Metadata) Venue() string {
	return coalesce(m.Journal, m.Conference, m.Book)
}

// Document represents a publication. Two documents are the same iff
// their fingerprints match: the same paper surfaces through different
// URLs and pages and must collapse to one edge.
type Document struct {
	Title string

	// ParentID identifies the author whose profile page led to this
	// document.
	ParentID string

	// Authors is the deduplicated, sorted set of coauthor names. Names
	// without internal whitespace are discarded as noise at
	// construction.
	Authors []string

	Metadata

	// DocID is the crawl-assigned opaque id, synthesized when the page
	// did not provide one.
	DocID string

	// Fingerprint is the deterministic dedup identity, computed once at
	// construction.
	Fingerprint string

	// Linked carries the id-resolved coauthor stubs discovered next to
	// this document. It rides along for graph resolution and is not
	// part of the fingerprint.
	Linked []*Author
}

// NewDocument builds a Document, filtering and sorting the coauthor
// names, minting a doc id when none was assigned, and computing the
// fingerprint.
func NewDocument(title, parentID string, names []string, meta Metadata, docID string, m *Minter) *Document {
	if docID == "" {
		docID = m.DocID()
	}
	d := &Document{
		Title:    strings.TrimSpace(title),
		ParentID: parentID,
		Authors:  cleanAuthorNames(names),
		Metadata: meta,
		DocID:    docID,
	}
	d.Fingerprint = makeFingerprint(d)
	return d
}

// cleanAuthorNames deduplicates, drops single-token names, and sorts.
func cleanAuthorNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if !strings.Contains(n, " ") {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		cleaned = append(cleaned, n)
	}
	sort.Strings(cleaned)
	return cleaned
}

// makeFingerprint computes the document's dedup identity by a priority
// rule: with at least 4 of {venue, volume+issue, pages, date, publisher}
// present, hash their concatenation; else hash the title; else the book
// field; else whatever metadata exists plus the coauthor names plus the
// parent id. Every document gets a deterministic fingerprint even with
// sparse metadata, at the cost of weaker dedup when data is sparse.
func makeFingerprint(d *Document) string {
	venueIssue := d.Volume + d.Issue

	var parts []string
	for _, p := range []string{d.Venue(), venueIssue, d.Pages, d.PublicationDate, d.Publisher} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	switch {
	case len(parts) >= 4:
		return hashHex(strings.Join(parts, ""))
	case d.Title != "":
		return hashHex(d.Title)
	case d.Book != "":
		return hashHex(d.Book)
	default:
		return hashHex(strings.Join(parts, "") + strings.Join(d.Authors, "") + d.ParentID)
	}
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
