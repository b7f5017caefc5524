package request

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/matsen/scholargraph/internal/entity"
)

const titleSearchBase = "https://scholar.google.com/scholar" +
	"?as_vis=1&as_sdt=1,5&as_q=&as_occt=title&as_epq="

// TitleSearch looks up one publication by exact-title fragments on
// behalf of the parent author whose profile listed it.
type TitleSearch struct {
	ParentID string
	Terms    []string
}

// NewTitleSearch builds a title-exact search from fragment terms.
func NewTitleSearch(parentID string, terms []string, hop int) *Request {
	return &Request{
		Kind:        KindTitleSearch,
		Hop:         hop,
		TitleSearch: &TitleSearch{ParentID: parentID, Terms: terms},
	}
}

func (t *TitleSearch) urls() []string {
	quoted := make([]string, len(t.Terms))
	for i, term := range t.Terms {
		quoted[i] = `"` + url.QueryEscape(term) + `"`
	}
	return []string{titleSearchBase + strings.Join(quoted, "+")}
}

// parse turns the best-matching result into a single Document. Linked
// coauthors become stub records keyed to the parent; the parent's own
// entry among the links is dropped so the graph resolves it to the one
// canonical record. Unlinked names ride along as plain strings and get
// placeholder ids during ingestion.
func (t *TitleSearch) parse(ex Extractor, mint *entity.Minter, pages [][]byte) (Outcome, error) {
	page, err := ex.TitleResults(pages[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("parse title results: %w", err)
	}
	if len(page.Results) == 0 {
		return Outcome{}, nil
	}
	res := page.Results[0]

	names := make([]string, 0, len(res.Linked)+len(res.Unlinked))
	var linked []*entity.Author
	for _, stub := range res.Linked {
		names = append(names, stub.Name)
		if stub.ID == t.ParentID {
			continue
		}
		a, err := entity.NewAuthor(stub.Name, stub.ID, t.ParentID, mint)
		if err != nil {
			continue
		}
		linked = append(linked, a)
	}
	names = append(names, res.Unlinked...)

	doc := entity.NewDocument(res.Title, t.ParentID, names, res.Metadata, res.DocID, mint)
	doc.Linked = linked
	return Outcome{Documents: []*entity.Document{doc}}, nil
}
