package graph

import (
	"iter"
	"strings"

	"github.com/matsen/scholargraph/internal/entity"
)

// Export column orders. Stable; serializers rely on them.
var (
	EdgeColumns = []string{"author_id_1", "author_id_2", "doc_id"}

	NodeAttrColumns = []string{
		"author_id", "name", "match_key", "parent_ids",
		"profile_name", "institution", "email_domain", "interests",
	}

	EdgeAttrColumns = []string{
		"doc_id", "title", "conference", "book", "journal", "publisher",
		"publication_date", "issue", "volume", "pages", "parent_author",
	}
)

// Edges yields one row per coauthor pair per document, optionally
// preceded by the column header. The sequence is a snapshot taken at
// the call: it is finite and restartable, but the graph must not be
// mutated while it is being consumed.
func (g *Graph) Edges(header bool) iter.Seq[[]string] {
	rows := make([][]string, 0, len(g.docOrder))
	for _, fp := range g.docOrder {
		e := g.documents[fp]
		ids := sortedKeys(g.resolvedIDs(e.coauthors))
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				rows = append(rows, []string{ids[i], ids[j], e.doc.DocID})
			}
		}
	}
	return sequence(EdgeColumns, rows, header)
}

// NodeAttributes yields one row per author record with its exported
// attributes. Snapshot semantics as for Edges.
func (g *Graph) NodeAttributes(header bool) iter.Seq[[]string] {
	seen := make(map[*entity.Author]bool)
	rows := make([][]string, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		a := g.Lookup(id)
		if a == nil || seen[a] {
			continue
		}
		seen[a] = true
		rows = append(rows, []string{
			a.ID,
			a.Name,
			a.MatchKey.String(),
			strings.Join(a.ParentIDs, "|"),
			a.ProfileName,
			a.Institution,
			a.EmailDomain,
			strings.Join(a.Interests, "|"),
		})
	}
	return sequence(NodeAttrColumns, rows, header)
}

// EdgeAttributes yields one row per document with its metadata.
// Snapshot semantics as for Edges.
func (g *Graph) EdgeAttributes(header bool) iter.Seq[[]string] {
	rows := make([][]string, 0, len(g.docOrder))
	for _, fp := range g.docOrder {
		d := g.documents[fp].doc
		parentID := d.ParentID
		if rec := g.Lookup(parentID); rec != nil {
			parentID = rec.ID
		}
		rows = append(rows, []string{
			d.DocID,
			d.Title,
			d.Conference,
			d.Book,
			d.Journal,
			d.Publisher,
			d.PublicationDate,
			d.Issue,
			d.Volume,
			d.Pages,
			parentID,
		})
	}
	return sequence(EdgeAttrColumns, rows, header)
}

func sequence(columns []string, rows [][]string, header bool) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		if header && !yield(columns) {
			return
		}
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}
