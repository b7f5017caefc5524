package export

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/matsen/scholargraph/internal/graph"
)

const topCollaborators = 10

// WriteReport writes a markdown summary of the resolved graph.
func WriteReport(w io.Writer, g *graph.Graph) error {
	md := markdown.NewMarkdown(w)
	size := g.Size()

	md.H1("Co-authorship Graph Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Authors", strconv.Itoa(size.Authors)},
			{"Documents", strconv.Itoa(size.Documents)},
			{"Edges", strconv.Itoa(size.Edges)},
		},
	})
	md.PlainText("")

	writeCollaborators(md, g)

	return md.Build()
}

// writeCollaborators lists the authors carrying the most edges.
func writeCollaborators(md *markdown.Markdown, g *graph.Graph) {
	counts := make(map[string]int)
	for row := range g.Edges(false) {
		counts[row[0]]++
		counts[row[1]]++
	}
	if len(counts) == 0 {
		return
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > topCollaborators {
		ids = ids[:topCollaborators]
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		name, institution := id, ""
		if a := g.Lookup(id); a != nil {
			name = a.Name
			institution = a.Institution
		}
		rows = append(rows, []string{name, institution, strconv.Itoa(counts[id])})
	}

	md.H2("Top Collaborators")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Author", "Institution", "Collaborations"},
		Rows:   rows,
	})
	md.PlainText("")
}
