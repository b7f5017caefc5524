// Package export serializes the resolved graph: a zip archive of CSV
// tables and a markdown summary report.
package export

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"iter"

	"github.com/matsen/scholargraph/internal/graph"
)

// Archive member names.
const (
	EdgeListFile  = "edge_list.csv"
	NodeAttrsFile = "node_attrs.csv"
	EdgeAttrsFile = "edge_attrs.csv"
)

// WriteZip writes the edge list, node attributes, and edge attributes
// as CSV tables inside one zip archive.
func WriteZip(w io.Writer, g *graph.Graph) error {
	zw := zip.NewWriter(w)

	tables := []struct {
		name string
		rows iter.Seq[[]string]
	}{
		{EdgeListFile, g.Edges(true)},
		{NodeAttrsFile, g.NodeAttributes(true)},
		{EdgeAttrsFile, g.EdgeAttributes(true)},
	}
	for _, t := range tables {
		fw, err := zw.Create(t.name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", t.name, err)
		}
		if err := writeCSV(fw, t.rows); err != nil {
			return fmt.Errorf("writing %s: %w", t.name, err)
		}
	}

	return zw.Close()
}

func writeCSV(w io.Writer, rows iter.Seq[[]string]) error {
	cw := csv.NewWriter(w)
	for row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
