package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/matsen/scholargraph/internal/entity"
	"github.com/matsen/scholargraph/internal/graph"
)

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	m := entity.NewMinter(1)
	g := graph.New(m)

	jane, err := entity.NewAuthor("Jane Doe", "JD01", "", m)
	if err != nil {
		t.Fatal(err)
	}
	jane.Institution = "Somewhere U"
	g.AddAuthor(jane)

	doc := entity.NewDocument("X", "JD01", []string{"Jane Doe", "John Q Reed"},
		entity.Metadata{Journal: "Nature"}, "D1", m)
	if _, err := g.AddDocument(doc); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestWriteZip(t *testing.T) {
	g := buildGraph(t)

	var buf bytes.Buffer
	if err := WriteZip(&buf, g); err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("archive unreadable: %v", err)
	}

	want := map[string][]string{
		EdgeListFile:  graph.EdgeColumns,
		NodeAttrsFile: graph.NodeAttrColumns,
		EdgeAttrsFile: graph.EdgeAttrColumns,
	}
	if len(zr.File) != len(want) {
		t.Fatalf("archive has %d members, want %d", len(zr.File), len(want))
	}

	for _, zf := range zr.File {
		header, ok := want[zf.Name]
		if !ok {
			t.Errorf("unexpected archive member %q", zf.Name)
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			t.Fatal(err)
		}
		records, err := csv.NewReader(rc).ReadAll()
		rc.Close()
		if err != nil {
			t.Fatalf("%s unparseable: %v", zf.Name, err)
		}

		if len(records) < 2 {
			t.Errorf("%s has %d rows, want header plus data", zf.Name, len(records))
			continue
		}
		for i, col := range header {
			if records[0][i] != col {
				t.Errorf("%s header[%d] = %q, want %q", zf.Name, i, records[0][i], col)
			}
		}
	}
}

func TestWriteReport(t *testing.T) {
	g := buildGraph(t)

	var buf bytes.Buffer
	if err := WriteReport(&buf, g); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Co-authorship Graph Report",
		"## Top Collaborators",
		"Jane Doe",
		"Somewhere U",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport_EmptyGraph(t *testing.T) {
	g := graph.New(entity.NewMinter(1))

	var buf bytes.Buffer
	if err := WriteReport(&buf, g); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	if strings.Contains(buf.String(), "Top Collaborators") {
		t.Error("empty graph should not list collaborators")
	}
}
