package store

import (
	"path/filepath"
	"testing"

	"github.com/matsen/scholargraph/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "crawl.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen(t *testing.T) {
	d := openTestDB(t)
	if d.RunID() == "" {
		t.Error("RunID is empty")
	}

	n, err := d.CountAuthors()
	if err != nil || n != 0 {
		t.Errorf("CountAuthors = %d, %v", n, err)
	}
}

func TestSaveAuthor_Upsert(t *testing.T) {
	d := openTestDB(t)
	m := entity.NewMinter(1)

	a, err := entity.NewAuthor("Jane Doe", "JD01", "", m)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SaveAuthor(a); err != nil {
		t.Fatalf("SaveAuthor failed: %v", err)
	}

	a.Institution = "Somewhere U"
	if err := d.SaveAuthor(a); err != nil {
		t.Fatalf("second SaveAuthor failed: %v", err)
	}

	n, err := d.CountAuthors()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountAuthors = %d, want upsert by id", n)
	}
}

func TestSaveDocument_Upsert(t *testing.T) {
	d := openTestDB(t)
	m := entity.NewMinter(1)

	doc := entity.NewDocument("X", "JD01", []string{"Jane Doe", "John Q Reed"},
		entity.Metadata{Journal: "Nature"}, "D1", m)
	if err := d.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	// Same fingerprint, rediscovered via a different page.
	again := entity.NewDocument("X", "JD01", []string{"Jane Doe", "John Q Reed"},
		entity.Metadata{Journal: "Nature"}, "D1", m)
	if err := d.SaveDocument(again); err != nil {
		t.Fatalf("second SaveDocument failed: %v", err)
	}

	n, err := d.CountDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountDocuments = %d, want upsert by fingerprint", n)
	}
}

func TestLoadGraph(t *testing.T) {
	d := openTestDB(t)
	m := entity.NewMinter(1)

	jane, err := entity.NewAuthor("Jane Doe", "JD01", "", m)
	if err != nil {
		t.Fatal(err)
	}
	jane.Institution = "Somewhere U"
	jane.Interests = []string{"graphs"}
	if err := d.SaveAuthor(jane); err != nil {
		t.Fatal(err)
	}

	reed, err := entity.NewAuthor("John Q Reed", "R1", "JD01", m)
	if err != nil {
		t.Fatal(err)
	}
	doc := entity.NewDocument("X", "JD01", []string{"Jane Doe", "John Q Reed"},
		entity.Metadata{Journal: "Nature"}, "D1", m)
	doc.Linked = []*entity.Author{reed}
	if err := d.SaveDocument(doc); err != nil {
		t.Fatal(err)
	}

	// A document whose parent never made it into the store.
	orphan := entity.NewDocument("Y", "GHOST", []string{"Ann Ghost", "Bob Stone"},
		entity.Metadata{}, "D2", m)
	if err := d.SaveDocument(orphan); err != nil {
		t.Fatal(err)
	}

	g, skipped, err := d.LoadGraph(entity.NewMinter(2))
	if err != nil {
		t.Fatalf("LoadGraph failed: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want the orphaned document", skipped)
	}

	size := g.Size()
	if size.Authors != 2 || size.Documents != 1 || size.Edges != 1 {
		t.Errorf("Size = %+v, want 2 authors, 1 document, 1 edge", size)
	}

	got := g.Lookup("JD01")
	if got == nil || got.Institution != "Somewhere U" || len(got.Interests) != 1 {
		t.Errorf("Lookup(JD01) = %+v, metadata not restored", got)
	}
	if g.Lookup("R1") == nil {
		t.Error("linked coauthor not restored")
	}
}
