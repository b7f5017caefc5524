// Package store persists crawled authors and documents in SQLite and
// rebuilds the in-memory graph from them.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/matsen/scholargraph/internal/entity"
	"github.com/matsen/scholargraph/internal/graph"
)

// DB wraps a SQLite database holding crawl results.
type DB struct {
	db    *sql.DB
	runID string
}

// Open opens or creates a SQLite database at the given path and
// registers a new crawl run.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	d := &DB{db: db, runID: uuid.NewString()}
	_, err = db.Exec(`INSERT INTO crawls (id, started_at) VALUES (?, ?)`,
		d.runID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registering crawl run: %w", err)
	}
	return d, nil
}

// RunID identifies this crawl run.
func (d *DB) RunID() string { return d.runID }

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS crawls (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			parent_ids_json TEXT,
			profile_name TEXT,
			institution TEXT,
			email_domain TEXT,
			interests_json TEXT,
			crawl_id TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS documents (
			fingerprint TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			title TEXT,
			parent_author TEXT NOT NULL,
			authors_json TEXT NOT NULL,
			linked_json TEXT,
			metadata_json TEXT,
			crawl_id TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent_author);
	`
	_, err := db.Exec(schema)
	return err
}

// linkedStub is the persisted form of an id-resolved coauthor.
type linkedStub struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SaveAuthor upserts one author record keyed by id. Records evolve as
// the crawl resolves identities; the latest write wins.
func (d *DB) SaveAuthor(a *entity.Author) error {
	parents, err := json.Marshal(a.ParentIDs)
	if err != nil {
		return fmt.Errorf("encoding parent ids: %w", err)
	}
	interests, err := json.Marshal(a.Interests)
	if err != nil {
		return fmt.Errorf("encoding interests: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT OR REPLACE INTO authors
			(id, name, parent_ids_json, profile_name, institution, email_domain, interests_json, crawl_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(parents), a.ProfileName, a.Institution,
		a.EmailDomain, string(interests), d.runID)
	if err != nil {
		return fmt.Errorf("saving author %s: %w", a.ID, err)
	}
	return nil
}

// SaveDocument upserts one document keyed by fingerprint.
func (d *DB) SaveDocument(doc *entity.Document) error {
	authors, err := json.Marshal(doc.Authors)
	if err != nil {
		return fmt.Errorf("encoding authors: %w", err)
	}
	stubs := make([]linkedStub, 0, len(doc.Linked))
	for _, a := range doc.Linked {
		stubs = append(stubs, linkedStub{ID: a.ID, Name: a.Name})
	}
	linked, err := json.Marshal(stubs)
	if err != nil {
		return fmt.Errorf("encoding linked authors: %w", err)
	}
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT OR REPLACE INTO documents
			(fingerprint, doc_id, title, parent_author, authors_json, linked_json, metadata_json, crawl_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.Fingerprint, doc.DocID, doc.Title, doc.ParentID,
		string(authors), string(linked), string(meta), d.runID)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.Fingerprint, err)
	}
	return nil
}

// CountAuthors returns the number of persisted author records.
func (d *DB) CountAuthors() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM authors`).Scan(&n)
	return n, err
}

// CountDocuments returns the number of persisted documents.
func (d *DB) CountDocuments() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// LoadGraph replays the persisted records through a fresh graph in
// insertion order, re-running identity resolution. Documents whose
// parent never made it into the store are skipped; their count comes
// back alongside the graph.
func (d *DB) LoadGraph(mint *entity.Minter) (*graph.Graph, int, error) {
	g := graph.New(mint)

	rows, err := d.db.Query(`
		SELECT id, name, parent_ids_json, profile_name, institution, email_domain, interests_json
		FROM authors ORDER BY rowid`)
	if err != nil {
		return nil, 0, fmt.Errorf("loading authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, parentsJSON, profileName, institution, emailDomain, interestsJSON string
		if err := rows.Scan(&id, &name, &parentsJSON, &profileName, &institution, &emailDomain, &interestsJSON); err != nil {
			return nil, 0, fmt.Errorf("scanning author: %w", err)
		}
		a, err := entity.NewAuthor(name, id, "", mint)
		if err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(parentsJSON), &a.ParentIDs); err != nil {
			return nil, 0, fmt.Errorf("decoding parent ids for %s: %w", id, err)
		}
		a.ProfileName = profileName
		a.Institution = institution
		a.EmailDomain = emailDomain
		if err := json.Unmarshal([]byte(interestsJSON), &a.Interests); err != nil {
			return nil, 0, fmt.Errorf("decoding interests for %s: %w", id, err)
		}
		g.AddAuthor(a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("loading authors: %w", err)
	}

	skipped, err := d.loadDocuments(g, mint)
	if err != nil {
		return nil, 0, err
	}
	return g, skipped, nil
}

func (d *DB) loadDocuments(g *graph.Graph, mint *entity.Minter) (int, error) {
	rows, err := d.db.Query(`
		SELECT fingerprint, doc_id, title, parent_author, authors_json, linked_json, metadata_json
		FROM documents ORDER BY rowid`)
	if err != nil {
		return 0, fmt.Errorf("loading documents: %w", err)
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		var fingerprint, docID, title, parentID, authorsJSON, linkedJSON, metaJSON string
		if err := rows.Scan(&fingerprint, &docID, &title, &parentID, &authorsJSON, &linkedJSON, &metaJSON); err != nil {
			return 0, fmt.Errorf("scanning document: %w", err)
		}

		var names []string
		if err := json.Unmarshal([]byte(authorsJSON), &names); err != nil {
			return 0, fmt.Errorf("decoding authors for %s: %w", fingerprint, err)
		}
		var stubs []linkedStub
		if err := json.Unmarshal([]byte(linkedJSON), &stubs); err != nil {
			return 0, fmt.Errorf("decoding linked authors for %s: %w", fingerprint, err)
		}
		var meta entity.Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return 0, fmt.Errorf("decoding metadata for %s: %w", fingerprint, err)
		}

		doc := entity.NewDocument(title, parentID, names, meta, docID, mint)
		for _, s := range stubs {
			a, err := entity.NewAuthor(s.Name, s.ID, parentID, mint)
			if err != nil {
				continue
			}
			doc.Linked = append(doc.Linked, a)
		}

		if _, err := g.AddDocument(doc); err != nil {
			skipped++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("loading documents: %w", err)
	}
	return skipped, nil
}
