// Package graph implements the entity-resolution coauthor graph:
// authors as nodes, shared publications as edges.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/matsen/scholargraph/internal/entity"
)

// ErrUnknownParent is returned when a document's parent author has
// never been registered.
var ErrUnknownParent = errors.New("parent author not registered")

// docEntry pairs a document with the author ids resolved for it. The
// ids are those current at recording time; later merges may retire an
// id, so reads go through the registry.
type docEntry struct {
	doc       *entity.Document
	coauthors map[string]struct{}
}

// Graph is the resolution graph. The identity registry maps every id
// ever issued to the author record that currently owns it; merging two
// authors repoints the retired ids at the surviving record instead of
// leaving stale references behind. All mutation happens on a single
// ingestion path; Graph is not safe for concurrent use.
type Graph struct {
	mint *entity.Minter

	// registry maps author id (current or retired) to the owning record.
	registry map[string]*entity.Author

	// adjacency maps author id to coauthor id to the fingerprints of
	// the documents they share (multigraph).
	adjacency map[string]map[string][]string

	// documents maps fingerprint to the document and its resolved
	// coauthor id set.
	documents map[string]*docEntry

	// insertion orders, for deterministic snapshots.
	nodeOrder []string
	docOrder  []string
}

// New creates an empty graph. The minter is used to issue placeholder
// ids for coauthors that arrive as bare name strings.
func New(mint *entity.Minter) *Graph {
	if mint == nil {
		mint = entity.NewRandomMinter()
	}
	return &Graph{
		mint:      mint,
		registry:  make(map[string]*entity.Author),
		adjacency: make(map[string]map[string][]string),
		documents: make(map[string]*docEntry),
	}
}

// AddAuthor registers a root author, typically from a direct search
// result. Repeated calls with the same id are idempotent: the existing
// record survives and adopts any profile metadata the newcomer carries.
// It returns the record that owns the id.
func (g *Graph) AddAuthor(a *entity.Author) *entity.Author {
	if existing := g.Lookup(a.ID); existing != nil {
		existing.AdoptProfile(a.ProfileName, a.Institution, a.EmailDomain, a.Interests)
		return existing
	}
	g.register(a)
	return a
}

// Lookup resolves an author id through the registry. Retired ids
// resolve to the merged record that absorbed them. Returns nil when the
// id was never issued.
func (g *Graph) Lookup(id string) *entity.Author {
	return g.registry[id]
}

func (g *Graph) register(a *entity.Author) {
	g.registry[a.ID] = a
	g.nodeOrder = append(g.nodeOrder, a.ID)
}

// AddDocument folds a document into the graph: it resolves the
// coauthor names against the registry, merges duplicates discovered
// under the shared parent, records the document, and applies the clique
// closure. Ingestion is atomic: the resolve phase does all fallible
// work before any graph state changes.
//
// It returns the author records newly added to the graph, which the
// scheduler uses to decide what to crawl next.
//
// Deduplication only scans the parent's existing neighbor set. Two
// records for the same person introduced via different parents are
// never merged; that is a deliberate precision/recall tradeoff, not a
// defect.
func (g *Graph) AddDocument(doc *entity.Document) ([]*entity.Author, error) {
	// A paper with fewer than two usable coauthor names carries no edge.
	if len(doc.Authors) < 2 {
		return nil, nil
	}

	parent := g.Lookup(doc.ParentID)
	if parent == nil {
		return nil, fmt.Errorf("document %q: parent %q: %w", doc.DocID, doc.ParentID, ErrUnknownParent)
	}

	entry, exists := g.documents[doc.Fingerprint]

	// Resolve phase: materialize the candidate set. No graph mutation
	// happens here, so an error leaves the graph untouched.
	cands, fresh, err := g.materialize(doc, parent, entry)
	if err != nil {
		return nil, err
	}

	// Plan phase: decide, per candidate, whether it is the parent under
	// another name, a duplicate of an existing neighbor, or genuinely new.
	plan := g.planDedup(parent, cands)

	// Apply phase: nothing below can fail.
	surviving := make([]*entity.Author, 0, len(cands))
	var added []*entity.Author

	for _, c := range plan.asParent {
		if !fresh[c] {
			// A registered record turned out to be the parent itself:
			// fold it in and retire its ids.
			c.UpdateTo(parent) //nolint:errcheck // keys matched in plan phase
			g.repoint(c, parent)
		}
	}
	for _, m := range plan.merges {
		if err := g.mergeInto(m.cand, m.existing); err != nil {
			return nil, err // unreachable: keys matched in plan phase
		}
		surviving = append(surviving, m.existing)
	}
	for _, c := range plan.keep {
		if fresh[c] {
			g.register(c)
			added = append(added, c)
		}
		surviving = append(surviving, c)
	}

	// Resolved coauthor id set for this document, parent included.
	ids := map[string]struct{}{parent.ID: {}}
	for _, c := range surviving {
		ids[c.ID] = struct{}{}
	}
	for id := range ids {
		g.registry[id].AddDocumentRef(doc.Fingerprint)
	}

	var prev map[string]struct{}
	if exists {
		prev = g.resolvedIDs(entry.coauthors)
		for id := range prev {
			ids[id] = struct{}{}
		}
		entry.coauthors = ids
	} else {
		g.documents[doc.Fingerprint] = &docEntry{doc: doc, coauthors: ids}
		g.docOrder = append(g.docOrder, doc.Fingerprint)
	}

	// Clique closure: every unordered pair of resolved coauthors shares
	// this document. Pairs already recorded for this document are kept.
	idList := sortedKeys(ids)
	for i := 0; i < len(idList); i++ {
		for j := i + 1; j < len(idList); j++ {
			if prev != nil {
				_, okA := prev[idList[i]]
				_, okB := prev[idList[j]]
				if okA && okB {
					continue
				}
			}
			g.addEdge(idList[i], idList[j], doc.Fingerprint)
		}
	}

	return added, nil
}

// materialize builds the candidate author list for a document: the
// previously resolved set when the document is already known, otherwise
// the linked stubs plus a placeholder for every coauthor name not
// covered by one.
func (g *Graph) materialize(doc *entity.Document, parent *entity.Author, entry *docEntry) ([]*entity.Author, map[*entity.Author]bool, error) {
	fresh := make(map[*entity.Author]bool)
	var cands []*entity.Author

	seen := make(map[*entity.Author]bool)
	add := func(a *entity.Author) {
		if a == nil || a == parent || seen[a] {
			return
		}
		seen[a] = true
		cands = append(cands, a)
	}

	if entry != nil {
		// Subsequent author sets for the same paper accumulate onto the
		// records already resolved for it.
		for id := range entry.coauthors {
			add(g.Lookup(id))
		}
		return cands, fresh, nil
	}

	for _, stub := range doc.Linked {
		if existing := g.Lookup(stub.ID); existing != nil {
			add(existing)
			continue
		}
		fresh[stub] = true
		add(stub)
	}

	for _, name := range doc.Authors {
		key, err := entity.DeriveMatchKey(name)
		if err != nil {
			return nil, nil, fmt.Errorf("document %q: %w", doc.DocID, err)
		}
		if key == parent.MatchKey {
			// The profile owner often appears as a bare coauthor
			// string; the parent joins the document's set regardless.
			continue
		}
		if g.coveredBy(cands, key) {
			// Already resolvable through a linked record.
			continue
		}
		a, err := entity.NewAuthor(name, "", parent.ID, g.mint)
		if err != nil {
			return nil, nil, fmt.Errorf("document %q: %w", doc.DocID, err)
		}
		fresh[a] = true
		add(a)
	}

	return cands, fresh, nil
}

func (g *Graph) coveredBy(cands []*entity.Author, key entity.MatchKey) bool {
	for _, c := range cands {
		if c.MatchKey == key {
			return true
		}
	}
	return false
}

type mergeStep struct {
	cand, existing *entity.Author
}

type dedupPlan struct {
	asParent []*entity.Author
	merges   []mergeStep
	keep     []*entity.Author
}

// planDedup classifies candidates against the parent and the parent's
// current coauthor neighborhood. A match-key collision under the shared
// parent is the authoritative merge trigger; pure name similarity never
// merges.
func (g *Graph) planDedup(parent *entity.Author, cands []*entity.Author) dedupPlan {
	var plan dedupPlan
	neighbors := g.neighborRecords(parent)

	for _, c := range cands {
		if c.MatchKey == parent.MatchKey {
			plan.asParent = append(plan.asParent, c)
			continue
		}
		var hit *entity.Author
		for _, n := range neighbors {
			if n != c && n.MatchKey == c.MatchKey {
				hit = n
				break
			}
		}
		if hit != nil {
			plan.merges = append(plan.merges, mergeStep{cand: c, existing: hit})
		} else {
			plan.keep = append(plan.keep, c)
		}
	}
	return plan
}

// neighborRecords returns the parent's current coauthor records,
// resolved through the registry and deduplicated.
func (g *Graph) neighborRecords(parent *entity.Author) []*entity.Author {
	row := g.adjacency[parent.ID]
	if len(row) == 0 {
		return nil
	}
	ids := sortedKeysOf(row)
	seen := make(map[*entity.Author]bool, len(ids))
	var recs []*entity.Author
	for _, id := range ids {
		rec := g.Lookup(id)
		if rec == nil || rec == parent || seen[rec] {
			continue
		}
		seen[rec] = true
		recs = append(recs, rec)
	}
	return recs
}

// mergeInto merges cand into the surviving record surv: both are
// reconciled to identical content, then every registry key owned by
// cand is repointed at surv, and cand's adjacency rows migrate onto the
// surviving id.
func (g *Graph) mergeInto(cand, surv *entity.Author) error {
	candOld, survOld := cand.ID, surv.ID
	if err := entity.SymmetricUpdate(cand, surv); err != nil {
		return err
	}
	g.repoint(cand, surv)
	g.registry[candOld] = surv
	g.registry[survOld] = surv
	g.registry[surv.ID] = surv
	g.migrateAdjacency(candOld, surv.ID)
	g.migrateAdjacency(survOld, surv.ID)
	return nil
}

// repoint redirects every registry key currently owned by old to surv.
func (g *Graph) repoint(old, surv *entity.Author) {
	for k, rec := range g.registry {
		if rec == old {
			g.registry[k] = surv
		}
	}
}

func (g *Graph) migrateAdjacency(from, to string) {
	if from == to {
		return
	}
	row, ok := g.adjacency[from]
	if !ok {
		return
	}
	dst := g.row(to)
	for co, fps := range row {
		dst[co] = append(dst[co], fps...)
	}
	delete(g.adjacency, from)
}

func (g *Graph) row(id string) map[string][]string {
	row, ok := g.adjacency[id]
	if !ok {
		row = make(map[string][]string)
		g.adjacency[id] = row
	}
	return row
}

// addEdge records a mutual edge labeled with the document fingerprint.
func (g *Graph) addEdge(a, b, fingerprint string) {
	g.row(a)[b] = append(g.row(a)[b], fingerprint)
	g.row(b)[a] = append(g.row(b)[a], fingerprint)
}

// resolvedIDs maps a recorded id set through the registry to the ids
// that currently own those records.
func (g *Graph) resolvedIDs(ids map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for id := range ids {
		if rec := g.Lookup(id); rec != nil {
			out[rec.ID] = struct{}{}
		}
	}
	return out
}

// Stats summarizes the graph.
type Stats struct {
	Authors   int
	Documents int
	Edges     int
}

// Size returns node, document, and edge counts. Edges are counted per
// document pair, matching what Edges() yields.
func (g *Graph) Size() Stats {
	s := Stats{Documents: len(g.documents)}

	seen := make(map[*entity.Author]bool)
	for _, id := range g.nodeOrder {
		if rec := g.Lookup(id); rec != nil && !seen[rec] {
			seen[rec] = true
			s.Authors++
		}
	}

	for _, e := range g.documents {
		k := len(g.resolvedIDs(e.coauthors))
		s.Edges += k * (k - 1) / 2
	}
	return s
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysOf(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
