package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/matsen/scholargraph/internal/entity"
	"github.com/matsen/scholargraph/internal/graph"
	"github.com/matsen/scholargraph/internal/request"
)

// mapFetcher serves canned bodies per URL. Repeated fetches of the
// same URL pop successive bodies, which lets tests script a challenge
// page followed by a clean one.
type mapFetcher struct {
	mu      sync.Mutex
	bodies  map[string][][]byte
	fetched []string
}

func newMapFetcher() *mapFetcher {
	return &mapFetcher{bodies: make(map[string][][]byte)}
}

func (m *mapFetcher) serve(url string, bodies ...string) {
	for _, b := range bodies {
		m.bodies[url] = append(m.bodies[url], []byte(b))
	}
}

func (m *mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, url)
	queue := m.bodies[url]
	if len(queue) == 0 {
		return nil, &TransportError{URL: url, Err: errors.New("no such page")}
	}
	body := queue[0]
	if len(queue) > 1 {
		m.bodies[url] = queue[1:]
	}
	return body, nil
}

func (m *mapFetcher) fetchedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

// fakeExtractor maps body content to structured pages.
type fakeExtractor struct {
	lists    map[string]request.AuthorListPage
	profiles map[string]request.ProfilePage
	results  map[string]request.ResultPage
}

func (f *fakeExtractor) AuthorList(raw []byte) (request.AuthorListPage, error) {
	return f.lists[string(raw)], nil
}

func (f *fakeExtractor) Profile(raw []byte) (request.ProfilePage, error) {
	return f.profiles[string(raw)], nil
}

func (f *fakeExtractor) TitleResults(raw []byte) (request.ResultPage, error) {
	return f.results[string(raw)], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func urlOf(t *testing.T, r *request.Request) string {
	t.Helper()
	urls := r.URLs()
	if len(urls) != 1 {
		t.Fatalf("request has %d URLs, want 1", len(urls))
	}
	return urls[0]
}

// Full pipeline: name search finds Jane, her profile lists one paper,
// the title search links John, whose hop-exhausted profile yields
// metadata but no further expansion.
func TestScheduler_EndToEnd(t *testing.T) {
	mint := entity.NewMinter(1)
	g := graph.New(mint)
	fetcher := newMapFetcher()

	searchURL := urlOf(t, request.NewNameSearch("jane doe", 1))
	janeProfileURL := urlOf(t, request.NewAuthorProfile("JD01", 0, 1))
	titleURL := urlOf(t, request.NewTitleSearch("JD01", []string{"A Paper"}, 1))
	johnProfileURL := urlOf(t, request.NewAuthorProfile("R1", 1, 0))

	fetcher.serve(searchURL, "list")
	fetcher.serve(janeProfileURL, "jane")
	fetcher.serve(titleURL, "res")
	fetcher.serve(johnProfileURL, "john")

	ex := &fakeExtractor{
		lists: map[string]request.AuthorListPage{
			"list": {Candidates: []request.AuthorStub{{ID: "JD01", Name: "Jane Doe"}}},
		},
		profiles: map[string]request.ProfilePage{
			"jane": {
				DisplayName:    "Jane Doe",
				Institution:    "Somewhere U",
				TitleFragments: [][]string{{"A Paper"}},
			},
			"john": {
				DisplayName:    "John Q Reed",
				Institution:    "Reed U",
				TitleFragments: [][]string{{"Must Not Expand"}},
			},
		},
		results: map[string]request.ResultPage{
			"res": {Results: []request.TitleResult{{
				DocID: "D1",
				Title: "A Paper",
				Linked: []request.AuthorStub{
					{ID: "JD01", Name: "Jane Doe"},
					{ID: "R1", Name: "John Q Reed"},
				},
			}}},
		},
	}

	s := New(fetcher, ex, g, mint,
		WithLogger(quietLogger()),
		WithJitter(nil),
		WithMaxHops(1),
		WithProfilePages(1),
		WithSearchPages(1),
	)
	if err := s.SearchAuthors(context.Background(), "jane doe", 0); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	size := g.Size()
	if size.Authors != 2 || size.Documents != 1 || size.Edges != 1 {
		t.Errorf("Size = %+v, want 2 authors, 1 document, 1 edge", size)
	}

	john := g.Lookup("R1")
	if john == nil || john.Institution != "Reed U" {
		t.Errorf("hop-exhausted profile metadata missing: %+v", john)
	}

	// John's paper list must not have been expanded.
	for _, u := range fetcher.fetchedURLs() {
		if u != searchURL && u != janeProfileURL && u != titleURL && u != johnProfileURL {
			t.Errorf("unexpected fetch beyond the hop bound: %q", u)
		}
	}
	if s.QueueDepth() != 0 {
		t.Errorf("frontier not drained: %d pending", s.QueueDepth())
	}
}

func TestScheduler_RobotAbort(t *testing.T) {
	mint := entity.NewMinter(1)
	g := graph.New(mint)
	fetcher := newMapFetcher()

	searchURL := urlOf(t, request.NewNameSearch("jane doe", 1))
	fetcher.serve(searchURL, "before "+DefaultRobotMarkers[1]+" after")

	s := New(fetcher, &fakeExtractor{}, g, mint,
		WithLogger(quietLogger()), WithJitter(nil), WithSearchPages(1))

	err := s.SearchAuthors(context.Background(), "jane doe", 0)
	if !errors.Is(err, ErrCrawlAborted) {
		t.Fatalf("error = %v, want ErrCrawlAborted", err)
	}
}

func TestScheduler_RobotResume(t *testing.T) {
	mint := entity.NewMinter(1)
	g := graph.New(mint)
	fetcher := newMapFetcher()

	searchURL := urlOf(t, request.NewNameSearch("jane doe", 1))
	fetcher.serve(searchURL, DefaultRobotMarkers[0], "list")

	ex := &fakeExtractor{
		lists: map[string]request.AuthorListPage{
			"list": {Candidates: []request.AuthorStub{{ID: "JD01", Name: "Jane Doe"}}},
		},
		profiles: map[string]request.ProfilePage{},
	}

	var notified []string
	op := OperatorFunc(func(_ context.Context, url string) (Decision, error) {
		notified = append(notified, url)
		return Resume, nil
	})

	janeProfileURL := urlOf(t, request.NewAuthorProfile("JD01", 0, 1))
	fetcher.serve(janeProfileURL, "jane")

	s := New(fetcher, ex, g, mint,
		WithLogger(quietLogger()), WithJitter(nil),
		WithOperator(op), WithProfilePages(1), WithSearchPages(1))

	if err := s.SearchAuthors(context.Background(), "jane doe", 0); err != nil {
		t.Fatalf("crawl failed after resume: %v", err)
	}
	if len(notified) != 1 || notified[0] != searchURL {
		t.Errorf("operator notified for %v, want the blocked search URL once", notified)
	}
	if g.Size().Authors != 1 {
		t.Errorf("Authors = %d, want the candidate from the refetched page", g.Size().Authors)
	}
}

func TestScheduler_TransportErrorSkipsRequest(t *testing.T) {
	mint := entity.NewMinter(1)
	g := graph.New(mint)
	fetcher := newMapFetcher()

	searchURL := urlOf(t, request.NewNameSearch("jane doe", 1))
	fetcher.serve(searchURL, "list")
	ex := &fakeExtractor{
		lists: map[string]request.AuthorListPage{
			"list": {Candidates: []request.AuthorStub{{ID: "JD01", Name: "Jane Doe"}}},
		},
	}

	s := New(fetcher, ex, g, mint,
		WithLogger(quietLogger()), WithJitter(nil), WithSearchPages(1))

	// The title search's URL is unserved and must not kill the crawl.
	s.Enqueue(request.NewTitleSearch("JD01", []string{"Missing"}, 1))
	s.Enqueue(request.NewNameSearch("jane doe", 1))

	// Jane's profile URL is also unserved; her request gets skipped too.
	if err := s.Crawl(context.Background(), 0); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if g.Size().Authors != 1 {
		t.Errorf("Authors = %d, want the search result despite failed fetches", g.Size().Authors)
	}
}

func TestScheduler_StepBudget(t *testing.T) {
	mint := entity.NewMinter(1)
	g := graph.New(mint)
	fetcher := newMapFetcher()

	searchURL := urlOf(t, request.NewNameSearch("jane doe", 1))
	fetcher.serve(searchURL, "list")
	ex := &fakeExtractor{
		lists: map[string]request.AuthorListPage{
			"list": {Candidates: []request.AuthorStub{
				{ID: "A1", Name: "Jane Doe"},
				{ID: "A2", Name: "Janet Doe"},
			}},
		},
	}

	s := New(fetcher, ex, g, mint,
		WithLogger(quietLogger()), WithJitter(nil), WithSearchPages(1))

	if err := s.SearchAuthors(context.Background(), "jane doe", 1); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if s.QueueDepth() != 2 {
		t.Errorf("QueueDepth = %d, want both profile follow-ups pending", s.QueueDepth())
	}
}

func TestScheduler_ProfileDeduplication(t *testing.T) {
	s := New(newMapFetcher(), &fakeExtractor{}, graph.New(entity.NewMinter(1)), entity.NewMinter(1),
		WithLogger(quietLogger()), WithJitter(nil))

	s.Enqueue(request.NewAuthorProfile("JD01", 0, 0))
	s.Enqueue(request.NewAuthorProfile("JD01", 1, 0))
	if s.QueueDepth() != 1 {
		t.Errorf("QueueDepth = %d, want repeated profile ids collapsed", s.QueueDepth())
	}
	if got := s.Status()["author-profile"]; got != 1 {
		t.Errorf("Status = %v", s.Status())
	}
}

// An author first reached at an exhausted depth must not be locked out
// of a full crawl when a later path finds them closer to the seed.
func TestScheduler_ProfileHopUpgrade(t *testing.T) {
	s := New(newMapFetcher(), &fakeExtractor{}, graph.New(entity.NewMinter(1)), entity.NewMinter(1),
		WithLogger(quietLogger()), WithJitter(nil), WithMaxHops(1))

	s.Enqueue(request.NewAuthorProfile("JD01", 2, 0))
	s.Enqueue(request.NewAuthorProfile("JD01", 0, 0))
	if s.QueueDepth() != 2 {
		t.Errorf("QueueDepth = %d, want the lower-hop request re-enqueued", s.QueueDepth())
	}

	// Equal or higher hops stay collapsed.
	s.Enqueue(request.NewAuthorProfile("JD01", 0, 0))
	s.Enqueue(request.NewAuthorProfile("JD01", 1, 0))
	if s.QueueDepth() != 2 {
		t.Errorf("QueueDepth = %d, want no further re-enqueues", s.QueueDepth())
	}
}
