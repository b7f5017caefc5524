package crawler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/matsen/scholargraph/internal/entity"
	"github.com/matsen/scholargraph/internal/graph"
	"github.com/matsen/scholargraph/internal/request"
)

// Default depth and pagination bounds.
const (
	DefaultMaxHops      = 1
	DefaultProfilePages = 2
	DefaultSearchPages  = 3

	statusLogInterval = 10
)

// Sink receives entities as they are resolved, so a crawl survives an
// abort with everything harvested so far already persisted.
type Sink interface {
	SaveAuthor(a *entity.Author) error
	SaveDocument(d *entity.Document) error
}

// Scheduler drains a FIFO frontier of requests: fetch through the
// pool, checkpoint for anti-bot challenges, parse, feed the graph, and
// append follow-ups to the tail.
type Scheduler struct {
	fetcher  Fetcher
	ex       request.Extractor
	graph    *graph.Graph
	mint     *entity.Minter
	operator Operator
	logger   *slog.Logger
	sink     Sink
	jitter   *Jitter

	markers      []string
	maxHops      int
	profilePages int
	searchPages  int
	poolSize     int

	frontier []*request.Request

	// visited maps author id to the lowest hop a profile request was
	// enqueued at.
	visited map[string]int
	counts  map[request.Kind]int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithOperator sets who answers anti-bot checkpoints.
func WithOperator(op Operator) Option {
	return func(s *Scheduler) { s.operator = op }
}

// WithSink persists entities as they are resolved.
func WithSink(sink Sink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

// WithMaxHops bounds crawl depth.
func WithMaxHops(n int) Option {
	return func(s *Scheduler) { s.maxHops = n }
}

// WithProfilePages bounds publication-list pagination per author.
func WithProfilePages(n int) Option {
	return func(s *Scheduler) { s.profilePages = n }
}

// WithSearchPages bounds name-search pagination.
func WithSearchPages(n int) Option {
	return func(s *Scheduler) { s.searchPages = n }
}

// WithRobotMarkers overrides the challenge-page phrases.
func WithRobotMarkers(markers []string) Option {
	return func(s *Scheduler) { s.markers = markers }
}

// WithPoolSize sets the number of concurrent fetch workers.
func WithPoolSize(n int) Option {
	return func(s *Scheduler) { s.poolSize = n }
}

// WithJitter sets the inter-fetch delay source. Nil disables delays.
func WithJitter(j *Jitter) Option {
	return func(s *Scheduler) { s.jitter = j }
}

// New creates a scheduler feeding g.
func New(f Fetcher, ex request.Extractor, g *graph.Graph, mint *entity.Minter, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:      f,
		ex:           ex,
		graph:        g,
		mint:         mint,
		operator:     AbortAlways,
		logger:       slog.Default(),
		jitter:       NewDefaultJitter(),
		markers:      DefaultRobotMarkers,
		maxHops:      DefaultMaxHops,
		profilePages: DefaultProfilePages,
		searchPages:  DefaultSearchPages,
		poolSize:     DefaultPoolSize,
		visited:      make(map[string]int),
		counts:       make(map[request.Kind]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchAuthors seeds the frontier with a hop-0 name search and runs
// the crawl.
func (s *Scheduler) SearchAuthors(ctx context.Context, name string, steps int) error {
	s.Enqueue(request.NewNameSearch(name, s.searchPages))
	return s.Crawl(ctx, steps)
}

// Enqueue appends a request to the frontier tail. Profile requests are
// deduplicated by author id, except that a strictly lower hop
// re-enqueues: an author first reached at an exhausted depth gets a
// full crawl when a later path finds them closer to the seed. Requests
// without an explicit page bound get the configured one.
func (s *Scheduler) Enqueue(r *request.Request) {
	if r.Kind == request.KindAuthorProfile {
		id := r.Profile.AuthorID
		if best, ok := s.visited[id]; ok && best <= r.Hop {
			return
		}
		s.visited[id] = r.Hop
		if r.Profile.MaxPage == 0 {
			r.Profile.MaxPage = s.profilePages
		}
	}
	s.frontier = append(s.frontier, r)
}

// QueueDepth returns the number of pending requests.
func (s *Scheduler) QueueDepth() int { return len(s.frontier) }

// Status counts pending requests by kind.
func (s *Scheduler) Status() map[string]int {
	out := make(map[string]int)
	for _, r := range s.frontier {
		out[r.Kind.String()]++
	}
	return out
}

// Processed counts successfully parsed requests by kind.
func (s *Scheduler) Processed() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, n := range s.counts {
		out[k.String()] = n
	}
	return out
}

// Crawl drains the frontier until it is empty, the step budget is
// spent, or the operator aborts. steps 0 means run to exhaustion.
// Transport failures skip the request; a crawl keeps going on partial
// data.
func (s *Scheduler) Crawl(ctx context.Context, steps int) error {
	pool := NewPool(s.poolSize, s.fetcher, s.jitter)
	defer pool.Close()

	for i := 1; len(s.frontier) > 0; i++ {
		if steps > 0 && i > steps {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		req := s.frontier[0]
		s.frontier = s.frontier[1:]

		if err := s.process(ctx, pool, req); err != nil {
			var te *TransportError
			if errors.As(err, &te) {
				s.logger.Warn("fetch failed, skipping request",
					"kind", req.Kind.String(), "url", te.URL, "error", te.Err)
				continue
			}
			return err
		}

		if i%statusLogInterval == 0 {
			s.logger.Info("crawl progress",
				"processed", i, "pending", s.Status(), "graph", s.graph.Size())
		}
	}
	return nil
}

func (s *Scheduler) process(ctx context.Context, pool *Pool, req *request.Request) error {
	// Depth bounding: an exhausted profile still yields one metadata
	// page but no title searches.
	if req.Kind == request.KindAuthorProfile && req.Hop >= s.maxHops {
		req.Profile.MaxPage = 0
	}

	urls := req.URLs()
	futures := make([]*Future, len(urls))
	for i, u := range urls {
		futures[i] = pool.Submit(ctx, u)
	}

	pages := make([][]byte, 0, len(urls))
	for _, fu := range futures {
		body, err := fu.Await(ctx)
		if err != nil {
			return err
		}
		body, err = s.checkpoint(ctx, fu.URL(), body)
		if err != nil {
			return err
		}
		if body == nil {
			s.logger.Warn("challenge persisted after resume, skipping request",
				"kind", req.Kind.String(), "url", fu.URL())
			return nil
		}
		pages = append(pages, body)
	}

	out, err := req.Parse(s.ex, s.mint, pages)
	if err != nil {
		s.logger.Warn("parse failed, skipping request",
			"kind", req.Kind.String(), "error", err)
		return nil
	}
	s.counts[req.Kind]++
	s.ingest(out, req.Hop)
	return nil
}

// checkpoint inspects a body for challenge markers. On a hit the crawl
// suspends until the operator answers; Resume triggers exactly one
// refetch of the interrupted URL. A nil body with nil error means the
// challenge persisted and the request should be skipped.
func (s *Scheduler) checkpoint(ctx context.Context, url string, body []byte) ([]byte, error) {
	if !detectRobot(body, s.markers) {
		return body, nil
	}
	s.logger.Warn("anti-bot challenge detected, crawl suspended", "url", url)

	dec, err := s.operator.NotifyBlocked(ctx, url)
	if err != nil {
		return nil, err
	}
	if dec == Abort {
		return nil, ErrCrawlAborted
	}

	body, err = s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if detectRobot(body, s.markers) {
		return nil, nil
	}
	return body, nil
}

func (s *Scheduler) ingest(out request.Outcome, hop int) {
	for _, a := range out.Authors {
		rec := s.graph.AddAuthor(a)
		s.saveAuthor(rec)
	}

	for _, d := range out.Documents {
		added, err := s.graph.AddDocument(d)
		if err != nil {
			s.logger.Warn("document rejected", "title", d.Title, "error", err)
			continue
		}
		s.saveDocument(d)
		for _, a := range added {
			s.saveAuthor(a)
			if a.Placeholder() {
				continue
			}
			s.Enqueue(request.NewAuthorProfile(a.ID, hop, 0))
		}
	}

	for _, r := range out.Requests {
		s.Enqueue(r)
	}
}

func (s *Scheduler) saveAuthor(a *entity.Author) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveAuthor(a); err != nil {
		s.logger.Error("persist author failed", "id", a.ID, "error", err)
	}
}

func (s *Scheduler) saveDocument(d *entity.Document) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveDocument(d); err != nil {
		s.logger.Error("persist document failed", "fingerprint", d.Fingerprint, "error", err)
	}
}
