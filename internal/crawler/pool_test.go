package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

// gatedFetcher blocks each fetch until released, so tests can observe
// the pool mid-flight.
type gatedFetcher struct {
	started chan string
	release chan struct{}
}

func (g *gatedFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	g.started <- url
	<-g.release
	return []byte("body:" + url), nil
}

func TestPool_BoundedConcurrency(t *testing.T) {
	f := &gatedFetcher{
		started: make(chan string, 3),
		release: make(chan struct{}, 3),
	}
	pool := NewPool(2, f, nil)
	defer pool.Close()

	ctx := context.Background()
	futures := []*Future{
		pool.Submit(ctx, "a"),
		pool.Submit(ctx, "b"),
		pool.Submit(ctx, "c"),
	}

	// Two workers, so exactly two fetches may start.
	for i := 0; i < 2; i++ {
		select {
		case <-f.started:
		case <-time.After(time.Second):
			t.Fatal("fetch did not start")
		}
	}
	select {
	case url := <-f.started:
		t.Fatalf("third fetch %q started with both workers busy", url)
	case <-time.After(50 * time.Millisecond):
	}

	if st := pool.Status(); st.Busy != 2 || st.Free != 0 {
		t.Errorf("Status = %+v, want 2 busy, 0 free", st)
	}

	// Releasing one worker lets the queued URL start.
	f.release <- struct{}{}
	select {
	case <-f.started:
	case <-time.After(time.Second):
		t.Fatal("queued fetch never started")
	}

	f.release <- struct{}{}
	f.release <- struct{}{}

	for _, fu := range futures {
		body, err := fu.Await(ctx)
		if err != nil {
			t.Fatalf("Await(%s) failed: %v", fu.URL(), err)
		}
		if want := "body:" + fu.URL(); string(body) != want {
			t.Errorf("body = %q, want %q", body, want)
		}
	}

	if st := pool.Status(); st.Busy != 0 || st.Free != 2 {
		t.Errorf("Status after drain = %+v, want all free", st)
	}
}

type echoFetcher struct{}

func (echoFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	return []byte("body:" + url), nil
}

func TestPool_SharedJitter(t *testing.T) {
	// All workers draw delays from one seeded source; the draws must
	// serialize. Parameters keep the delays in the nanosecond range.
	jitter := NewJitter(-12, 0.1, 1000, 1)
	pool := NewPool(4, echoFetcher{}, jitter)
	defer pool.Close()

	ctx := context.Background()
	futures := make([]*Future, 0, 64)
	for i := 0; i < 64; i++ {
		futures = append(futures, pool.Submit(ctx, string(rune('a'+i%26))))
	}
	for _, fu := range futures {
		body, err := fu.Await(ctx)
		if err != nil {
			t.Fatalf("Await(%s) failed: %v", fu.URL(), err)
		}
		if want := "body:" + fu.URL(); string(body) != want {
			t.Errorf("body = %q, want %q", body, want)
		}
	}
}

type errFetcher struct{ err error }

func (e *errFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	return nil, &TransportError{URL: url, Err: e.err}
}

func TestPool_ErrorPropagation(t *testing.T) {
	sentinel := errors.New("connection reset")
	pool := NewPool(1, &errFetcher{err: sentinel}, nil)
	defer pool.Close()

	fu := pool.Submit(context.Background(), "a")
	_, err := fu.Await(context.Background())

	var te *TransportError
	if !errors.As(err, &te) || te.URL != "a" {
		t.Fatalf("error = %v, want TransportError for url a", err)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestPool_SubmitAfterCancel(t *testing.T) {
	pool := NewPool(1, &errFetcher{err: errors.New("unused")}, nil)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fu := pool.Submit(ctx, "a")
	if _, err := fu.Await(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
