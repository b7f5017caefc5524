package crawler

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Default log-normal delay parameters. exp(N(1, 0.3))/10 centers the
// pause around a quarter second with a long right tail.
const (
	DefaultDelayMu      = 1.0
	DefaultDelaySigma   = 0.3
	DefaultDelayDivisor = 10.0
)

// Jitter produces randomized inter-fetch delays from a log-normal
// distribution, which reads more like a human than a fixed interval.
type Jitter struct {
	mu      float64
	sigma   float64
	divisor float64

	// rnd is shared by every pool worker; draws are serialized.
	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewJitter creates a seeded jitter source. A non-positive divisor
// falls back to the default.
func NewJitter(mu, sigma, divisor float64, seed int64) *Jitter {
	if divisor <= 0 {
		divisor = DefaultDelayDivisor
	}
	return &Jitter{
		mu:      mu,
		sigma:   sigma,
		divisor: divisor,
		rnd:     rand.New(rand.NewSource(seed)),
	}
}

// NewDefaultJitter creates a time-seeded jitter source with the
// default parameters.
func NewDefaultJitter() *Jitter {
	return NewJitter(DefaultDelayMu, DefaultDelaySigma, DefaultDelayDivisor, time.Now().UnixNano())
}

// Duration draws one delay. Safe for concurrent use.
func (j *Jitter) Duration() time.Duration {
	j.rndMu.Lock()
	n := j.rnd.NormFloat64()
	j.rndMu.Unlock()
	secs := math.Exp(n*j.sigma+j.mu) / j.divisor
	return time.Duration(secs * float64(time.Second))
}

// Sleep blocks for one drawn delay or until the context is done.
func (j *Jitter) Sleep(ctx context.Context) error {
	t := time.NewTimer(j.Duration())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
