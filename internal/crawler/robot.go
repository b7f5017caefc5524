package crawler

import (
	"bytes"
	"context"
	"errors"
)

// ErrCrawlAborted reports that the operator chose to stop the crawl at
// an anti-bot checkpoint.
var ErrCrawlAborted = errors.New("crawl aborted by operator")

// DefaultRobotMarkers are the challenge-page phrases the site serves
// when it suspects automation.
var DefaultRobotMarkers = []string{
	"Our systems have detected unusual traffic from your computer network",
	"Please show you're not a robot",
	"Sorry, we can't verify that you're not a robot",
	"really you sending the requests, and not a robot",
}

func detectRobot(body []byte, markers []string) bool {
	for _, m := range markers {
		if bytes.Contains(body, []byte(m)) {
			return true
		}
	}
	return false
}

// Decision is the operator's answer at a blocked checkpoint.
type Decision int

const (
	// Resume means the challenge was solved out of band and the
	// interrupted URL should be fetched once more.
	Resume Decision = iota
	// Abort stops the crawl.
	Abort
)

// Operator is consulted synchronously when a fetch hits a challenge
// page. The crawl stays suspended until it answers.
type Operator interface {
	NotifyBlocked(ctx context.Context, url string) (Decision, error)
}

// OperatorFunc adapts a function to the Operator interface.
type OperatorFunc func(ctx context.Context, url string) (Decision, error)

func (f OperatorFunc) NotifyBlocked(ctx context.Context, url string) (Decision, error) {
	return f(ctx, url)
}

// AbortAlways is the operator of last resort for unattended runs.
var AbortAlways = OperatorFunc(func(context.Context, string) (Decision, error) {
	return Abort, nil
})
