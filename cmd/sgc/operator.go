package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/scholargraph/internal/crawler"
)

// terminalOperator answers anti-bot checkpoints interactively: the
// operator solves the challenge in a browser, then tells the crawl to
// resume or abort.
type terminalOperator struct {
	in  io.Reader
	out io.Writer
}

func (t *terminalOperator) NotifyBlocked(_ context.Context, url string) (crawler.Decision, error) {
	fmt.Fprintf(t.out, "\nAnti-bot challenge detected at:\n  %s\n", url)
	fmt.Fprint(t.out, "Solve it in a browser, then press enter to resume, or type n to abort: ")

	line, err := bufio.NewReader(t.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return crawler.Abort, err
	}

	ans := strings.ToLower(strings.TrimSpace(line))
	if ans == "" || strings.HasPrefix(ans, "y") {
		return crawler.Resume, nil
	}
	return crawler.Abort, nil
}
