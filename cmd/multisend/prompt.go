package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/errors"
)

// terminal asks the operator questions and reads answers line by line.
type terminal struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: in, out: out, lines: make(chan string)}
}

// ask writes the question and blocks until an answer is read or the context
// is cancelled. Reading from a closed input returns ErrEmpty.
func (t *terminal) ask(ctx context.Context, question string) (string, error) {
	t.once.Do(func() { go t.read() })

	fmt.Fprint(t.out, question)
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", errors.Wrap(errors.ErrEmpty, "no answer")
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *terminal) read() {
	defer close(t.lines)
	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		t.lines <- scanner.Text()
	}
}

// confirm returns true only if the operator answered yes.
func (t *terminal) confirm(ctx context.Context, question string) (bool, error) {
	answer, err := t.ask(ctx, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Decide asks the operator how to resolve a failed batch until a valid
// answer is given.
func (t *terminal) Decide(ctx context.Context, f multisend.FailedAttempt) (multisend.Decision, error) {
	fmt.Fprintf(t.out, "Batch #%d failed (attempt %d): %s\n", f.BatchNumber, f.Attempt, f.Diagnostic)
	for {
		answer, err := t.ask(ctx, "Retry, skip or stop? [r/s/x]: ")
		if err != nil {
			return multisend.DecisionStop, err
		}
		switch strings.ToLower(answer) {
		case "r", "retry":
			return multisend.DecisionRetry, nil
		case "s", "skip":
			return multisend.DecisionSkip, nil
		case "x", "stop":
			return multisend.DecisionStop, nil
		}
		fmt.Fprintf(t.out, "Unknown answer %q.\n", answer)
	}
}
