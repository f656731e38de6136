package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/randalmurphal/docloop/pkg/docloop"
)

// consoleOverseer asks at the terminal whether to keep each step.
type consoleOverseer struct {
	in  *bufio.Reader
	out io.Writer

	start sync.Once
	lines chan inputLine
}

type inputLine struct {
	text string
	err  error
}

func newConsoleOverseer(in io.Reader, out io.Writer) *consoleOverseer {
	return &consoleOverseer{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan inputLine),
	}
}

// readLines feeds input lines to o.lines until the first read error,
// then closes the channel.
func (o *consoleOverseer) readLines() {
	for {
		text, err := o.in.ReadString('\n')
		o.lines <- inputLine{text: text, err: err}
		if err != nil {
			close(o.lines)
			return
		}
	}
}

// readLine waits for the next line or for ctx to be done.
// A blocked read stays pending and serves the next call.
func (o *consoleOverseer) readLine(ctx docloop.Context) (string, error) {
	o.start.Do(func() { go o.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-o.lines:
		if !ok {
			return "", io.EOF
		}
		return line.text, line.err
	}
}

// Review prints the step and reads a decision. End of input stops the run.
func (o *consoleOverseer) Review(ctx docloop.Context, step docloop.Step) (docloop.Decision, error) {
	fmt.Fprintf(o.out, "\n[round %d, iteration %d] %s: %s -> %s\n  %s\n",
		step.Round, step.Iteration, step.Handler, step.From, step.To, step.Message)

	for {
		if err := ctx.Err(); err != nil {
			return docloop.DecisionStop, err
		}
		fmt.Fprint(o.out, "Continue? [Y]es, [r]edo, [s]top: ")

		line, err := o.readLine(ctx)
		if err != nil && line == "" {
			if err == io.EOF {
				fmt.Fprintln(o.out)
				return docloop.DecisionStop, nil
			}
			return docloop.DecisionStop, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes", "c", "continue":
			return docloop.DecisionContinue, nil
		case "r", "redo":
			return docloop.DecisionRedo, nil
		case "s", "stop", "q", "quit":
			return docloop.DecisionStop, nil
		}
		fmt.Fprintln(o.out, "Please answer y, r or s.")
	}
}
