package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/randalmurphal/docloop/pkg/docloop"
	"github.com/randalmurphal/docloop/pkg/docloop/checkpoint"
	"github.com/randalmurphal/docloop/pkg/docloop/observability"
)

// LoopFlags are shared by run and resume.
type LoopFlags struct {
	Provider    string `help:"Provider (openai, claude, scripted). Overrides llm.provider."`
	Model       string `help:"Model name. Overrides llm.model."`
	MaxRounds   int    `name:"max-rounds" help:"Ceiling on handler invocations."`
	Checkpoint  string `help:"SQLite checkpoint database." type:"path" placeholder:"PATH"`
	HTML        string `name:"html" help:"Also write the document as HTML to this file." type:"path" placeholder:"PATH"`
	Interactive bool   `short:"i" help:"Approve, redo or stop every step at the terminal."`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address." placeholder:"HOST:PORT"`
	Trace       bool   `help:"Write OpenTelemetry spans to stderr."`
}

// RunCmd runs the loop for a new document.
type RunCmd struct {
	LoopFlags `embed:""`

	Prompt        []string `arg:"" optional:"" help:"Document prompt. Read from stdin when omitted."`
	Type          string   `short:"t" help:"Document type." enum:"essay,article,email,report,other" default:"essay"`
	MaxIterations int      `name:"max-iterations" help:"Review/revision pass limit."`
	RunID         string   `name:"run-id" help:"Run identifier. Generated when checkpointing without one."`
}

func (c *RunCmd) Run(cli *CLI) error {
	e, err := cli.load(c.overrides(c.MaxIterations))
	if err != nil {
		return err
	}

	prompt, err := readPrompt(c.Prompt, os.Stdin)
	if err != nil {
		return err
	}
	docType, err := docloop.ParseDocumentType(c.Type)
	if err != nil {
		return err
	}

	return e.session(c.LoopFlags, func(ctx docloop.Context, d *docloop.Driver, store checkpoint.Store, opts []docloop.RunOption) (*docloop.Result, error) {
		runID := c.RunID
		if runID == "" && store != nil {
			runID = uuid.New().String()
			fmt.Fprintf(os.Stderr, "run id: %s\n", runID)
		}
		if runID != "" {
			opts = append(opts, docloop.WithRunID(runID))
		}
		opts = append(opts, docloop.WithMaxIterations(e.settings.MaxIterations))
		return d.Run(ctx, docloop.DocumentRequest{Prompt: prompt, Type: docType}, opts...)
	})
}

// ResumeCmd continues a checkpointed run.
type ResumeCmd struct {
	LoopFlags `embed:""`

	RunID string `name:"run-id" required:"" help:"Run to resume."`
	Round int    `help:"Resume from this round instead of the latest checkpoint."`
}

func (c *ResumeCmd) Run(cli *CLI) error {
	e, err := cli.load(c.overrides(0))
	if err != nil {
		return err
	}
	if e.settings.CheckpointPath == "" {
		return errors.New("resume needs --checkpoint or checkpoint.path")
	}

	return e.session(c.LoopFlags, func(ctx docloop.Context, d *docloop.Driver, store checkpoint.Store, opts []docloop.RunOption) (*docloop.Result, error) {
		if c.Round > 0 {
			return d.ResumeFrom(ctx, store, c.RunID, c.Round, opts...)
		}
		return d.Resume(ctx, store, c.RunID, opts...)
	})
}

func (f LoopFlags) overrides(maxIterations int) overrides {
	return overrides{
		provider:      f.Provider,
		model:         f.Model,
		maxRounds:     f.MaxRounds,
		maxIterations: maxIterations,
		checkpoint:    f.Checkpoint,
		metricsAddr:   f.MetricsAddr,
		trace:         f.Trace,
	}
}

type runFunc func(ctx docloop.Context, d *docloop.Driver, store checkpoint.Store, opts []docloop.RunOption) (*docloop.Result, error)

// session wires provider, oversight, checkpointing and observability
// around fn, then prints the report and maps the outcome to an exit code.
func (e *env) session(f LoopFlags, fn runFunc) error {
	s := e.settings

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := e.newProvider()
	if err != nil {
		return err
	}

	var driverOpts []docloop.Option
	if f.Interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("--interactive needs a terminal on stdin")
		}
		driverOpts = append(driverOpts, docloop.WithOverseer(newConsoleOverseer(os.Stdin, os.Stderr)))
	}
	d, err := docloop.New(p, driverOpts...)
	if err != nil {
		return err
	}

	opts := []docloop.RunOption{docloop.WithMaxRounds(s.MaxRounds)}

	var store checkpoint.Store
	if s.CheckpointPath != "" {
		sqlite, err := checkpoint.NewSQLiteStore(s.CheckpointPath)
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		defer sqlite.Close()
		store = sqlite
		opts = append(opts, docloop.WithCheckpointing(store))
	}

	if s.MetricsAddr != "" {
		shutdown, err := e.serveMetrics(s.MetricsAddr)
		if err != nil {
			return err
		}
		defer shutdown()
		opts = append(opts, docloop.WithMetrics(true))
	}
	if s.Trace {
		tracing, err := observability.InitTracing("docloop", os.Stderr)
		if err != nil {
			return err
		}
		defer shutdownWithTimeout(tracing.Shutdown)
		opts = append(opts, docloop.WithTracing(true))
	}

	result, err := fn(docloop.NewContext(ctx, docloop.WithLogger(e.logger)), d, store, opts)
	if result == nil {
		return err
	}
	if reporter, ok := p.(usageReporter); ok {
		u := reporter.Usage()
		e.logger.Info("token usage", "input", u.InputTokens, "output", u.OutputTokens, "total", u.TotalTokens)
	}
	if werr := writeReport(result, os.Stdout, f.HTML); werr != nil {
		return werr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return exitFor(result.Outcome)
}

// serveMetrics installs the Prometheus meter provider and serves /metrics.
func (e *env) serveMetrics(addr string) (func(), error) {
	metrics, err := observability.InitMetrics("docloop")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	e.logger.Info("serving metrics", "addr", addr)

	return func() {
		shutdownWithTimeout(srv.Shutdown)
		shutdownWithTimeout(metrics.Shutdown)
	}, nil
}

func shutdownWithTimeout(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

// readPrompt joins the prompt arguments, falling back to piped stdin.
func readPrompt(args []string, stdin *os.File) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && stdin != nil && !term.IsTerminal(int(stdin.Fd())) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return "", errors.New("no prompt given")
	}
	return prompt, nil
}

// writeReport prints the text summary and optionally writes the HTML page.
func writeReport(result *docloop.Result, w io.Writer, htmlPath string) error {
	rep := result.Report()
	if err := rep.WriteText(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if htmlPath == "" || rep.Content == "" {
		return nil
	}

	file, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("create html: %w", err)
	}
	if err := rep.WriteHTML(file); err != nil {
		file.Close()
		return fmt.Errorf("write html: %w", err)
	}
	return file.Close()
}

// exitFor maps a run outcome to the process exit code.
func exitFor(outcome docloop.Outcome) error {
	switch outcome {
	case docloop.OutcomeCompleted:
		return nil
	case docloop.OutcomeIncomplete, docloop.OutcomeStopped:
		return &exitError{code: exitIncomplete}
	}
	return &exitError{code: exitFailed}
}
