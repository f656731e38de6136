package docloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/docloop/pkg/docloop/checkpoint"
	"github.com/randalmurphal/docloop/pkg/docloop/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeFailed     Outcome = "failed"
	OutcomeIncomplete Outcome = "incomplete"
	OutcomeStopped    Outcome = "stopped"
	OutcomeCancelled  Outcome = "cancelled"
)

// Result is the outcome of a run.
type Result struct {
	RunID   string
	Outcome Outcome
	// State is a copy of the workflow state when the run ended.
	State WorkflowState
	// Rounds counts handler invocations, including redone ones.
	Rounds int
	// Err explains a failed, incomplete or cancelled run.
	Err error
	// Reason is a human readable explanation for stopped runs.
	Reason   string
	Duration time.Duration
}

// Driver runs the document workflow against a Provider.
// A Driver is immutable after New and safe for concurrent Run calls;
// every run owns its own state.
type Driver struct {
	provider Provider
	router   *Router
	overseer Overseer
}

// New builds a Driver with the default router and no oversight.
func New(p Provider, opts ...Option) (*Driver, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	d := &Driver{
		provider: p,
		router:   DefaultRouter(),
		overseer: AutoContinue,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Router returns the rule table in use.
func (d *Driver) Router() *Router {
	return d.router
}

// Run executes a new workflow for req.
//
// Run returns a nil error for completed, incomplete and stopped runs; inspect
// Result.Outcome and Result.Err. A failed run returns the *StageError (also in
// Result.Err). Cancellation returns a *CancellationError.
//
// Execution flow:
//  1. Ask the router for the next handler; stop if none matches
//  2. Stop as incomplete if the round ceiling is reached
//  3. Check for cancellation
//  4. Obtain the handler input from the provider and apply it
//  5. Let the overseer continue, redo or stop
//  6. Checkpoint the accepted step and repeat
func (d *Driver) Run(ctx Context, req DocumentRequest, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.checkpointStore != nil && cfg.runID == "" {
		return nil, ErrRunIDRequired
	}

	state := NewState(cfg.maxIterations)
	return d.execute(ctx, &state, req, 0, &cfg)
}

// execute runs the loop from the given state and round with run-level observability.
func (d *Driver) execute(ctx Context, state *WorkflowState, req DocumentRequest, round int, cfg *runConfig) (result *Result, runErr error) {
	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}
	logger := cfg.logger
	if logger == nil {
		logger = ctx.Logger()
	}
	base := forRun(ctx, logger, runID)

	docType := req.Type
	if docType == "" {
		docType = state.DocumentType
	}

	startTime := time.Now()
	observability.LogRunStart(logger, runID, string(docType))

	var tracingCtx context.Context = ctx
	if cfg.tracingEnabled {
		var runSpan trace.Span
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, string(docType), runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	result = &Result{RunID: runID}
	runErr = d.loop(tracingCtx, base, state, req, round, cfg, result)

	result.State = state.Clone()
	result.Duration = time.Since(startTime)
	durationMs := float64(result.Duration.Microseconds()) / 1000

	cfg.metrics.RecordRun(ctx, string(result.Outcome), state.Iteration, result.Duration)

	switch result.Outcome {
	case OutcomeFailed, OutcomeCancelled:
		observability.LogRunError(logger, runID, result.Err, durationMs, state.Stage.String())
	default:
		observability.LogRunComplete(logger, runID, string(result.Outcome), durationMs, result.Rounds, state.Iteration)
	}
	return result, runErr
}

func (d *Driver) loop(tracingCtx context.Context, base *executionContext, s *WorkflowState, req DocumentRequest, round int, cfg *runConfig, res *Result) error {
	defer func() { res.Rounds = round }()

	for {
		h, ok := d.router.Next(s)
		if !ok {
			if s.Finalized() {
				res.Outcome = OutcomeCompleted
			} else {
				res.Outcome = OutcomeStopped
				res.Reason = fmt.Sprintf("no routing rule matched at stage %s", s.Stage)
			}
			return nil
		}

		if round >= cfg.maxRounds {
			res.Outcome = OutcomeIncomplete
			res.Err = &RoundLimitError{Max: cfg.maxRounds, Stage: s.Stage, Next: h}
			return nil
		}

		select {
		case <-base.Done():
			err := &CancellationError{Stage: s.Stage, Handler: h, Cause: base.Err()}
			res.Outcome = OutcomeCancelled
			res.Err = err
			return err
		default:
		}

		round++
		decision, err := d.step(tracingCtx, base, s, h, req, round, cfg)
		if err != nil {
			res.Err = err
			var cancelErr *CancellationError
			if errors.As(err, &cancelErr) {
				res.Outcome = OutcomeCancelled
				return cancelErr
			}
			res.Outcome = OutcomeFailed
			return err
		}

		if decision == DecisionStop {
			res.Outcome = OutcomeStopped
			res.Reason = fmt.Sprintf("stopped by overseer after %s", h)
			return nil
		}
	}
}

// step runs one handler, consults the overseer and checkpoints the result.
func (d *Driver) step(tracingCtx context.Context, base *executionContext, s *WorkflowState, h HandlerID, req DocumentRequest, round int, cfg *runConfig) (decision Decision, stepErr error) {
	stepTracingCtx := tracingCtx
	if cfg.tracingEnabled {
		var span trace.Span
		stepTracingCtx, span = cfg.spans.StartStepSpan(tracingCtx, h.String(), round, s.Iteration)
		defer func() {
			cfg.spans.EndSpanWithError(span, stepErr)
		}()
	}
	ec := base.withStep(stepTracingCtx, round, h, s)

	observability.LogStepStart(ec.logger, h.String())

	before := s.Clone()
	start := time.Now()
	msg, err := d.dispatch(ec, s, h, req)
	duration := time.Since(start)

	cfg.metrics.RecordStep(stepTracingCtx, h.String(), duration, err)

	if err != nil {
		observability.LogStepError(ec.logger, h.String(), err)
		var cancelErr *CancellationError
		if errors.As(err, &cancelErr) {
			return DecisionContinue, cancelErr
		}
		return DecisionContinue, &StageError{Stage: before.Stage, Handler: h, Round: round, Err: err}
	}

	observability.LogStepComplete(ec.logger, h.String(), msg, float64(duration.Microseconds())/1000)
	observability.LogTransition(ec.logger, before.Stage.String(), s.Stage.String(), s.Iteration)

	step := Step{
		Round:     round,
		Iteration: before.Iteration,
		Handler:   h,
		From:      before.Stage,
		To:        s.Stage,
		Message:   msg,
		Duration:  duration,
	}
	if h == HandlerStart {
		step.Iteration = s.Iteration
	}

	decision, err = d.overseer.Review(ec, step)
	if err != nil {
		return DecisionContinue, &OverseerError{Handler: h, Err: err}
	}
	cfg.metrics.RecordDecision(stepTracingCtx, h.String(), decision.String())
	cfg.spans.AddSpanEvent(stepTracingCtx, "docloop.decision", attribute.String("decision", decision.String()))

	if decision == DecisionRedo {
		observability.LogDecision(ec.logger, h.String(), decision.String())
		*s = before
		return decision, nil
	}
	if decision == DecisionStop {
		observability.LogDecision(ec.logger, h.String(), decision.String())
	}

	s.Trail = append(s.Trail, step)
	if err := d.saveCheckpoint(ec, cfg, round, h, s); err != nil {
		return decision, err
	}
	return decision, nil
}

// dispatch obtains the handler input and applies it to the state.
// Panics in the provider or handler are recovered into a *PanicError.
func (d *Driver) dispatch(ctx *executionContext, s *WorkflowState, h HandlerID, req DocumentRequest) (msg string, err error) {
	stage := s.Stage
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Handler: h, Value: r, Stack: string(debug.Stack())}
			s.fail(stage, pe)
			msg, err = "", pe
		}
	}()

	switch h {
	case HandlerStart:
		return Start(s, req)
	case HandlerPlan:
		return provide(ctx, s, h, d.provider.Plan, SubmitPlan)
	case HandlerDraft:
		return provide(ctx, s, h, d.provider.Draft, SubmitDraft)
	case HandlerFeedback:
		return provide(ctx, s, h, d.provider.Review, SubmitFeedback)
	case HandlerRevision:
		return provide(ctx, s, h, d.provider.Revise, SubmitRevision)
	case HandlerFinalize:
		return provide(ctx, s, h, d.provider.Finalize, Finalize)
	}
	return reject(s, stage, &ValidationError{Message: fmt.Sprintf("cannot dispatch %s", h), Err: ErrUnknownHandler})
}

// provide asks the provider for a copy-based input and submits it.
func provide[T any](ctx *executionContext, s *WorkflowState, h HandlerID,
	produce func(Context, WorkflowState) (T, error),
	submit func(*WorkflowState, T) (string, error),
) (string, error) {
	input, err := produce(ctx, s.Clone())
	if err != nil {
		if cause := ctx.Err(); cause != nil {
			return "", &CancellationError{Stage: s.Stage, Handler: h, Cause: cause, WasExecuting: true}
		}
		pe := &ProviderError{Handler: h, Err: err}
		s.fail(s.Stage, pe)
		return "", pe
	}
	return submit(s, input)
}

// saveCheckpoint persists the state after an accepted step.
func (d *Driver) saveCheckpoint(ctx *executionContext, cfg *runConfig, round int, h HandlerID, s *WorkflowState) error {
	if cfg.checkpointStore == nil {
		return nil
	}

	stateBytes, err := json.Marshal(s)
	if err != nil {
		return checkpointFailure(ctx, cfg, round, "serialize", err)
	}

	data, err := checkpoint.New(cfg.runID, round, h.String(), s.Stage.String(), s.Iteration, stateBytes).Marshal()
	if err != nil {
		return checkpointFailure(ctx, cfg, round, "marshal", err)
	}

	if err := cfg.checkpointStore.Save(cfg.runID, round, data); err != nil {
		return checkpointFailure(ctx, cfg, round, "save", err)
	}

	cfg.metrics.RecordCheckpoint(ctx, h.String(), int64(len(data)))
	observability.LogCheckpoint(ctx.logger, round, len(data))
	return nil
}

func checkpointFailure(ctx *executionContext, cfg *runConfig, round int, op string, err error) error {
	if cfg.checkpointFailureFatal {
		return &CheckpointError{Round: round, Op: op, Err: err}
	}
	observability.LogCheckpointError(ctx.logger, round, op, err)
	return nil
}
