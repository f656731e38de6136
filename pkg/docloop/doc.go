/*
Package docloop runs an iterative document refinement workflow.

# Overview

A document moves through a fixed sequence of stages:

	planning -> drafting -> review -> revision -> final
	                          ^          |
	                          +----------+  (while review asks for another pass)

The content of each stage (the plan, the draft, the critique, the revision and
the polished final document) comes from a reasoning Provider, usually an LLM.
docloop owns everything else: the shared WorkflowState, the stage handlers that
validate and store each record, the Router that picks the next handler, and the
Driver that loops until the document is finalized, a stage fails, or a round
ceiling is hit.

# Basic Usage

	driver, err := docloop.New(provider.NewScripted())
	if err != nil {
	    log.Fatal(err)
	}

	ctx := docloop.NewContext(context.Background())
	result, err := driver.Run(ctx, docloop.DocumentRequest{
	    Prompt: "Write a memo announcing the new on-call rotation",
	    Type:   docloop.DocumentTypeEmail,
	})
	if err != nil {
	    log.Fatal(err)
	}
	result.Report().WriteText(os.Stdout)

# Iterations

Start sets the iteration counter to 1. Each time a revision is submitted while
the latest feedback still asks for another pass, the counter is incremented and
the revised content goes back to review. Once the counter reaches
MaxIterations (3 by default) the loop is forced to the final stage no matter
what the feedback says.

# Outcomes

Run reports how the loop ended through Result.Outcome:

  - OutcomeCompleted: Finalize ran.
  - OutcomeFailed: a handler rejected its input or the provider failed;
    Result.Err is a *StageError.
  - OutcomeIncomplete: the round ceiling (50 by default) was reached;
    Result.Err is a *RoundLimitError and Run returns a nil error.
  - OutcomeStopped: the Overseer asked to stop, or the router handed control
    back before the document was finalized.

Cancellation of the context is returned as a *CancellationError.

# Oversight

An Overseer is consulted after every step and may continue, redo the step from
the snapshot taken before it ran, or stop the run:

	overseer := docloop.OverseerFunc(func(ctx docloop.Context, step docloop.Step) (docloop.Decision, error) {
	    if step.Handler == docloop.HandlerFeedback {
	        return docloop.DecisionRedo, nil
	    }
	    return docloop.DecisionContinue, nil
	})
	driver, _ := docloop.New(p, docloop.WithOverseer(overseer))

# Checkpointing

With a checkpoint store configured, the state is saved after every accepted
step and a crashed run can be resumed:

	store, _ := checkpoint.NewSQLiteStore("./docloop.db")
	result, err := driver.Run(ctx, req,
	    docloop.WithCheckpointing(store),
	    docloop.WithRunID("memo-42"))

	// later
	result, err = driver.Resume(ctx, store, "memo-42")
*/
package docloop
