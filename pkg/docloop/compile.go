package docloop

import (
	"errors"
	"fmt"
	"log/slog"
)

// NewRouter validates the rule table and builds a Router.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks:
//  1. Every rule names a known stage
//  2. Every rule dispatches a known handler that runs in the rule's stage
//  3. Every non-terminal stage has at least one rule
//  4. The final stage is reachable from planning
//
// Stages that are covered by rules but unreachable from planning are logged
// as warnings but do not cause validation to fail.
func NewRouter(rules ...Rule) (*Router, error) {
	var errs []error

	covered := make(map[Stage]bool)
	for i, rule := range rules {
		name := ruleName(i, rule)
		if !rule.From.Valid() {
			errs = append(errs, fmt.Errorf("%w: rule %s from %s", ErrUnknownStage, name, rule.From))
			continue
		}
		if !rule.Handler.Valid() {
			errs = append(errs, fmt.Errorf("%w: rule %s dispatches %s", ErrUnknownHandler, name, rule.Handler))
			continue
		}
		if rule.Handler.Stage() != rule.From {
			errs = append(errs, fmt.Errorf("%w: rule %s dispatches %s from %s, handler runs in %s",
				ErrHandlerStageMismatch, name, rule.Handler, rule.From, rule.Handler.Stage()))
			continue
		}
		covered[rule.From] = true
	}

	// 3. Coverage
	for _, stage := range Stages() {
		if !stage.Terminal() && !covered[stage] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrStageUncovered, stage))
		}
	}

	r := &Router{
		rules:   make([]Rule, len(rules)),
		byStage: make(map[Stage][]Rule),
	}
	copy(r.rules, rules)
	for _, rule := range rules {
		r.byStage[rule.From] = append(r.byStage[rule.From], rule)
	}

	// 4. Reachability
	if len(errs) == 0 {
		reachable := r.findReachableStages()
		if !reachable[StageFinal] {
			errs = append(errs, ErrNoPathToFinal)
		}
		r.warnUnreachableStages(reachable)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// Reachable returns the stages reachable from planning, in workflow order.
func (r *Router) Reachable() []Stage {
	reachable := r.findReachableStages()
	var out []Stage
	for _, stage := range Stages() {
		if reachable[stage] {
			out = append(out, stage)
		}
	}
	return out
}

// findReachableStages walks the stage transition graph from planning.
// Predicates depend on runtime state, so every rule of a visited stage is
// assumed to be able to fire.
func (r *Router) findReachableStages() map[Stage]bool {
	reachable := map[Stage]bool{StagePlanning: true}
	queue := []Stage{StagePlanning}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, rule := range r.byStage[current] {
			for _, target := range handlerTargets[rule.Handler] {
				if !reachable[target] {
					reachable[target] = true
					queue = append(queue, target)
				}
			}
		}
	}
	return reachable
}

func (r *Router) warnUnreachableStages(reachable map[Stage]bool) {
	for stage := range r.byStage {
		if !reachable[stage] {
			slog.Warn("stage is unreachable from planning", "stage", stage.String())
		}
	}
}

func ruleName(i int, rule Rule) string {
	if rule.Name != "" {
		return rule.Name
	}
	return fmt.Sprintf("#%d", i)
}
