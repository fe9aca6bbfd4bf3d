package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/prospects/internal/logger"
)

// FactsVariable is the CEL variable a submission is bound to.
const FactsVariable = "prospect"

// costLimit bounds a single evaluation so a configured rule can't run away.
const costLimit = 1000000

// Engine compiles and evaluates intake rules. Rules are evaluated in the
// order they were added. Safe for concurrent use.
type Engine struct {
	env      *cel.Env
	rules    []*Rule
	programs map[string]cel.Program
	mu       sync.RWMutex
}

// NewEngine creates an engine and compiles the given rules. Inactive rules
// are kept but never evaluated.
func NewEngine(rules ...*Rule) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable(FactsVariable, cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	en := &Engine{
		env:      env,
		programs: make(map[string]cel.Program),
	}

	for _, r := range rules {
		if err := en.AddRule(r); err != nil {
			return nil, err
		}
	}

	return en, nil
}

// NewDefaultEngine creates an engine with DefaultRules followed by extra.
func NewDefaultEngine(extra ...*Rule) (*Engine, error) {
	return NewEngine(append(DefaultRules(), extra...)...)
}

// CompileRule compiles expression and caches the program under ruleID.
func (en *Engine) CompileRule(ruleID, expression string) error {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return fmt.Errorf("program creation error: %w", err)
	}

	en.mu.Lock()
	en.programs[ruleID] = prog
	en.mu.Unlock()

	return nil
}

// AddRule validates and compiles r, then appends it.
func (en *Engine) AddRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}

	en.mu.RLock()
	_, exists := en.programs[r.ID]
	en.mu.RUnlock()
	if exists {
		return fmt.Errorf("rule with ID %s already exists", r.ID)
	}

	if err := en.CompileRule(r.ID, r.Expression); err != nil {
		return fmt.Errorf("rule %s validation failed: %w", r.ID, err)
	}

	en.mu.Lock()
	en.rules = append(en.rules, r)
	en.mu.Unlock()

	return nil
}

// Rules returns the rules in evaluation order.
func (en *Engine) Rules() []*Rule {
	en.mu.RLock()
	defer en.mu.RUnlock()

	out := make([]*Rule, len(en.rules))
	copy(out, en.rules)
	return out
}

func (en *Engine) evaluate(rule *Rule, activation map[string]any) *EvaluationResult {
	en.mu.RLock()
	prog, exists := en.programs[rule.ID]
	en.mu.RUnlock()

	if !exists {
		return &EvaluationResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Error:    fmt.Errorf("rule %s is not compiled", rule.ID),
		}
	}

	out, details, err := prog.Eval(activation)
	if err != nil {
		return &EvaluationResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Error:    err,
		}
	}

	// non-boolean results never match
	matched := false
	if boolVal, ok := out.Value().(bool); ok {
		matched = boolVal
	}

	var trace any
	if details != nil {
		trace = details.State()
	}

	return &EvaluationResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Matched:  matched,
		Trace:    trace,
	}
}

// EvaluateAll evaluates every active rule against facts and keeps going
// when one fails.
func (en *Engine) EvaluateAll(facts map[string]any) []*EvaluationResult {
	activation := map[string]any{FactsVariable: facts}

	rules := en.Rules()
	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		results = append(results, en.evaluate(rule, activation))
	}
	return results
}

// FirstViolation returns the first active rule that facts violate, or nil.
// A rule that fails to evaluate is logged and treated as satisfied.
func (en *Engine) FirstViolation(facts map[string]any) *Violation {
	activation := map[string]any{FactsVariable: facts}

	for _, rule := range en.Rules() {
		if !rule.Active {
			continue
		}
		res := en.evaluate(rule, activation)
		if res.Error != nil {
			logger.Warn("policy rule evaluation failed", "rule", rule.ID, "error", res.Error)
			continue
		}
		if res.Matched {
			return &Violation{RuleID: rule.ID, Message: rule.Message}
		}
	}
	return nil
}
