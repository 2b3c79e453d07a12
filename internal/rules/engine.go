// Package rules provides the CEL-Go based custom risk-rule engine.
//
// Custom rules are escalation-only: a matching rule may raise a verdict's
// identity score (and by extension its risk level) but can never lower the
// outcome of the built-in heuristics.
package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

// Engine is the CEL-based risk-rule evaluation engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RiskRule
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine() (*Engine, error) {
	// CEL environment exposing the query feature variables
	env, err := cel.NewEnv(
		cel.Variable("query", cel.StringType),
		cel.Variable("phone_like", cel.BoolType),
		cel.Variable("url_like", cel.BoolType),
		cel.Variable("length", cel.IntType),
		cel.Variable("prefix", cel.StringType),
		cel.Variable("carrier", cel.StringType),
		cel.Variable("line_type", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
	}, nil
}

// ValidateRule compiles a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RiskRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}
	if cfg.Score < 0 || cfg.Score > 100 {
		return fmt.Errorf("rule %s: score must be within [0,100]", cfg.ID)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RiskRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules, skipping disabled ones.
func (e *Engine) LoadRules(configs []*domain.RiskRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.RiskRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// Input holds the query features for rule evaluation.
type Input struct {
	Query     string
	PhoneLike bool
	URLLike   bool
	Carrier   string
	LineType  string
}

// Evaluate runs all loaded rules against the query features and returns
// the hits. A rule that errors at runtime is skipped; custom rules must
// never abort an assessment.
func (e *Engine) Evaluate(ctx context.Context, input *Input) []domain.RuleHit {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	prefix := input.Query
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	activation := map[string]any{
		"query":      input.Query,
		"phone_like": input.PhoneLike,
		"url_like":   input.URLLike,
		"length":     int64(len(input.Query)),
		"prefix":     prefix,
		"carrier":    input.Carrier,
		"line_type":  input.LineType,
	}

	var hits []domain.RuleHit
	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			continue
		}

		matched, ok := out.(types.Bool)
		if !ok || !bool(matched) {
			continue
		}

		hits = append(hits, domain.RuleHit{
			RuleID:   rule.Config.ID,
			Name:     rule.Config.Name,
			Score:    rule.Config.Score,
			Category: rule.Config.Category,
		})
	}

	return hits
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.RiskRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RiskRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RiskRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
