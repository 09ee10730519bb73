// Package formula evaluates formula-field expressions against a record
// document. Expressions are compiled once and cached per expression string.
package formula

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine compiles and evaluates formula expressions
type Engine struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// NewEngine creates a new formula engine
func NewEngine() *Engine {
	return &Engine{cache: make(map[string]*vm.Program)}
}

// Compile compiles an expression, serving repeats from cache
func (e *Engine) Compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid formula %q: %w", expression, err)
	}

	e.mu.Lock()
	e.cache[expression] = program
	e.mu.Unlock()
	return program, nil
}

// Evaluate runs an expression against a record document
func (e *Engine) Evaluate(expression string, record map[string]interface{}) (interface{}, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}

	env := make(map[string]interface{}, len(record))
	for k, v := range record {
		env[k] = v
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("formula evaluation failed: %w", err)
	}
	return result, nil
}

// EvaluateOrNil runs an expression and swallows failures, returning nil.
// Formula fields are display values; a broken formula must never fail a read.
func (e *Engine) EvaluateOrNil(expression string, record map[string]interface{}) interface{} {
	result, err := e.Evaluate(expression, record)
	if err != nil {
		return nil
	}
	return result
}

// Validate reports whether an expression compiles
func (e *Engine) Validate(expression string) error {
	_, err := e.Compile(expression)
	return err
}
