package mock

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// stringExprEnv types the "value" variable of string matchers. Body
// expressions compile without an environment since the parsed body has no
// fixed shape.
var stringExprEnv = map[string]any{"value": ""}

var (
	programMu    sync.RWMutex
	programCache = make(map[string]*vm.Program)
)

// compileBoolExpr compiles an expression that must evaluate to a bool,
// caching programs by kind and source.
func compileBoolExpr(kind, source string, env map[string]any) (*vm.Program, error) {
	cacheKey := kind + "\x00" + source

	programMu.RLock()
	if program, ok := programCache[cacheKey]; ok {
		programMu.RUnlock()
		return program, nil
	}
	programMu.RUnlock()

	opts := []expr.Option{expr.AsBool()}
	if env != nil {
		opts = append(opts, expr.Env(env))
	}
	program, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, err
	}

	programMu.Lock()
	if existing, ok := programCache[cacheKey]; ok {
		programMu.Unlock()
		return existing, nil
	}
	programCache[cacheKey] = program
	programMu.Unlock()

	return program, nil
}

// runBoolExpr runs a compiled program. Evaluation errors count as false.
func runBoolExpr(program *vm.Program, env map[string]any) bool {
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// exprError wraps a compile failure with the offending source.
func exprError(source string, err error) error {
	return fmt.Errorf("compile %q: %w", source, err)
}
