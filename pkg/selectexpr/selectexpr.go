package selectexpr

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja"
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	celgo "github.com/google/cel-go/cel"

	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/store"
)

// Engine names an expression language.
type Engine string

const (
	EngineExpr Engine = "expr"
	EngineCEL  Engine = "cel"
	EngineJS   Engine = "js"
)

// StateVar is the variable that holds the whole state.
const StateVar = "state"

var (
	// ErrEmptySource is returned by Compile for an empty expression.
	ErrEmptySource = errors.New("selectexpr: expression must not be empty")

	// ErrUnknownEngine is returned for an engine name that is not supported.
	ErrUnknownEngine = errors.New("selectexpr: unknown engine")
)

// Error wraps a compile or evaluation failure of one expression.
type Error struct {
	Engine Engine
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("selectexpr: %s %q: %v", e.Engine, e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParseEngine returns the engine named s. An empty name selects expr.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(s))) {
	case "", EngineExpr:
		return EngineExpr, nil
	case EngineCEL:
		return EngineCEL, nil
	case EngineJS, "javascript":
		return EngineJS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

// Program is a compiled expression. It is safe for concurrent use.
type Program struct {
	engine Engine
	source string

	expr *exprvm.Program
	js   *goja.Program

	// CEL programs are checked against the variable set, so they are
	// compiled per distinct set of state keys.
	celMu    sync.Mutex
	celCache map[string]celgo.Program
}

// Compile parses source for engine. An empty engine selects expr.
func Compile(engine Engine, source string) (*Program, error) {
	engine, err := ParseEngine(string(engine))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}

	p := &Program{engine: engine, source: source}
	switch engine {
	case EngineExpr:
		p.expr, err = exprlang.Compile(source,
			exprlang.Env(map[string]any{}),
			exprlang.AllowUndefinedVariables(),
		)
	case EngineJS:
		p.js, err = goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", source), false)
	case EngineCEL:
		p.celCache = make(map[string]celgo.Program)
		err = parseCEL(source)
	}
	if err != nil {
		return nil, &Error{Engine: engine, Source: source, Err: err}
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(engine Engine, source string) *Program {
	p, err := Compile(engine, source)
	if err != nil {
		panic(err)
	}
	return p
}

// Engine returns the engine the program was compiled for.
func (p *Program) Engine() Engine {
	return p.engine
}

// Source returns the expression text.
func (p *Program) Source() string {
	return p.source
}

// Eval runs the program with every key of snapshot bound as a variable and
// the snapshot itself bound to StateVar.
func (p *Program) Eval(snapshot map[string]any) (any, error) {
	env := make(map[string]any, len(snapshot)+1)
	for k, v := range snapshot {
		env[k] = v
	}
	env[StateVar] = snapshot

	var (
		out any
		err error
	)
	switch p.engine {
	case EngineExpr:
		out, err = exprlang.Run(p.expr, env)
	case EngineJS:
		out, err = p.runJS(env)
	case EngineCEL:
		out, err = p.runCEL(env)
	}
	if err != nil {
		return nil, &Error{Engine: p.engine, Source: p.source, Err: err}
	}
	return out, nil
}

func (p *Program) runJS(env map[string]any) (any, error) {
	vm := goja.New()
	for k, v := range env {
		if err := vm.Set(k, v); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(p.js)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func parseCEL(source string) error {
	env, err := celgo.NewEnv()
	if err != nil {
		return err
	}
	_, issues := env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

func (p *Program) runCEL(env map[string]any) (any, error) {
	prg, err := p.celProgram(env)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.Eval(env)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (p *Program) celProgram(env map[string]any) (celgo.Program, error) {
	names := make([]string, 0, len(env))
	for k := range env {
		names = append(names, k)
	}
	sort.Strings(names)
	key := strings.Join(names, "\x00")

	p.celMu.Lock()
	defer p.celMu.Unlock()
	if prg, ok := p.celCache[key]; ok {
		return prg, nil
	}

	opts := make([]celgo.EnvOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	celEnv, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := celEnv.Parse(p.source)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := celEnv.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := celEnv.Program(checked)
	if err != nil {
		return nil, err
	}
	p.celCache[key] = prg
	return prg, nil
}

// Result is the outcome of evaluating a program against one state.
// Evaluation errors are kept as text so a binding can surface them.
type Result struct {
	Value any
	Err   string
}

// Selector returns a store selector that evaluates p against the top-level
// fields of the state.
func Selector[T any](p *Program) store.Selector[T, Result] {
	return func(state T) Result {
		v, err := p.Eval(container.Fields(state))
		if err != nil {
			return Result{Err: err.Error()}
		}
		return Result{Value: v}
	}
}

// Equal is a store predicate for Result values. Values are compared
// structurally.
func Equal(next, prev Result) bool {
	return next.Err == prev.Err && reflect.DeepEqual(next.Value, prev.Value)
}
