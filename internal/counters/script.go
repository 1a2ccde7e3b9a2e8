package counters

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/scopestore/pkg/scope"
	"github.com/vango-dev/scopestore/pkg/selectexpr"
	"github.com/vango-dev/scopestore/pkg/store"
)

// ErrBadOp is returned for a script operation that cannot be parsed.
var ErrBadOp = errors.New("counters: bad operation")

// Action is what an Op does to its counter.
type Action string

const (
	ActionIncrement Action = "inc"
	ActionDecrement Action = "dec"
	ActionSet       Action = "set"
)

// Op is one scripted operation: inc:x, dec:y or set:z=4.
type Op struct {
	Action Action
	Key    Key
	Value  int
}

// ParseOp parses a single operation.
func ParseOp(s string) (Op, error) {
	action, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Op{}, fmt.Errorf("%w: %q: want action:key", ErrBadOp, s)
	}
	op := Op{Action: Action(strings.ToLower(action))}

	switch op.Action {
	case ActionIncrement, ActionDecrement:
		k, err := ParseKey(rest)
		if err != nil {
			return Op{}, fmt.Errorf("%w: %q: %w", ErrBadOp, s, err)
		}
		op.Key = k
	case ActionSet:
		name, value, ok := strings.Cut(rest, "=")
		if !ok {
			return Op{}, fmt.Errorf("%w: %q: want set:key=value", ErrBadOp, s)
		}
		k, err := ParseKey(name)
		if err != nil {
			return Op{}, fmt.Errorf("%w: %q: %w", ErrBadOp, s, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return Op{}, fmt.Errorf("%w: %q: value is not an integer", ErrBadOp, s)
		}
		op.Key, op.Value = k, n
	default:
		return Op{}, fmt.Errorf("%w: %q: unknown action %q", ErrBadOp, s, action)
	}
	return op, nil
}

// ParseScript parses operations separated by commas or whitespace.
func ParseScript(s string) ([]Op, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	ops := make([]Op, 0, len(fields))
	for _, f := range fields {
		op, err := ParseOp(f)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (op Op) String() string {
	if op.Action == ActionSet {
		return fmt.Sprintf("%s:%s=%d", op.Action, op.Key, op.Value)
	}
	return fmt.Sprintf("%s:%s", op.Action, op.Key)
}

// Apply runs op through the actions of s.
func (op Op) Apply(s State) error {
	switch op.Action {
	case ActionIncrement:
		return s.Increment(op.Key)
	case ActionDecrement:
		return s.Decrement(op.Key)
	case ActionSet:
		return s.Set(op.Key, op.Value)
	}
	return fmt.Errorf("%w: unknown action %q", ErrBadOp, op.Action)
}

// Demo runs scripted operations against a counters store and prints which
// views re-rendered.
type Demo struct {
	Out   io.Writer
	Store *store.Store[State]

	// Initial overrides the store's builder for the demo scope.
	Initial store.Builder[State]

	// Expressions are mounted as extra views, in name order.
	Expressions map[string]*selectexpr.Program
}

// Run opens one scope, mounts the default views and applies ops in order.
func (d Demo) Run(ops []Op) error {
	region, err := d.Store.Scope(nil, d.Initial)
	if err != nil {
		return err
	}
	defer region.Dispose()

	board, err := d.mount("", region)
	if err != nil {
		return err
	}
	if err := d.apply("", region, ops); err != nil {
		return err
	}
	d.summary("", board)
	return nil
}

// Nested opens an inner scope with counters 10, 20 and 30 under the demo
// scope. ops are applied to the inner scope, then to the outer one, showing
// that each board only sees its own container.
func (d Demo) Nested(ops []Op) error {
	outer, err := d.Store.Scope(nil, d.Initial)
	if err != nil {
		return err
	}
	defer outer.Dispose()

	inner, err := d.Store.Scope(outer, WithInitial(10, 20, 30))
	if err != nil {
		return err
	}

	outerBoard, err := d.mount("outer", outer)
	if err != nil {
		return err
	}
	innerBoard, err := d.mount("inner", scope.New(inner))
	if err != nil {
		return err
	}

	if err := d.apply("inner", inner, ops); err != nil {
		return err
	}
	if err := d.apply("outer", outer, ops); err != nil {
		return err
	}
	d.summary("outer", outerBoard)
	d.summary("inner", innerBoard)
	return nil
}

func (d Demo) mount(label string, region *scope.Scope) (*Board, error) {
	fmt.Fprintln(d.Out, join("mount", label))
	board := NewBoard(d.Store, region, WriteRenders(d.Out))
	if err := board.AddDefaults(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(d.Expressions))
	for name := range d.Expressions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := board.AddExpression(name, d.Expressions[name]); err != nil {
			return nil, err
		}
	}
	return board, nil
}

func (d Demo) apply(label string, region *scope.Scope, ops []Op) error {
	for _, op := range ops {
		fmt.Fprintln(d.Out, join("apply", label)+" "+op.String())
		state, err := d.Store.GetState(region)
		if err != nil {
			return err
		}
		if err := op.Apply(state); err != nil {
			return err
		}
	}
	return nil
}

func (d Demo) summary(label string, b *Board) {
	parts := make([]string, 0, len(b.Views()))
	for _, v := range b.Views() {
		parts = append(parts, fmt.Sprintf("%s=%d", v.Name(), v.Renders()))
	}
	fmt.Fprintln(d.Out, join("renders", label)+" "+strings.Join(parts, " "))
}

func join(word, label string) string {
	if label == "" {
		return word
	}
	return word + " " + label
}
