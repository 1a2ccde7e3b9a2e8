package counters

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/scopestore/pkg/scope"
	"github.com/vango-dev/scopestore/pkg/selectexpr"
	"github.com/vango-dev/scopestore/pkg/store"
)

var (
	// ErrDuplicateView is returned when a view name is already mounted.
	ErrDuplicateView = errors.New("counters: view already mounted")

	// ErrNoView is returned when removing a view that is not mounted.
	ErrNoView = errors.New("counters: no such view")
)

// Render is one render of a view.
type Render struct {
	View  string `json:"view"`
	Value any    `json:"value"`
	Err   string `json:"error,omitempty"`
	Count int    `json:"count"`
}

// RenderFunc receives every render of the views on a board. It runs on the
// goroutine that changed the state.
type RenderFunc func(Render)

// WriteRenders returns a RenderFunc that prints one line per render to w.
func WriteRenders(w io.Writer) RenderFunc {
	var mu sync.Mutex
	return func(r Render) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err != "" {
			fmt.Fprintf(w, "  render %s error: %s (#%d)\n", r.View, r.Err, r.Count)
			return
		}
		fmt.Fprintf(w, "  render %s = %v (#%d)\n", r.View, r.Value, r.Count)
	}
}

// View is a mounted consumer.
type View interface {
	Name() string

	// Value returns what the view last rendered.
	Value() any

	// Renders returns how many times the view rendered, the mount included.
	Renders() int

	Detach()
}

type view[R any] struct {
	name    string
	binding *store.Binding[R]
	display func(R) (any, string)
	render  RenderFunc
	renders atomic.Int64
}

func (v *view[R]) Name() string { return v.name }

func (v *view[R]) Value() any {
	value, _ := v.display(v.binding.Value())
	return value
}

func (v *view[R]) Renders() int { return int(v.renders.Load()) }

func (v *view[R]) Detach() { v.binding.Detach() }

func (v *view[R]) draw(value R) {
	n := v.renders.Add(1)
	if v.render == nil {
		return
	}
	shown, errText := v.display(value)
	v.render(Render{View: v.name, Value: shown, Err: errText, Count: int(n)})
}

// CounterView renders one counter.
type CounterView struct {
	view[int]
	key Key
}

// Key returns the counter the view follows.
func (v *CounterView) Key() Key { return v.key }

// Pair is the slice of state a ProductView selects.
type Pair struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Product returns x*y.
func (p Pair) Product() int { return p.X * p.Y }

// ProductView renders x*y. It re-renders whenever x or y changes, even when
// the product itself does not.
type ProductView struct {
	view[Pair]
}

// InertView selects a constant and never re-renders after mount.
type InertView struct {
	view[string]
}

// ExprView renders the result of a compiled expression over the state.
type ExprView struct {
	view[selectexpr.Result]
	program *selectexpr.Program
}

// Program returns the expression the view evaluates.
func (v *ExprView) Program() *selectexpr.Program { return v.program }

// Board mounts views on one region of a counters store.
type Board struct {
	store  *store.Store[State]
	region *scope.Scope
	render RenderFunc

	mu    sync.Mutex
	views map[string]View
	order []string
}

// NewBoard returns a board whose views bind to the innermost counters
// container at or above region. render may be nil.
func NewBoard(s *store.Store[State], region *scope.Scope, render RenderFunc) *Board {
	return &Board{
		store:  s,
		region: region,
		render: render,
		views:  make(map[string]View),
	}
}

// Region returns the region views are bound under.
func (b *Board) Region() *scope.Scope {
	return b.region
}

// AddCounter mounts a view of counter k.
func (b *Board) AddCounter(name string, k Key) (*CounterView, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	v := &CounterView{key: k}
	v.init(name, b.render, func(n int) (any, string) { return n, "" })
	err := b.mount(name, v, func() error {
		return mount(b, &v.view, func(s State) int { return s.Get(k) })
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// AddProduct mounts a view of x*y.
func (b *Board) AddProduct(name string) (*ProductView, error) {
	v := &ProductView{}
	v.init(name, b.render, func(p Pair) (any, string) { return p.Product(), "" })
	err := b.mount(name, v, func() error {
		return mount(b, &v.view,
			func(s State) Pair { return Pair{X: s.X, Y: s.Y} },
			store.WithPredicate(store.JSONEqual[Pair]),
		)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// AddInert mounts a view of a constant.
func (b *Board) AddInert(name string) (*InertView, error) {
	v := &InertView{}
	v.init(name, b.render, func(s string) (any, string) { return s, "" })
	err := b.mount(name, v, func() error {
		return mount(b, &v.view, func(State) string { return "static" })
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// AddExpression mounts a view of p evaluated over the state. Evaluation
// errors are rendered, not returned.
func (b *Board) AddExpression(name string, p *selectexpr.Program) (*ExprView, error) {
	v := &ExprView{program: p}
	v.init(name, b.render, func(r selectexpr.Result) (any, string) {
		return r.Value, r.Err
	})
	err := b.mount(name, v, func() error {
		return mount(b, &v.view,
			selectexpr.Selector[State](p),
			store.WithPredicate(selectexpr.Equal),
		)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// AddDefaults mounts x, y, z, product and inert.
func (b *Board) AddDefaults() error {
	for _, k := range Keys {
		if _, err := b.AddCounter(string(k), k); err != nil {
			return err
		}
	}
	if _, err := b.AddProduct("product"); err != nil {
		return err
	}
	_, err := b.AddInert("inert")
	return err
}

// Remove detaches and forgets the named view.
func (b *Board) Remove(name string) error {
	b.mu.Lock()
	v, ok := b.views[name]
	if ok {
		delete(b.views, name)
		for i, n := range b.order {
			if n == name {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrNoView, name)
	}
	v.Detach()
	return nil
}

// View returns the named view.
func (b *Board) View(name string) (View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.views[name]
	return v, ok
}

// Views returns the mounted views in mount order.
func (b *Board) Views() []View {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]View, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.views[name])
	}
	return out
}

// Detach detaches every view.
func (b *Board) Detach() {
	for _, v := range b.Views() {
		v.Detach()
	}
}

func (b *Board) mount(name string, v View, bind func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.views[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateView, name)
	}
	if err := bind(); err != nil {
		return err
	}
	b.views[name] = v
	b.order = append(b.order, name)
	return nil
}

func (v *view[R]) init(name string, render RenderFunc, display func(R) (any, string)) {
	v.name = name
	v.render = render
	v.display = display
}

func mount[R any](b *Board, v *view[R], sel store.Selector[State, R], opts ...store.SelectOption[R]) error {
	opts = append(opts, store.OnChange(v.draw))
	binding, err := store.Select(b.store, b.region, sel, opts...)
	if err != nil {
		return err
	}
	v.binding = binding
	v.draw(binding.Value())
	return nil
}
