package container

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vango-dev/scopestore/pkg/observe"
)

type point struct {
	X    int      `store:"x"`
	Y    int      `store:"y"`
	Tags []string `json:"tags"`
}

// testListener records notifications.
type testListener struct {
	id    uint64
	mu    sync.Mutex
	count int
	onFn  func()
}

func newTestListener() *testListener {
	return &testListener{id: NextID()}
}

func (l *testListener) Notify() {
	l.mu.Lock()
	l.count++
	fn := l.onFn
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (l *testListener) ID() uint64 { return l.id }

func (l *testListener) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func mustNew[T any](t *testing.T, initial T, opts ...Option[T]) *Container[T] {
	t.Helper()
	c, err := New(initial, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestSetStateReplaceMerges(t *testing.T) {
	c := mustNew(t, point{X: 1, Y: 2, Tags: []string{"a"}})

	if err := c.SetState(Replace[point](Partial{"x": 5})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	got := c.GetState()
	if got.X != 5 {
		t.Errorf("expected x=5, got %d", got.X)
	}
	if got.Y != 2 {
		t.Errorf("expected y to be preserved as 2, got %d", got.Y)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "a" {
		t.Errorf("expected tags to be preserved, got %v", got.Tags)
	}
	if c.Version() != 1 {
		t.Errorf("expected version 1, got %d", c.Version())
	}
}

func TestSetStateComputeSeesCurrentState(t *testing.T) {
	c := mustNew(t, point{X: 1})
	inc := Compute(func(s point) Partial { return Partial{"x": s.X + 1} })

	for i := 0; i < 3; i++ {
		if err := c.SetState(inc); err != nil {
			t.Fatalf("SetState() error: %v", err)
		}
	}
	if got := c.GetState().X; got != 4 {
		t.Errorf("expected x=4, got %d", got)
	}
}

func TestSetStateInvalidPatch(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch[point]
	}{
		{"zero patch", Patch[point]{}},
		{"nil compute", Compute[point](nil)},
		{"wrong value type", Replace[point](Partial{"x": "five"})},
		{"lossy number", Replace[point](Partial{"y": 2.5})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, point{X: 1, Y: 2})
			l := newTestListener()
			c.Subscribe(l)

			err := c.SetState(tt.patch)
			if !errors.Is(err, ErrInvalidPatch) {
				t.Fatalf("expected ErrInvalidPatch, got %v", err)
			}
			if got := c.GetState(); got.X != 1 || got.Y != 2 {
				t.Errorf("state changed on failed update: %+v", got)
			}
			if l.calls() != 0 {
				t.Errorf("expected no notification, got %d", l.calls())
			}
			if c.Version() != 0 {
				t.Errorf("expected version 0, got %d", c.Version())
			}
		})
	}
}

func TestPatchErrorNamesKey(t *testing.T) {
	c := mustNew(t, point{})
	err := c.SetState(Replace[point](Partial{"x": []int{1}}))

	var pe *PatchError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PatchError, got %T", err)
	}
	if pe.Key != "x" {
		t.Errorf("expected key x, got %q", pe.Key)
	}
}

func TestSetStateIsolation(t *testing.T) {
	c := mustNew(t, point{})
	tags := []string{"a", "b"}

	if err := c.SetState(Replace[point](Partial{"tags": tags})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	tags[0] = "mutated"

	if got := c.GetState().Tags[0]; got != "a" {
		t.Errorf("state observed mutation of the patch: %q", got)
	}
}

func TestPreviousSnapshotUnchanged(t *testing.T) {
	c := mustNew(t, map[string]any{"items": []int{1, 2}})
	before := c.GetState()

	err := c.SetState(Compute(func(s map[string]any) Partial {
		items := s["items"].([]int)
		return Partial{"items": append(items[:1:1], 9)}
	}))
	if err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	if got := before["items"].([]int); got[1] != 2 {
		t.Errorf("old snapshot was mutated: %v", got)
	}
	if got := c.GetState()["items"].([]int); got[1] != 9 {
		t.Errorf("expected new snapshot [1 9], got %v", got)
	}
}

func TestNotifyExhaustiveInOrder(t *testing.T) {
	c := mustNew(t, point{})
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		c.SubscribeFunc(func() { order = append(order, i) })
	}

	if err := c.SetState(Replace[point](Partial{"x": 1})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	if len(order) != 5 {
		t.Fatalf("expected 5 notifications, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("expected subscriber %d at position %d, got %d", i, i, got)
		}
	}
}

func TestSubscribeDuplicateListener(t *testing.T) {
	c := mustNew(t, point{})
	l := newTestListener()

	c.Subscribe(l)
	unsubscribe := c.Subscribe(l)
	if c.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", c.Len())
	}

	_ = c.SetState(Replace[point](Partial{"x": 1}))
	if l.calls() != 1 {
		t.Errorf("expected 1 notification, got %d", l.calls())
	}

	unsubscribe()
	if c.Len() != 0 {
		t.Errorf("expected 0 subscribers, got %d", c.Len())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	c := mustNew(t, point{})
	a := newTestListener()
	b := newTestListener()

	unsubscribeA := c.Subscribe(a)
	c.Subscribe(b)

	unsubscribeA()
	unsubscribeA()

	if c.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", c.Len())
	}
	_ = c.SetState(Replace[point](Partial{"x": 1}))
	if a.calls() != 0 {
		t.Errorf("removed subscriber was notified %d times", a.calls())
	}
	if b.calls() != 1 {
		t.Errorf("expected remaining subscriber to be notified once, got %d", b.calls())
	}
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	c := mustNew(t, point{})
	b := newTestListener()

	var unsubscribeB func()
	a := newTestListener()
	a.onFn = func() { unsubscribeB() }

	c.Subscribe(a)
	unsubscribeB = c.Subscribe(b)

	_ = c.SetState(Replace[point](Partial{"x": 1}))

	if a.calls() != 1 {
		t.Errorf("expected a to be notified once, got %d", a.calls())
	}
	if b.calls() != 0 {
		t.Errorf("expected b to be skipped after removal, got %d", b.calls())
	}
}

func TestSubscribeDuringNotify(t *testing.T) {
	c := mustNew(t, point{})
	late := newTestListener()

	added := false
	c.SubscribeFunc(func() {
		if !added {
			added = true
			c.Subscribe(late)
		}
	})

	_ = c.SetState(Replace[point](Partial{"x": 1}))
	if late.calls() != 0 {
		t.Errorf("subscriber added mid-pass was notified %d times", late.calls())
	}

	_ = c.SetState(Replace[point](Partial{"x": 2}))
	if late.calls() != 1 {
		t.Errorf("expected late subscriber in next pass, got %d", late.calls())
	}
}

func TestReentrantSetState(t *testing.T) {
	c := mustNew(t, point{})

	c.SubscribeFunc(func() {
		if c.GetState().X == 1 {
			if err := c.SetState(Replace[point](Partial{"y": 10})); err != nil {
				t.Errorf("nested SetState() error: %v", err)
			}
		}
	})

	if err := c.SetState(Replace[point](Partial{"x": 1})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	if got := c.GetState(); got.X != 1 || got.Y != 10 {
		t.Errorf("expected {1 10}, got %+v", got)
	}
}

func TestMapStateAcceptsUnknownKeys(t *testing.T) {
	c := mustNew(t, map[string]int{"a": 1})

	if err := c.SetState(Replace[map[string]int](Partial{"b": 2})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	got := c.GetState()
	if got["a"] != 1 || got["b"] != 2 {
		t.Errorf("expected map[a:1 b:2], got %v", got)
	}
}

func TestStructStateReportsIgnoredKeys(t *testing.T) {
	rec := &recordingObserver{}
	c := mustNew(t, point{}, WithObserver[point](rec), WithName[point]("points"))

	if err := c.SetState(Replace[point](Partial{"x": 3, "color": "red"})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	if c.GetState().X != 3 {
		t.Errorf("expected x=3, got %d", c.GetState().X)
	}
	finished := rec.finishedUpdates()
	if len(finished) != 1 {
		t.Fatalf("expected 1 finished update, got %d", len(finished))
	}
	info := finished[0]
	if len(info.Ignored) != 1 || info.Ignored[0] != "color" {
		t.Errorf("expected ignored [color], got %v", info.Ignored)
	}
	if info.Store != "points" || info.Kind != "replace" || info.Keys != 2 || info.Version != 1 {
		t.Errorf("unexpected update info: %+v", info)
	}
}

func TestNumericAndNilValues(t *testing.T) {
	c := mustNew(t, point{X: 1, Tags: []string{"a"}})

	err := c.SetState(Replace[point](Partial{"x": float64(7), "tags": nil}))
	if err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	got := c.GetState()
	if got.X != 7 {
		t.Errorf("expected x=7, got %d", got.X)
	}
	if got.Tags != nil {
		t.Errorf("expected tags reset to nil, got %v", got.Tags)
	}
}

func TestPointerState(t *testing.T) {
	initial := &point{X: 1, Y: 1}
	c := mustNew(t, initial)

	if err := c.SetState(Replace[*point](Partial{"Y": 4})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	got := c.GetState()
	if got == initial {
		t.Fatal("expected a new pointer after update")
	}
	if got.X != 1 || got.Y != 4 {
		t.Errorf("expected {1 4}, got %+v", *got)
	}
	if initial.Y != 1 {
		t.Errorf("caller's value was modified: %+v", *initial)
	}
}

func TestScalarStateRejectsPartial(t *testing.T) {
	c := mustNew(t, 5)
	if err := c.SetState(Replace[int](Partial{"x": 1})); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("expected ErrInvalidPatch, got %v", err)
	}
}

func TestCustomMerge(t *testing.T) {
	c := mustNew(t, 5, WithMerge[int](func(current int, p Partial) (int, error) {
		return current + p["add"].(int), nil
	}))

	if err := c.SetState(Replace[int](Partial{"add": 3})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	if c.GetState() != 8 {
		t.Errorf("expected 8, got %d", c.GetState())
	}
}

type withChan struct {
	Done chan struct{}
}

func TestNewRejectsUncopyableState(t *testing.T) {
	_, err := New(withChan{Done: make(chan struct{})})
	if !errors.Is(err, ErrUncopyable) {
		t.Fatalf("expected ErrUncopyable, got %v", err)
	}

	var ce *CloneError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CloneError, got %T", err)
	}
	if ce.Path != "container.withChan.Done" {
		t.Errorf("unexpected path %q", ce.Path)
	}
}

func TestSetStateRejectsUncopyableValue(t *testing.T) {
	c := mustNew(t, map[string]any{})

	err := c.SetState(Replace[map[string]any](Partial{"ch": make(chan int)}))
	if !errors.Is(err, ErrUncopyable) {
		t.Fatalf("expected ErrUncopyable, got %v", err)
	}
	if len(c.GetState()) != 0 {
		t.Errorf("state changed on failed copy: %v", c.GetState())
	}
}

type cloneCounter struct {
	N      int
	cloned *int
}

func (c cloneCounter) Clone() cloneCounter {
	*c.cloned++
	return cloneCounter{N: c.N, cloned: c.cloned}
}

func TestClonerIsUsed(t *testing.T) {
	calls := 0
	c := mustNew(t, cloneCounter{cloned: &calls})
	if calls != 1 {
		t.Fatalf("expected Clone on construction, got %d calls", calls)
	}

	_ = c.SetState(Replace[cloneCounter](Partial{"N": 2}))
	if calls != 2 {
		t.Errorf("expected Clone on update, got %d calls", calls)
	}
}

func TestWithCloneFailure(t *testing.T) {
	boom := errors.New("boom")
	first := true
	c := mustNew(t, point{}, WithClone[point](func(p point) (point, error) {
		if first {
			first = false
			return p, nil
		}
		return point{}, boom
	}))

	if err := c.SetState(Replace[point](Partial{"x": 1})); !errors.Is(err, boom) {
		t.Errorf("expected clone error, got %v", err)
	}
	if c.GetState().X != 0 {
		t.Errorf("state changed on failed copy")
	}
}

func TestDispose(t *testing.T) {
	c := mustNew(t, point{})
	l := newTestListener()
	unsubscribe := c.Subscribe(l)

	c.Dispose()
	c.Dispose()

	if !c.IsDisposed() {
		t.Fatal("expected container to be disposed")
	}
	if c.Len() != 0 {
		t.Errorf("expected subscribers to be released, got %d", c.Len())
	}
	if err := c.SetState(Replace[point](Partial{"x": 1})); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	if l.calls() != 0 {
		t.Errorf("expected no notification after dispose, got %d", l.calls())
	}

	unsubscribe()
	c.Subscribe(newTestListener())
	if c.Len() != 0 {
		t.Errorf("expected Subscribe after dispose to be a no-op")
	}
}

func TestSetStateContextReachesObserver(t *testing.T) {
	type ctxKey struct{}
	rec := &recordingObserver{}
	c := mustNew(t, point{}, WithObserver[point](rec))
	c.SubscribeFunc(func() {})

	ctx := context.WithValue(context.Background(), ctxKey{}, "trace")
	if err := c.SetStateContext(ctx, Replace[point](Partial{"x": 1})); err != nil {
		t.Fatalf("SetStateContext() error: %v", err)
	}

	if got := rec.lastCtx.Value(ctxKey{}); got != "trace" {
		t.Errorf("expected observer to receive caller context, got %v", got)
	}
	if info := rec.finishedUpdates()[0]; info.Notified != 1 {
		t.Errorf("expected 1 notified subscriber, got %d", info.Notified)
	}
}

func TestConcurrentComputeUpdates(t *testing.T) {
	c := mustNew(t, point{})
	inc := Compute(func(s point) Partial { return Partial{"x": s.X + 1} })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.SetState(inc)
		}()
	}
	wg.Wait()

	if got := c.GetState().X; got != 50 {
		t.Errorf("expected x=50, got %d", got)
	}
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	observe.Nop
	mu       sync.Mutex
	finished []observe.UpdateInfo
	errs     []error
	subs     []observe.SubscriptionInfo
	lastCtx  context.Context
}

func (r *recordingObserver) UpdateFinished(ctx context.Context, info observe.UpdateInfo, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, info)
	r.errs = append(r.errs, err)
	r.lastCtx = ctx
}

func (r *recordingObserver) SubscriptionChanged(info observe.SubscriptionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, info)
}

func (r *recordingObserver) finishedUpdates() []observe.UpdateInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observe.UpdateInfo(nil), r.finished...)
}
