package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type ctxKey string

type countingObserver struct {
	Nop
	name     string
	started  int
	finished int
	scopes   int
}

func (c *countingObserver) UpdateStarted(ctx context.Context, _ UpdateInfo) context.Context {
	c.started++
	return context.WithValue(ctx, ctxKey(c.name), true)
}

func (c *countingObserver) UpdateFinished(context.Context, UpdateInfo, error) { c.finished++ }
func (c *countingObserver) ScopeChanged(ScopeInfo)                             { c.scopes++ }

func TestMultiFlattensAndSkipsNil(t *testing.T) {
	if _, ok := Multi().(Nop); !ok {
		t.Error("expected Nop for no observers")
	}
	if _, ok := Multi(nil, nil).(Nop); !ok {
		t.Error("expected Nop for nil observers")
	}

	a := &countingObserver{name: "a"}
	if got := Multi(nil, a); got != a {
		t.Errorf("expected single observer to be returned as is, got %T", got)
	}

	b := &countingObserver{name: "b"}
	c := &countingObserver{name: "c"}
	m := Multi(Multi(a, b), nil, c)
	if len(m.(multi)) != 3 {
		t.Fatalf("expected 3 flattened observers, got %d", len(m.(multi)))
	}

	ctx := m.UpdateStarted(context.Background(), UpdateInfo{})
	m.UpdateFinished(ctx, UpdateInfo{}, nil)
	m.ScopeChanged(ScopeInfo{})

	for _, o := range []*countingObserver{a, b, c} {
		if o.started != 1 || o.finished != 1 || o.scopes != 1 {
			t.Errorf("observer %s: started=%d finished=%d scopes=%d", o.name, o.started, o.finished, o.scopes)
		}
		if ctx.Value(ctxKey(o.name)) != true {
			t.Errorf("expected context to carry value from %s", o.name)
		}
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(Nop); !ok {
		t.Error("expected Nop for nil")
	}
	a := &countingObserver{}
	if OrNop(a) != a {
		t.Error("expected observer to be returned as is")
	}
}

func TestLoggerObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := Logger(logger)
	ctx := context.Background()

	o.UpdateFinished(ctx, UpdateInfo{Store: "counters", Kind: "replace", Ignored: []string{"w"}, Version: 2}, nil)
	o.UpdateFinished(ctx, UpdateInfo{Store: "counters", Kind: "compute"}, errors.New("boom"))
	o.SelectionEvaluated(SelectionInfo{Store: "counters", Binding: 9, Changed: false})
	o.ScopeChanged(ScopeInfo{Store: "counters", Scope: 3, Opened: true})

	out := buf.String()
	for _, want := range []string{
		`msg="store updated"`,
		"version=2",
		`msg="store update ignored unknown keys"`,
		`level=WARN msg="store update failed"`,
		"error=boom",
		`msg="store scope opened"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "store selection changed") {
		t.Error("suppressed selections should not be logged")
	}
}
