package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	t.Run("pre-registered names start at zero", func(t *testing.T) {
		r := NewRegistry("b", "a")
		snap := r.Snapshot()
		if len(snap) != 2 {
			t.Fatalf("len(Snapshot()) = %d, want 2", len(snap))
		}
		if snap[0].Name != "a" || snap[1].Name != "b" {
			t.Errorf("Snapshot() not sorted: %+v", snap)
		}
		for _, s := range snap {
			if s.Value != 0 {
				t.Errorf("%s = %d, want 0", s.Name, s.Value)
			}
		}
	})

	t.Run("unknown names are created", func(t *testing.T) {
		r := NewRegistry()
		r.Increment("x")
		r.Increment("x")
		if got := r.Count("x"); got != 2 {
			t.Errorf("Count(x) = %d, want 2", got)
		}
		if got := r.Count("missing"); got != 0 {
			t.Errorf("Count(missing) = %d, want 0", got)
		}
	})

	t.Run("concurrent increments", func(t *testing.T) {
		r := NewRegistry("known")
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					r.Increment("known")
					r.Increment("lazy")
				}
			}()
		}
		wg.Wait()
		if got := r.Count("known"); got != 16000 {
			t.Errorf("Count(known) = %d, want 16000", got)
		}
		if got := r.Count("lazy"); got != 16000 {
			t.Errorf("Count(lazy) = %d, want 16000", got)
		}
	})
}

type fakeStore struct {
	mu    sync.Mutex
	calls [][][]interface{}
	err   error
}

func (f *fakeStore) ExecBatch(_ context.Context, name string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name != insertSampleQuery {
		return errors.New("unexpected query " + name)
	}
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, rows)
	return nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRecorder_Flush(t *testing.T) {
	reg := NewRegistry("a", "b")
	reg.Increment("a")
	store := &fakeStore{}

	rec, err := NewRecorder(reg, store, "gw-1", time.Minute, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	fixed := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if store.callCount() != 1 {
		t.Fatalf("ExecBatch calls = %d, want 1", store.callCount())
	}
	rows := store.calls[0]
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0][1] != "gw-1" || rows[0][2] != "a" || rows[0][3] != uint64(1) || rows[0][4] != fixed {
		t.Errorf("rows[0] = %v", rows[0])
	}
	if rows[0][0] == rows[1][0] {
		t.Error("sample IDs must be unique")
	}
}

func TestRecorder_FlushError(t *testing.T) {
	reg := NewRegistry("a")
	store := &fakeStore{err: errors.New("db down")}
	rec, _ := NewRecorder(reg, store, "gw-1", time.Minute, nil)

	if err := rec.Flush(context.Background()); err == nil {
		t.Error("expected error from store")
	}
}

func TestRecorder_RunFlushesOnShutdown(t *testing.T) {
	reg := NewRegistry("a")
	store := &fakeStore{}
	rec, _ := NewRecorder(reg, store, "gw-1", time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if store.callCount() != 1 {
		t.Errorf("ExecBatch calls = %d, want 1 final flush", store.callCount())
	}
}

func TestNewRecorder_Validation(t *testing.T) {
	reg := NewRegistry()
	if _, err := NewRecorder(nil, &fakeStore{}, "x", time.Second, nil); err == nil {
		t.Error("expected error for nil registry")
	}
	if _, err := NewRecorder(reg, nil, "x", time.Second, nil); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewRecorder(reg, &fakeStore{}, "x", 0, nil); err == nil {
		t.Error("expected error for zero interval")
	}
}

type fakeReader struct {
	gotArgs []interface{}
}

func (f *fakeReader) SelectContext(_ context.Context, name string, dest interface{}, args ...interface{}) error {
	if name != "latest-counter-samples" {
		return errors.New("unexpected query " + name)
	}
	f.gotArgs = args
	*(dest.(*[]Sample)) = []Sample{{Name: "a", Value: 3}}
	return nil
}

func TestLatestSamples(t *testing.T) {
	r := &fakeReader{}
	samples, err := LatestSamples(context.Background(), r, "gw-1")
	if err != nil {
		t.Fatalf("LatestSamples() error = %v", err)
	}
	if len(samples) != 1 || samples[0].Value != 3 {
		t.Errorf("samples = %+v", samples)
	}
	if len(r.gotArgs) != 2 || r.gotArgs[0] != "gw-1" || r.gotArgs[1] != "gw-1" {
		t.Errorf("args = %v", r.gotArgs)
	}
}
