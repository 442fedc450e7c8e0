package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/events"
	"sdc-indexer/internal/indexer"
	"sdc-indexer/internal/orbit"
	"sdc-indexer/internal/pattern"
	"sdc-indexer/internal/status"
	"sdc-indexer/internal/watcher"
)

var now = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	ch     chan events.FileEvent
	runErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan events.FileEvent)}
}

func (f *fakeSource) Events() <-chan events.FileEvent { return f.ch }

func (f *fakeSource) Run(ctx context.Context) error {
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeSource) Close() error { return nil }

type handlerFunc func(ctx context.Context, ev events.FileEvent) indexer.Result

func (h handlerFunc) Handle(ctx context.Context, ev events.FileEvent) indexer.Result {
	return h(ctx, ev)
}

func okHandler(ctx context.Context, ev events.FileEvent) indexer.Result {
	return indexer.Result{Kind: indexer.OK, Event: ev, Action: "updated"}
}

func start(t *testing.T, sup *Supervisor, ctx context.Context) <-chan Outcome {
	t.Helper()
	done := make(chan Outcome, 1)
	go func() { done <- sup.Run(ctx) }()
	waitFor(t, "running", func() bool { return sup.State() == Running })
	return done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func wait(t *testing.T, done <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-done:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
		return Outcome{}
	}
}

func send(t *testing.T, src *fakeSource, ev events.FileEvent) {
	t.Helper()
	select {
	case src.ch <- ev:
	case <-time.After(5 * time.Second):
		t.Fatalf("supervisor did not accept %s %s", ev.Kind, ev.Path)
	}
}

func findRecord(mem *status.Memory, event, substr string) bool {
	for _, r := range mem.Records() {
		if r.Event == event && strings.Contains(r.Summary, substr) {
			return true
		}
	}
	return false
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{Starting, "starting"},
		{Running, "running"},
		{Draining, "draining"},
		{Failing, "failing"},
		{Stopped, "stopped"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestCleanShutdown(t *testing.T) {
	src := newFakeSource()
	mem := &status.Memory{}
	sup := New(src, handlerFunc(okHandler), Config{Workers: 2, Host: "h", Reporter: status.NewReporter("delta-index", "job", mem)})
	if sup.State() != Idle {
		t.Fatalf("new supervisor state = %s", sup.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := start(t, sup, ctx)

	for i := 0; i < 5; i++ {
		send(t, src, events.NewClosed(fmt.Sprintf("/r/%d.cdf", i), now))
	}
	waitFor(t, "events handled", func() bool { return sup.GetProgress().Handled == 5 })
	cancel()

	out := wait(t, done)
	if out.Code != ExitClean {
		t.Errorf("exit code = %d, want %d (%s)", out.Code, ExitClean, out.Reason)
	}
	if out.Counts.Received != 5 || out.Counts.Handled != 5 || out.Counts.Dropped != 0 {
		t.Errorf("counts = %+v", out.Counts)
	}
	if sup.State() != Stopped {
		t.Errorf("state = %s, want stopped", sup.State())
	}

	records := mem.Records()
	if len(records) != 2 || records[0].Event != status.EventStart || records[1].Event != status.EventSuccess {
		t.Errorf("status records = %+v", records)
	}

	again := sup.Run(context.Background())
	if !errors.Is(again.Err, ErrAlreadyRun) {
		t.Errorf("second Run error = %v", again.Err)
	}
}

// Progress may be requested before and while Run starts.
func TestProgressDuringStartup(t *testing.T) {
	src := newFakeSource()
	sup := New(src, handlerFunc(okHandler), Config{Workers: 1, Host: "h"})
	if p := sup.GetProgress(); !p.StartedAt.IsZero() || p.State != Idle.String() {
		t.Fatalf("progress before Run = %+v", p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = sup.GetProgress()
			}
		}
	}()

	before := time.Now()
	done := start(t, sup, ctx)
	waitFor(t, "running", func() bool { return sup.State() == Running })
	close(stop)
	wg.Wait()

	if got := sup.GetProgress().StartedAt; got.Before(before.Add(-time.Second)) || got.IsZero() {
		t.Errorf("StartedAt = %v, want after %v", got, before)
	}
	cancel()
	if out := wait(t, done); out.Code != ExitClean {
		t.Errorf("exit code = %d (%s)", out.Code, out.Reason)
	}
}

// An overflow from the watch source stops delivery: the event being handled
// finishes, queued events are never handled.
func TestKernelOverflowDrains(t *testing.T) {
	src := newFakeSource()
	mem := &status.Memory{}

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var handled []string
	h := handlerFunc(func(ctx context.Context, ev events.FileEvent) indexer.Result {
		if ev.Path == "/r/1" {
			close(started)
			<-release
		}
		mu.Lock()
		handled = append(handled, ev.Path)
		mu.Unlock()
		return indexer.Result{Kind: indexer.OK, Event: ev}
	})

	sup := New(src, h, Config{Workers: 1, QueueSize: 10, Host: "sdc-test", Reporter: status.NewReporter("delta-index", "job", mem)})
	done := start(t, sup, context.Background())

	send(t, src, events.NewClosed("/r/1", now))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first event never reached a worker")
	}
	send(t, src, events.NewClosed("/r/2", now))
	send(t, src, events.NewRemoved("/r/3", now))
	send(t, src, events.FileEvent{Kind: events.Overflow, Time: now})

	waitFor(t, "overflow status", func() bool { return findRecord(mem, status.EventStatus, "overflow") })
	if !findRecord(mem, status.EventStatus, "queue overflow on host sdc-test") {
		t.Errorf("status records = %+v", mem.Records())
	}
	close(release)

	out := wait(t, done)
	if out.Code != ExitKernelOverflow {
		t.Errorf("exit code = %d, want %d", out.Code, ExitKernelOverflow)
	}
	if out.Code == ExitClean {
		t.Error("overflow exit is indistinguishable from a clean stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != "/r/1" {
		t.Errorf("handled = %v, want only /r/1", handled)
	}
	if out.Counts.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", out.Counts.Dropped)
	}
	if findRecord(mem, status.EventSuccess, "") {
		t.Error("overflow reported SUCCESS")
	}
	if sup.State() != Stopped {
		t.Errorf("state = %s", sup.State())
	}
}

func TestQueueOverflow(t *testing.T) {
	src := newFakeSource()
	mem := &status.Memory{}
	blocked := handlerFunc(func(ctx context.Context, ev events.FileEvent) indexer.Result {
		<-ctx.Done()
		return indexer.Result{Kind: indexer.OK, Event: ev}
	})
	sup := New(src, blocked, Config{Workers: 1, QueueSize: 1, Host: "h", Reporter: status.NewReporter("delta-index", "job", mem)})
	done := start(t, sup, context.Background())

	var out Outcome
	sent := 0
loop:
	for {
		select {
		case src.ch <- events.NewClosed(fmt.Sprintf("/r/%d", sent), now):
			sent++
		case out = <-done:
			break loop
		case <-time.After(5 * time.Second):
			t.Fatal("queue never overflowed")
		}
	}

	if out.Code != ExitQueueOverflow {
		t.Errorf("exit code = %d, want %d", out.Code, ExitQueueOverflow)
	}
	if !findRecord(mem, status.EventStatus, "work queue overflow") {
		t.Errorf("status records = %+v", mem.Records())
	}
	if !strings.Contains(out.Reason, "work queue") {
		t.Errorf("reason %q does not name the work queue", out.Reason)
	}
	if sent > 10 {
		t.Errorf("sent %d events before overflow with capacity 1", sent)
	}
}

func TestFatalWorkerResult(t *testing.T) {
	src := newFakeSource()
	mem := &status.Memory{}
	errDisk := errors.New("disk I/O error")
	h := handlerFunc(func(ctx context.Context, ev events.FileEvent) indexer.Result {
		if ev.Path == "/r/bad" {
			return indexer.Result{Kind: indexer.Fatal, Event: ev, Err: errDisk}
		}
		return okHandler(ctx, ev)
	})
	sup := New(src, h, Config{Workers: 2, Host: "h", Reporter: status.NewReporter("delta-index", "job", mem)})
	done := start(t, sup, context.Background())

	send(t, src, events.NewClosed("/r/good", now))
	send(t, src, events.NewClosed("/r/bad", now))

	out := wait(t, done)
	if out.Code != ExitFatal {
		t.Errorf("exit code = %d, want %d", out.Code, ExitFatal)
	}
	if !errors.Is(out.Err, errDisk) {
		t.Errorf("error = %v, want disk error", out.Err)
	}
	if !findRecord(mem, status.EventFail, "disk I/O error") {
		t.Errorf("status records = %+v", mem.Records())
	}
}

func TestRecoverableResultKeepsRunning(t *testing.T) {
	src := newFakeSource()
	h := handlerFunc(func(ctx context.Context, ev events.FileEvent) indexer.Result {
		if ev.Path == "/r/shape" {
			return indexer.Result{Kind: indexer.Recoverable, Event: ev, Err: errors.New("CHECK constraint failed")}
		}
		if ev.Path == "/r/junk" {
			return indexer.Result{Kind: indexer.Skipped, Event: ev, Reason: indexer.ReasonUnrecognized}
		}
		return okHandler(ctx, ev)
	})
	sup := New(src, h, Config{Workers: 2, Host: "h"})

	ctx, cancel := context.WithCancel(context.Background())
	done := start(t, sup, ctx)

	send(t, src, events.NewClosed("/r/shape", now))
	send(t, src, events.NewClosed("/r/junk", now))
	send(t, src, events.NewClosed("/r/ok", now))
	waitFor(t, "results", func() bool {
		p := sup.GetProgress()
		return p.Handled == 1 && p.Recoverable == 1 && p.Skipped == 1
	})
	if sup.State() != Running {
		t.Errorf("state after recoverable failure = %s", sup.State())
	}
	cancel()

	out := wait(t, done)
	if out.Code != ExitClean {
		t.Errorf("exit code = %d (%s)", out.Code, out.Reason)
	}
	if out.Counts.Recoverable != 1 {
		t.Errorf("counts = %+v", out.Counts)
	}
}

func TestSourceFailure(t *testing.T) {
	src := newFakeSource()
	src.runErr = errors.New("inotify: too many open files")
	sup := New(src, handlerFunc(okHandler), Config{Host: "h"})

	done := make(chan Outcome, 1)
	go func() { done <- sup.Run(context.Background()) }()

	out := wait(t, done)
	if out.Code != ExitFatal {
		t.Errorf("exit code = %d, want %d", out.Code, ExitFatal)
	}
	if !errors.Is(out.Err, src.runErr) {
		t.Errorf("error = %v", out.Err)
	}
}

// A file written under a watched root is indexed, and removing it removes
// the row.
func TestDeltaPathEndToEnd(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "catalog.db"), nil)
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	w, err := watcher.New(watcher.Config{Roots: []string{root}, QuietPeriod: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("watcher.New: %v", err)
	}
	worker := indexer.NewWorker(db, pattern.NewRegistry(orbit.None), database.IsDataShapeError)
	mem := &status.Memory{}
	sup := New(w, worker, Config{Workers: 2, Host: "h", Reporter: status.NewReporter("delta-index", "e2e", mem)})

	runCtx, cancel := context.WithCancel(ctx)
	done := start(t, sup, runCtx)

	const name = "mvn_ins_l1a_p_20200101_v01_r00.cdf"
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte("science"), 0o644); err != nil {
		t.Fatal(err)
	}

	var row database.ScienceRow
	waitFor(t, "row inserted", func() bool {
		row, err = db.GetScience(ctx, name)
		return err == nil
	})
	if row.DirectoryPath != root || row.FileSize != 7 {
		t.Errorf("row location = %s size %d", row.DirectoryPath, row.FileSize)
	}
	if row.Instrument != "ins" || row.Level != "l1a" || row.Descriptor != "p" || row.Plan != "p" {
		t.Errorf("row fields = %+v", row)
	}
	if row.Version != 1 || row.Revision != 0 || row.FileExtension != "cdf" {
		t.Errorf("row version = v%d r%d ext %s", row.Version, row.Revision, row.FileExtension)
	}
	if !row.Timetag.Equal(now) {
		t.Errorf("timetag = %v, want %v", row.Timetag, now)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "row removed", func() bool {
		_, err := db.GetScience(ctx, name)
		return errors.Is(err, database.ErrNotFound)
	})

	cancel()
	out := wait(t, done)
	if out.Code != ExitClean {
		t.Errorf("exit code = %d (%s: %v)", out.Code, out.Reason, out.Err)
	}
	if !findRecord(mem, status.EventSuccess, "") {
		t.Errorf("status records = %+v", mem.Records())
	}
}
