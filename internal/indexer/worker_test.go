package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/events"
	"sdc-indexer/internal/orbit"
	"sdc-indexer/internal/pattern"
)

func newTestWorker(t testing.TB, catalog Catalog) *Worker {
	t.Helper()
	w := NewWorker(catalog, pattern.NewRegistry(orbit.None), database.IsDataShapeError)
	cfg := w.retry
	cfg.MaxRetries = 0
	w.SetRetryConfig(cfg)
	return w
}

func TestHandleClosedAndRemoved(t *testing.T) {
	db := setupTestDB(t)
	w := newTestWorker(t, db)
	root := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name   string
		file   string
		family string
	}{
		{"science", scienceName, "science"},
		{"l0", l0Name, "l0"},
		{"ancillary", ancillaryName, "ancillary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(root, tt.name, tt.file)
			writeFile(t, path, 7, fileTime)

			r := w.Handle(ctx, events.NewClosed(path, time.Now()))
			if r.Kind != OK || r.Action != "inserted" {
				t.Fatalf("closed = %v", r)
			}

			r = w.Handle(ctx, events.NewClosed(path, time.Now()))
			if r.Kind != OK || r.Action != "updated" {
				t.Fatalf("second closed = %v", r)
			}

			r = w.Handle(ctx, events.NewRemoved(path, time.Now()))
			if r.Kind != OK || r.Action != "deleted" {
				t.Fatalf("removed = %v", r)
			}

			r = w.Handle(ctx, events.NewRemoved(path, time.Now()))
			if r.Kind != OK || r.Action != "absent" {
				t.Fatalf("second removed = %v; absence is not an error", r)
			}
		})
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Science+counts.L0+counts.Ancillary != 0 {
		t.Errorf("rows remain: %+v", counts)
	}
}

func TestHandleSkips(t *testing.T) {
	db := setupTestDB(t)
	w := newTestWorker(t, db)
	root := t.TempDir()

	unrecognized := filepath.Join(root, "notes.txt")
	writeFile(t, unrecognized, 1, fileTime)
	dir := filepath.Join(root, scienceName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	loop := filepath.Join(root, "loop")
	if err := os.Symlink("loop", loop); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		event  events.FileEvent
		reason string
	}{
		{"unrecognized", events.NewClosed(unrecognized, time.Now()), ReasonUnrecognized},
		{"missing", events.NewClosed(filepath.Join(root, "gone", scienceName), time.Now()), ReasonMissing},
		{"directory", events.NewClosed(dir, time.Now()), ReasonDirectory},
		{"symlink loop", events.NewClosed(filepath.Join(loop, scienceName), time.Now()), ReasonUnreadable},
		{"overflow", events.FileEvent{Kind: events.Overflow}, ReasonOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := w.Handle(context.Background(), tt.event)
			if r.Kind != Skipped || r.Reason != tt.reason {
				t.Errorf("Handle = %v, want skipped (%s)", r, tt.reason)
			}
		})
	}
}

func TestHandlePerPathOrder(t *testing.T) {
	db := setupTestDB(t)
	w := newTestWorker(t, db)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), scienceName)
	writeFile(t, path, 5, fileTime)

	// Closed then Removed leaves no row even though the file still exists.
	w.Handle(ctx, events.NewClosed(path, time.Now()))
	w.Handle(ctx, events.NewRemoved(path, time.Now()))
	if _, err := db.GetScience(ctx, scienceName); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("row present after closed+removed: %v", err)
	}

	// Removed then Closed leaves the row.
	w.Handle(ctx, events.NewRemoved(path, time.Now()))
	w.Handle(ctx, events.NewClosed(path, time.Now()))
	if _, err := db.GetScience(ctx, scienceName); err != nil {
		t.Errorf("row absent after removed+closed: %v", err)
	}
}

func TestHandleWriteErrors(t *testing.T) {
	db := setupTestDB(t)
	path := filepath.Join(t.TempDir(), scienceName)
	writeFile(t, path, 5, fileTime)

	t.Run("recoverable", func(t *testing.T) {
		w := NewWorker(failingCatalog{Catalog: db, err: errShape}, pattern.NewRegistry(orbit.None), isShape)
		r := w.Handle(context.Background(), events.NewClosed(path, time.Now()))
		if r.Kind != Recoverable || !errors.Is(r.Err, errShape) {
			t.Fatalf("Handle = %v, want recoverable", r)
		}
		if r.Failure == nil || r.Failure.Path != path {
			t.Errorf("failure = %+v", r.Failure)
		}
	})

	t.Run("fatal", func(t *testing.T) {
		w := NewWorker(failingCatalog{Catalog: db, err: errShape}, pattern.NewRegistry(orbit.None), nil)
		r := w.Handle(context.Background(), events.NewClosed(path, time.Now()))
		if r.Kind != Fatal || !errors.Is(r.Err, errShape) {
			t.Fatalf("Handle = %v, want fatal", r)
		}
	})
}

func TestHandleFinishesWriteAfterCancel(t *testing.T) {
	db := setupTestDB(t)
	w := newTestWorker(t, db)
	path := filepath.Join(t.TempDir(), scienceName)
	writeFile(t, path, 5, fileTime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if r := w.Handle(ctx, events.NewClosed(path, time.Now())); r.Kind != OK {
		t.Errorf("Handle with cancelled context = %v", r)
	}
}

func TestResultKindString(t *testing.T) {
	for kind, want := range map[ResultKind]string{OK: "ok", Skipped: "skipped", Recoverable: "recoverable", Fatal: "fatal", ResultKind(99): "unknown"} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
