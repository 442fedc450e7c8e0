package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMonitor(limit int64, alloc *atomic.Uint64) *Monitor {
	config := DefaultConfig()
	config.LimitBytes = limit
	config.CheckInterval = 10 * time.Millisecond
	m := NewMonitor(config)
	m.readAlloc = alloc.Load
	return m
}

func TestMonitorPausesAndResumes(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)
	defer m.Stop()

	alloc.Store(500)
	m.check()
	if m.Paused() {
		t.Fatal("paused at 50% usage")
	}
	if got := m.Usage(); got != 0.5 {
		t.Errorf("Usage = %v, want 0.5", got)
	}

	alloc.Store(900)
	m.check()
	if !m.Paused() {
		t.Fatal("not paused at 90% usage")
	}

	// Between the water marks the pause holds.
	alloc.Store(800)
	m.check()
	if !m.Paused() {
		t.Fatal("resumed above the high water mark")
	}

	waited := make(chan error, 1)
	go func() { waited <- m.Wait(context.Background()) }()

	select {
	case <-waited:
		t.Fatal("Wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	alloc.Store(100)
	m.check()
	select {
	case err := <-waited:
		if err != nil {
			t.Errorf("Wait = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after resume")
	}
}

func TestMonitorWaitHonorsContext(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)
	defer m.Stop()

	alloc.Store(990)
	m.check()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	alloc.Store(990)
	m.check()

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()
	m.Stop()
	m.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not release the waiter")
	}
}

func TestMonitorWithoutLimit(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(0, &alloc)
	m.limit = 0
	m.Start()
	defer m.Stop()

	alloc.Store(1 << 40)
	m.check()
	if m.Paused() || m.Usage() != 0 {
		t.Error("monitor without a limit paused")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}
}
