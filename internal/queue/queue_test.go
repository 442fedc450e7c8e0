package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sdc-indexer/internal/events"
)

func TestOfferFIFO(t *testing.T) {
	q := New(10)
	for i := 0; i < 5; i++ {
		if err := q.Offer(events.NewClosed(fmt.Sprintf("/r/%d", i), time.Now())); err != nil {
			t.Fatalf("Offer %d: %v", i, err)
		}
	}
	if q.Len() != 5 || q.Cap() != 10 {
		t.Errorf("Len = %d, Cap = %d", q.Len(), q.Cap())
	}

	for i := 0; i < 5; i++ {
		ev := <-q.C()
		if want := fmt.Sprintf("/r/%d", i); ev.Path != want {
			t.Errorf("event %d = %s, want %s", i, ev.Path, want)
		}
	}
}

func TestOfferFull(t *testing.T) {
	q := New(2)
	ev := events.NewClosed("/r/a", time.Now())

	if err := q.Offer(ev); err != nil {
		t.Fatal(err)
	}
	if err := q.Offer(ev); err != nil {
		t.Fatal(err)
	}
	if err := q.Offer(ev); !errors.Is(err, ErrFull) {
		t.Errorf("Offer on full queue = %v, want ErrFull", err)
	}

	<-q.C()
	q.Received()
	if err := q.Offer(ev); err != nil {
		t.Errorf("Offer after receive = %v", err)
	}
}

func TestCloseDrainsThenEnds(t *testing.T) {
	q := New(4)
	_ = q.Offer(events.NewClosed("/r/a", time.Now()))
	_ = q.Offer(events.NewRemoved("/r/a", time.Now()))
	q.Close()
	q.Close()

	if err := q.Offer(events.NewClosed("/r/b", time.Now())); !errors.Is(err, ErrClosed) {
		t.Errorf("Offer after Close = %v, want ErrClosed", err)
	}

	var kinds []events.Kind
	for ev := range q.C() {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) != 2 || kinds[0] != events.Closed || kinds[1] != events.Removed {
		t.Errorf("drained kinds = %v", kinds)
	}
}

func TestPutWaitsForRoom(t *testing.T) {
	q := New(1)
	_ = q.Offer(events.NewClosed("/r/a", time.Now()))

	done := make(chan error, 1)
	go func() {
		done <- q.Put(context.Background(), events.NewClosed("/r/b", time.Now()))
	}()

	select {
	case err := <-done:
		t.Fatalf("Put returned %v before room was made", err)
	case <-time.After(20 * time.Millisecond):
	}

	<-q.C()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Put did not complete")
	}
	if ev := <-q.C(); ev.Path != "/r/b" {
		t.Errorf("got %s", ev.Path)
	}
}

func TestPutCancelled(t *testing.T) {
	q := New(1)
	_ = q.Offer(events.NewClosed("/r/a", time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Put(ctx, events.NewClosed("/r/b", time.Now())); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Put = %v, want deadline exceeded", err)
	}
}

func TestNewDefaultCapacity(t *testing.T) {
	if q := New(0); q.Cap() != DefaultCapacity {
		t.Errorf("Cap = %d", q.Cap())
	}
}
