package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/logging"
)

// Event names
const (
	EventStart   = "START"
	EventSuccess = "SUCCESS"
	EventFail    = "FAIL"
	EventStatus  = "STATUS"
)

// Record is one status event.
type Record struct {
	Component   string
	Event       string
	JobID       string
	Summary     string
	Description string
	Time        time.Time
}

// Sink receives status records.
type Sink interface {
	Emit(ctx context.Context, r Record) error
}

// JobID returns unique if set, otherwise a random UUID.
func JobID(unique string) string {
	if unique != "" {
		return unique
	}
	return uuid.NewString()
}

// Store is the part of the catalog the catalog sink writes to.
type Store interface {
	InsertStatus(ctx context.Context, row database.StatusRow) error
}

// CatalogSink appends records to the catalog status table.
type CatalogSink struct {
	store Store
}

// NewCatalogSink creates a sink over store.
func NewCatalogSink(store Store) *CatalogSink {
	return &CatalogSink{store: store}
}

func (s *CatalogSink) Emit(ctx context.Context, r Record) error {
	return s.store.InsertStatus(ctx, database.StatusRow{
		Component:   r.Component,
		Event:       r.Event,
		JobID:       r.JobID,
		Summary:     r.Summary,
		Description: r.Description,
		RecordedAt:  r.Time,
	})
}

// LogSink writes records to the log.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, r Record) error {
	if r.Event == EventFail {
		logging.Error("[%s] %s %s: %s", r.Component, r.Event, r.JobID, r.Summary)
		return nil
	}
	logging.Info("[%s] %s %s: %s", r.Component, r.Event, r.JobID, r.Summary)
	return nil
}

// Multi emits to every sink and joins their errors.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Memory keeps records in memory. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

func (m *Memory) Emit(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// Records returns a copy of the records emitted so far.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Reporter emits records for one job.
type Reporter struct {
	component string
	jobID     string
	sink      Sink
	now       func() time.Time
}

// NewReporter creates a reporter. A nil sink logs only.
func NewReporter(component, jobID string, sink Sink) *Reporter {
	if sink == nil {
		sink = LogSink{}
	}
	return &Reporter{component: component, jobID: jobID, sink: sink, now: time.Now}
}

// JobID returns the job id stamped on every record.
func (r *Reporter) JobID() string { return r.jobID }

func (r *Reporter) Start(ctx context.Context, summary, description string) {
	r.emit(ctx, EventStart, summary, description)
}

func (r *Reporter) Success(ctx context.Context, summary, description string) {
	r.emit(ctx, EventSuccess, summary, description)
}

func (r *Reporter) Fail(ctx context.Context, summary, description string) {
	r.emit(ctx, EventFail, summary, description)
}

func (r *Reporter) Status(ctx context.Context, summary, description string) {
	r.emit(ctx, EventStatus, summary, description)
}

func (r *Reporter) emit(ctx context.Context, event, summary, description string) {
	if r == nil {
		return
	}
	rec := Record{
		Component:   r.component,
		Event:       event,
		JobID:       r.jobID,
		Summary:     summary,
		Description: description,
		Time:        r.now(),
	}
	// Status is written during shutdown too, after the caller's context
	// has been cancelled.
	if err := r.sink.Emit(context.WithoutCancel(ctx), rec); err != nil {
		logging.Warn("Failed to record %s status for %s: %v", event, r.component, err)
	}
}
