package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"sdc-indexer/internal/events"
	"sdc-indexer/internal/indexer"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
	"sdc-indexer/internal/queue"
	"sdc-indexer/internal/status"
	"sdc-indexer/internal/workers"
)

// State is a supervisor lifecycle state.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Draining
	Failing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Failing:
		return "failing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Process exit codes for each way Run can end.
const (
	ExitClean          = 0
	ExitFatal          = 1
	ExitKernelOverflow = 3
	ExitQueueOverflow  = 4
	ExitLocked         = 5
)

// ErrAlreadyRun is returned by Run on a supervisor that has already run.
var ErrAlreadyRun = errors.New("supervisor already run")

// Source produces file events until Run returns. The Events channel is
// closed when Run returns.
type Source interface {
	Events() <-chan events.FileEvent
	Run(ctx context.Context) error
	Close() error
}

// Handler applies one event to the catalog.
type Handler interface {
	Handle(ctx context.Context, ev events.FileEvent) indexer.Result
}

// Config configures a Supervisor.
type Config struct {
	// Workers is the pool size. Defaults to 1.
	Workers int
	// QueueSize is the work queue capacity. Defaults to queue.DefaultCapacity.
	QueueSize int
	// Host names the machine in overflow status summaries. Defaults to
	// os.Hostname.
	Host string
	// Reporter receives lifecycle status records. May be nil.
	Reporter *status.Reporter
}

// Outcome describes how Run ended.
type Outcome struct {
	Code   int
	Reason string
	Err    error
	Counts Counts
}

// Counts are running totals for one supervisor.
type Counts struct {
	Received    int64 `json:"received"`
	Handled     int64 `json:"handled"`
	Skipped     int64 `json:"skipped"`
	Recoverable int64 `json:"recoverable"`
	Dropped     int64 `json:"dropped"`
}

// Progress is a snapshot for the progress endpoint.
type Progress struct {
	State      string    `json:"state"`
	StartedAt  time.Time `json:"startedAt"`
	QueueDepth int       `json:"queueDepth"`
	QueueCap   int       `json:"queueCapacity"`
	Counts
}

// Supervisor owns the delta indexing pipeline.
type Supervisor struct {
	source  Source
	handler Handler
	config  Config
	queue   *queue.Queue
	log     logging.Logger

	state     atomic.Int32
	started   atomic.Bool
	startedAt atomic.Int64 // unix nanoseconds, zero before Run

	received    atomic.Int64
	handled     atomic.Int64
	skipped     atomic.Int64
	recoverable atomic.Int64
	failed      atomic.Int64
}

// New creates a supervisor in the Idle state.
func New(source Source, handler Handler, config Config) *Supervisor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Host == "" {
		if host, err := os.Hostname(); err == nil {
			config.Host = host
		} else {
			config.Host = "unknown"
		}
	}
	s := &Supervisor{
		source:  source,
		handler: handler,
		config:  config,
		queue:   queue.New(config.QueueSize),
		log:     logging.For("supervisor"),
	}
	s.setState(Idle)
	return s
}

// State returns the current state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	metrics.SetSupervisorState(st.String())
}

func (s *Supervisor) counts() Counts {
	return Counts{
		Received:    s.received.Load(),
		Handled:     s.handled.Load(),
		Skipped:     s.skipped.Load(),
		Recoverable: s.recoverable.Load(),
		Dropped:     s.dropped(),
	}
}

// dropped counts received events that no worker finished, including the
// one rejected by a full queue. It is exact once the workers have joined.
func (s *Supervisor) dropped() int64 {
	n := s.received.Load() - s.handled.Load() - s.skipped.Load() - s.recoverable.Load() - s.failed.Load()
	if n < 0 {
		return 0
	}
	return n
}

func (s *Supervisor) startTime() time.Time {
	n := s.startedAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// GetProgress returns a snapshot of the pipeline. Dropped is reported once
// the supervisor has stopped.
func (s *Supervisor) GetProgress() Progress {
	st := s.State()
	p := Progress{
		State:      st.String(),
		StartedAt:  s.startTime(),
		QueueDepth: s.queue.Len(),
		QueueCap:   s.queue.Cap(),
		Counts:     s.counts(),
	}
	if st != Stopped {
		p.Dropped = 0
	}
	return p
}

// Run starts the pipeline and blocks until it has stopped. Cancelling ctx
// is a clean shutdown.
func (s *Supervisor) Run(ctx context.Context) Outcome {
	if !s.started.CompareAndSwap(false, true) {
		return Outcome{Code: ExitFatal, Reason: "already run", Err: ErrAlreadyRun}
	}
	s.startedAt.Store(time.Now().UnixNano())
	s.setState(Starting)
	s.config.Reporter.Start(ctx, fmt.Sprintf("delta indexing started on host %s", s.config.Host),
		fmt.Sprintf("workers=%d queue=%d", s.config.Workers, s.queue.Cap()))

	// Workers and source are stopped explicitly during drain, never by the
	// caller's context directly.
	base := context.WithoutCancel(ctx)
	workCtx, stopWorkers := context.WithCancel(base)
	defer stopWorkers()
	srcCtx, stopSource := context.WithCancel(base)
	defer stopSource()

	results := make(chan indexer.Result, s.config.Workers*4)
	pool := &workers.Pool[events.FileEvent]{
		Size:   s.config.Workers,
		Handle: s.handle(results),
		Key:    func(ev events.FileEvent) string { return ev.Path },
		Buffer: 1,
		OnDrop: func(events.FileEvent) {
			metrics.WorkerResults.WithLabelValues("dropped").Inc()
		},
	}

	poolDone := make(chan error, 1)
	go func() { poolDone <- pool.Run(workCtx, s.queue.C()) }()

	srcDone := make(chan error, 1)
	go func() { srcDone <- s.source.Run(srcCtx) }()

	s.setState(Running)
	s.log.Info("Running with %d workers, queue capacity %d", s.config.Workers, s.queue.Cap())

	out := s.loop(ctx, results, srcDone)

	if out.Code == ExitFatal {
		s.setState(Failing)
	} else {
		s.setState(Draining)
	}
	stopSource()
	if err := s.source.Close(); err != nil {
		s.log.Warn("Closing watch source: %v", err)
	}
	stopWorkers()
	s.queue.Close()

	switch out.Code {
	case ExitKernelOverflow, ExitQueueOverflow:
		s.config.Reporter.Status(ctx, out.Reason, "events were lost; run a full reconciliation before restarting delta indexing")
	}

	poolErr := s.join(results, poolDone)
	if out.Err == nil && poolErr != nil {
		out.Err = poolErr
	}
	out.Counts = s.counts()
	summary := fmt.Sprintf("received %d, handled %d, skipped %d, recoverable %d, dropped %d",
		out.Counts.Received, out.Counts.Handled, out.Counts.Skipped, out.Counts.Recoverable, out.Counts.Dropped)

	switch out.Code {
	case ExitClean:
		s.config.Reporter.Success(ctx, "delta indexing stopped", summary)
	case ExitFatal:
		s.config.Reporter.Fail(ctx, fmt.Sprintf("delta indexing failed: %v", out.Err), summary)
	default:
		s.log.Warn("%s (%s)", out.Reason, summary)
	}

	s.setState(Stopped)
	s.log.Info("Stopped: %s", summary)
	return out
}

// loop delivers events to the queue until a stop trigger fires.
func (s *Supervisor) loop(ctx context.Context, results <-chan indexer.Result, srcDone <-chan error) Outcome {
	src := s.source.Events()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Shutdown requested")
			return Outcome{Code: ExitClean, Reason: "shutdown requested"}

		case r := <-results:
			if out, stop := s.onResult(r); stop {
				return out
			}

		case err := <-srcDone:
			if err == nil || errors.Is(err, context.Canceled) {
				err = errors.New("watch source stopped")
			}
			s.log.Error("Watch source failed: %v", err)
			return Outcome{Code: ExitFatal, Reason: "watch source failed", Err: err}

		case ev, ok := <-src:
			if !ok {
				// Run's error arrives on srcDone.
				src = nil
				continue
			}
			if ev.Kind == events.Overflow {
				reason := fmt.Sprintf("queue overflow on host %s", s.config.Host)
				s.log.Error("Kernel notification queue overflowed; events were lost")
				return Outcome{Code: ExitKernelOverflow, Reason: reason}
			}
			s.received.Add(1)
			if err := s.queue.Offer(ev); err != nil {
				reason := fmt.Sprintf("work queue overflow on host %s (capacity %d)", s.config.Host, s.queue.Cap())
				s.log.Error("Work queue rejected %s: %v", ev.Path, err)
				return Outcome{Code: ExitQueueOverflow, Reason: reason, Err: err}
			}
		}
	}
}

// onResult handles one report from the error channel.
func (s *Supervisor) onResult(r indexer.Result) (Outcome, bool) {
	switch r.Kind {
	case indexer.Recoverable:
		s.log.Warn("Recoverable failure on %s: %v", r.Event.Path, r.Err)
		return Outcome{}, false
	case indexer.Fatal:
		s.log.Error("Worker failed on %s: %v", r.Event.Path, r.Err)
		return Outcome{Code: ExitFatal, Reason: "worker failed", Err: r.Err}, true
	default:
		return Outcome{}, false
	}
}

// handle returns the pool handler. Recoverable and fatal results go to the
// error channel; a fatal result also stops the worker.
func (s *Supervisor) handle(results chan<- indexer.Result) workers.Handler[events.FileEvent] {
	return func(ctx context.Context, id int, ev events.FileEvent) error {
		s.queue.Received()
		log := logging.Forf("worker %d", id)

		r := s.handler.Handle(ctx, ev)
		switch r.Kind {
		case indexer.OK:
			s.handled.Add(1)
			log.Debug("%s", r)
		case indexer.Skipped:
			s.skipped.Add(1)
			log.Debug("%s", r)
		case indexer.Recoverable, indexer.Fatal:
			if r.Kind == indexer.Recoverable {
				s.recoverable.Add(1)
			} else {
				s.failed.Add(1)
			}
			// The loop or join is always reading.
			results <- r
			if r.Kind == indexer.Fatal {
				return r.Err
			}
		}
		return nil
	}
}

// join waits for the workers while draining the error channel so that no
// worker blocks on a report.
func (s *Supervisor) join(results <-chan indexer.Result, poolDone <-chan error) error {
	for {
		select {
		case r := <-results:
			s.log.Warn("During drain: %s", r)
		case err := <-poolDone:
			for {
				select {
				case r := <-results:
					s.log.Warn("During drain: %s", r)
				default:
					return err
				}
			}
		}
	}
}
