package agent

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/store"
)

// ErrRunInProgress is returned when a second run is started before the
// first completes.
var ErrRunInProgress = errors.New("a generation run is already in progress")

// Runner executes at most one pipeline run at a time on a background
// worker. The worker communicates exclusively through a FIFO event queue;
// the runner's consumer loop is the only goroutine that mutates the
// presentation state below.
type Runner struct {
	orch   *Orchestrator
	queue  chan events.Event
	logger *log.Logger

	mu       sync.Mutex
	running  bool
	logs     []events.Event
	progress int
	result   *store.ContentRecord
}

// NewRunner creates the runner and starts its consumer loop.
func NewRunner(orch *Orchestrator) *Runner {
	r := &Runner{
		orch:   orch,
		queue:  make(chan events.Event, 256),
		logger: log.New(log.Writer(), "[RUNNER] ", log.LstdFlags),
	}
	go r.consume()
	return r
}

func (r *Runner) consume() {
	for ev := range r.queue {
		r.mu.Lock()
		switch ev.Kind {
		case events.KindLog:
			r.logs = append(r.logs, ev)
		case events.KindProgress:
			r.progress = ev.Progress
		case events.KindResult:
			r.result = ev.Result
		case events.KindDone:
			r.running = false
		}
		r.mu.Unlock()
	}
}

// Start launches a run for the topic. It fails fast with ErrRunInProgress
// while a run is active.
func (r *Runner) Start(topic string) error {
	if strings.TrimSpace(topic) == "" {
		return errors.New("topic must not be empty")
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	r.running = true
	r.logs = nil
	r.result = nil
	r.progress = 0
	r.mu.Unlock()

	go r.work(topic)
	return nil
}

// work is the single producer for this run's events.
func (r *Runner) work(topic string) {
	emit := events.Emitter(func(ev events.Event) { r.queue <- ev })

	emit.Logf(events.StageSystem, "Starting content generation")
	emit.Progress(10)

	record, err := r.orch.Run(context.Background(), topic, emit)
	if err != nil {
		r.logger.Printf("run failed: %v", err)
		emit.Logf(events.StageError, "%v", err)
		emit.Progress(0)
	} else {
		emit.Result(record)
		emit.Progress(100)
	}

	r.queue <- events.Event{Kind: events.KindDone, At: time.Now()}
}

// Status reports whether a run is active and its last progress value.
func (r *Runner) Status() (running bool, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running, r.progress
}

// Events returns the log events after the given offset, with the new
// offset for the next poll.
func (r *Runner) Events(after int) ([]events.Event, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if after < 0 || after > len(r.logs) {
		after = 0
	}
	out := make([]events.Event, len(r.logs)-after)
	copy(out, r.logs[after:])
	return out, len(r.logs)
}

// Result returns a copy of the most recent completed record, or nil.
func (r *Runner) Result() *store.ContentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return nil
	}
	rec := *r.result
	return &rec
}

// ShowRecord loads a past record into the presentation state, mirroring a
// history selection in the UI.
func (r *Runner) ShowRecord(record store.ContentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunInProgress
	}
	r.result = &record
	r.progress = 100
	r.logs = []events.Event{{Kind: events.KindLog, Stage: events.StageInfo, Message: "Loaded from history", At: time.Now()}}
	return nil
}

// MarkPublished flips the publish flag on the displayed record.
func (r *Runner) MarkPublished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result != nil {
		r.result.Published = true
	}
}

// Reset clears displayed state and discards queued events. It does not
// cancel an in-flight worker and refuses while one is active.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunInProgress
	}
	for {
		select {
		case <-r.queue:
		default:
			r.logs = nil
			r.result = nil
			r.progress = 0
			return nil
		}
	}
}
