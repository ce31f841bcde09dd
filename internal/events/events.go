package events

import (
	"fmt"
	"time"

	"github.com/glowpress/glowpress/internal/store"
)

// Kind discriminates the three event varieties a worker can emit.
type Kind string

const (
	KindLog      Kind = "log"
	KindProgress Kind = "progress"
	KindResult   Kind = "result"

	// KindDone marks worker termination for the consumer loop; it carries
	// no payload and is never surfaced to the UI.
	KindDone Kind = "done"
)

// Stage tags for log events, rendered by the UI with per-stage colors.
const (
	StageSystem   = "SYSTEM"
	StageResearch = "RESEARCH"
	StageBlog     = "BLOG"
	StageImage    = "IMAGE"
	StageLinkedIn = "LINKEDIN"
	StageInfo     = "INFO"
	StageError    = "ERROR"
)

// Event is one item on the worker-to-consumer queue.
type Event struct {
	Kind     Kind                 `json:"kind"`
	Stage    string               `json:"stage,omitempty"`
	Message  string               `json:"message,omitempty"`
	Progress int                  `json:"progress,omitempty"`
	Result   *store.ContentRecord `json:"result,omitempty"`
	At       time.Time            `json:"at"`
}

// Emitter delivers events from a pipeline worker. Implementations must be
// safe for use from a single producer goroutine.
type Emitter func(Event)

// Logf emits a stage-tagged log event.
func (e Emitter) Logf(stage, format string, args ...interface{}) {
	if e == nil {
		return
	}
	e(Event{Kind: KindLog, Stage: stage, Message: fmt.Sprintf(format, args...), At: time.Now()})
}

// Progress emits a progress percentage.
func (e Emitter) Progress(pct int) {
	if e == nil {
		return
	}
	e(Event{Kind: KindProgress, Progress: pct, At: time.Now()})
}

// Result emits the final record of a successful run.
func (e Emitter) Result(record *store.ContentRecord) {
	if e == nil {
		return
	}
	e(Event{Kind: KindResult, Result: record, At: time.Now()})
}
