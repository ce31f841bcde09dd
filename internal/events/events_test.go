package events

import (
	"testing"

	"github.com/glowpress/glowpress/internal/store"
)

func TestEmitterHelpers(t *testing.T) {
	var got []Event
	e := Emitter(func(ev Event) { got = append(got, ev) })

	e.Logf(StageResearch, "found %d products", 3)
	e.Progress(42)
	e.Result(&store.ContentRecord{ID: "r1"})

	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Kind != KindLog || got[0].Stage != StageResearch || got[0].Message != "found 3 products" {
		t.Fatalf("unexpected log event: %+v", got[0])
	}
	if got[1].Kind != KindProgress || got[1].Progress != 42 {
		t.Fatalf("unexpected progress event: %+v", got[1])
	}
	if got[2].Kind != KindResult || got[2].Result.ID != "r1" {
		t.Fatalf("unexpected result event: %+v", got[2])
	}
	for _, ev := range got {
		if ev.At.IsZero() {
			t.Fatalf("events must be timestamped")
		}
	}
}

func TestNilEmitterIsSafe(t *testing.T) {
	var e Emitter
	e.Logf(StageSystem, "ignored")
	e.Progress(10)
	e.Result(nil)
}
