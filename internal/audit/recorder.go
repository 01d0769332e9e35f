package audit

import (
	"context"
	"time"

	"caringcompass.org/internal/ids"
	"caringcompass.org/internal/obs"
)

// Recorder writes events fire-and-forget: a sink failure is reported to the
// local error log and suppressed, so audit trouble can never fail or roll
// back the operation it describes. A nil Recorder drops everything, which
// keeps callers free of nil checks in tests.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

// NewRecorder wraps the sink. The clock override is for tests.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, now: time.Now}
}

// WithClock returns a copy of the recorder using the given time source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	if r == nil || now == nil {
		return r
	}
	return &Recorder{sink: r.sink, now: now}
}

// Record stamps and appends the event.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.sink == nil {
		return
	}
	if event.ID == "" {
		event.ID = ids.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now().UTC()
	}
	if err := r.sink.Append(ctx, event); err != nil {
		obs.Errorf("audit append failed: action=%s err=%v", event.Action, err)
	}
}
