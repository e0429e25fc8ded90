package simplify

import "time"

// SkipReason says why Simplify returned its input untouched.
type SkipReason int

const (
	NotSkipped SkipReason = iota
	SkipNoop              // ratio close enough to 1 that nothing would change
	SkipTooLarge          // vertex count above the configured ceiling
)

func (r SkipReason) String() string {
	switch r {
	case NotSkipped:
		return "none"
	case SkipNoop:
		return "noop"
	case SkipTooLarge:
		return "too-large"
	default:
		return "unknown"
	}
}

// Event is a progress notification. It is one of EventStart,
// EventComplete, EventSkipped or EventFailed.
type Event interface {
	isEvent()
}

// EventStart is sent before decimation begins.
type EventStart struct {
	OriginalVertices int
	TargetRatio      float64
}

// EventComplete is sent after a successful decimation.
type EventComplete struct {
	FinalVertices int
	Triangles     int
	Elapsed       time.Duration
}

// EventSkipped is sent when a mesh is too large to simplify.
type EventSkipped struct {
	Reason   SkipReason
	Vertices int
}

// EventFailed is sent when decimation failed and the input was kept.
type EventFailed struct {
	Err error
}

func (EventStart) isEvent()    {}
func (EventComplete) isEvent() {}
func (EventSkipped) isEvent()  {}
func (EventFailed) isEvent()   {}

// Observer receives events synchronously on the simplifying goroutine.
type Observer func(Event)

// Result summarizes one Simplify call.
type Result struct {
	Skipped          SkipReason
	OriginalVertices int
	FinalVertices    int
	Triangles        int
	Elapsed          time.Duration
	// Err is set when decimation failed; the input mesh was returned.
	Err error
}
