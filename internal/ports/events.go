package ports

// EventHandler receives per-frame notifications from the pipelines.
// Handlers are called synchronously from the pipeline's clock domain and must
// not block.
type EventHandler interface {
	// OnFrameSent is called after the last symbol of a frame has been placed.
	OnFrameSent(ev FrameEvent)

	// OnFrameReceived is called when a frame passes FCS validation.
	OnFrameReceived(ev FrameEvent)

	// OnFrameError is called for every frame that is dropped or terminated.
	OnFrameError(ev ErrorEvent)
}

// FrameEvent describes a frame that crossed a boundary.
type FrameEvent struct {
	// Cycle is the clock cycle of the frame's last symbol
	Cycle uint64
	// Length is the frame length on the wire, FCS included
	Length int
	// StartLane is the lane that carried the start symbol
	StartLane int
}

// ErrorEvent describes a dropped or terminated frame.
// Err is one of the domain sentinel errors.
type ErrorEvent struct {
	Cycle  uint64
	Length int
	Err    error
}

// NoopEvents discards all events.
type NoopEvents struct{}

func (NoopEvents) OnFrameSent(FrameEvent)     {}
func (NoopEvents) OnFrameReceived(FrameEvent) {}
func (NoopEvents) OnFrameError(ErrorEvent)    {}
