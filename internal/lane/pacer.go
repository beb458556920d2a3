// Package lane places frames on a multi-lane medium: it spaces frames by the
// inter-frame gap and picks the start lane of each frame, carrying a deficit
// idle count so that the average gap stays at the configured value.
package lane

import (
	"fmt"

	"github.com/bft-labs/ethlink/internal/domain"
)

// Phase is the pacer's transmit phase.
type Phase int

const (
	// PhaseIdle: no frame in flight and no gap pending. A frame may start on lane 0.
	PhaseIdle Phase = iota
	// PhaseSending: frame symbols are being placed.
	PhaseSending
	// PhaseGap: terminate and idle symbols are being placed until the gap elapses.
	PhaseGap
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseSending:
		return "Sending"
	case PhaseGap:
		return "Gap"
	default:
		return "Unknown"
	}
}

// State is the alignment state carried from one frame to the next.
// Lane is in [0, width) and DeficitIdleCount in [0, 4).
type State struct {
	Lane             int
	DeficitIdleCount int
}

// ValidWidth reports whether width is a supported lane count.
// Widths must divide the preamble length so that the preamble does not shift lanes.
func ValidWidth(width int) bool {
	switch width {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// Advance computes the start lane of the next frame after a frame of frameLen
// bytes (FCS included) that started on st.Lane.
//
// gap is the number of slots between the last byte of the frame and the start
// symbol of the next one, terminate symbol included. The gap is shortened by
// up to three slots to reach an aligned lane, and lengthened by four instead
// once the accumulated shortening would reach four. With ifg == 0 frames go
// back to back, each starting on lane 0.
func Advance(st State, frameLen, ifg, width int) (next State, gap int) {
	span := domain.PreambleLen + frameLen

	if ifg <= 0 {
		gap = mod(-(st.Lane + span), width)
		if gap == 0 {
			gap = width
		}
		return State{}, gap
	}

	after := mod(st.Lane+frameLen+ifg, width)
	offset := after % 4
	gap = ifg - offset
	if st.DeficitIdleCount+offset >= 4 {
		offset += 4
		gap += 4
	}
	next.Lane = mod(after-offset, width)
	next.DeficitIdleCount = (st.DeficitIdleCount + offset) % 4

	// Leave room for the terminate symbol.
	if gap < 1 {
		gap += 4
		next.Lane = mod(next.Lane+4, width)
	}
	return next, gap
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

// Pacer tracks the slot cursor and gap timer of one transmit session.
// It is advanced one slot at a time by the transmit pipeline.
type Pacer struct {
	width int
	ifg   int

	phase   Phase
	st      State
	cursor  int
	gapLeft int
}

// NewPacer creates a pacer for width lanes. It panics on an unsupported width.
func NewPacer(width, ifg int) *Pacer {
	if !ValidWidth(width) {
		panic(fmt.Sprintf("lane: unsupported width %d", width))
	}
	return &Pacer{width: width, ifg: ifg}
}

// Width returns the lane count.
func (p *Pacer) Width() int { return p.width }

// Lane returns the lane of the next slot.
func (p *Pacer) Lane() int { return p.cursor }

// Phase returns the current phase.
func (p *Pacer) Phase() Phase { return p.phase }

// State returns the alignment state.
func (p *Pacer) State() State { return p.st }

// GapLeft returns the number of gap slots still to place.
func (p *Pacer) GapLeft() int { return p.gapLeft }

// SetIFG changes the inter-frame gap used from the next frame end on.
func (p *Pacer) SetIFG(ifg int) { p.ifg = ifg }

// CanStart reports whether a frame may start in the next slot.
func (p *Pacer) CanStart() bool {
	switch p.phase {
	case PhaseIdle:
		return p.cursor == 0
	case PhaseGap:
		return p.gapLeft == 0
	default:
		return false
	}
}

// GapDone reports whether the gap has elapsed.
func (p *Pacer) GapDone() bool {
	return p.phase == PhaseGap && p.gapLeft == 0
}

// BeginFrame records that a start symbol is placed in the next slot.
func (p *Pacer) BeginFrame() {
	if p.phase == PhaseIdle {
		p.st = State{}
	}
	p.st.Lane = p.cursor
	p.phase = PhaseSending
}

// EndFrame records that the last frame symbol has been placed and arms the gap
// timer. frameLen counts the symbols after the preamble.
func (p *Pacer) EndFrame(frameLen int) int {
	var gap int
	p.st, gap = Advance(p.st, frameLen, p.ifg, p.width)
	p.phase = PhaseGap
	p.gapLeft = gap
	return gap
}

// GoIdle is called when the gap has elapsed and no frame is ready.
// The alignment state restarts from lane 0 with no deficit.
func (p *Pacer) GoIdle() {
	p.phase = PhaseIdle
	p.st = State{}
	p.gapLeft = 0
}

// Step advances the cursor past one slot.
func (p *Pacer) Step() {
	p.cursor = (p.cursor + 1) % p.width
	if p.phase == PhaseGap && p.gapLeft > 0 {
		p.gapLeft--
	}
}

// Reset returns the pacer to its post-reset state.
func (p *Pacer) Reset() {
	p.phase = PhaseIdle
	p.st = State{}
	p.cursor = 0
	p.gapLeft = 0
}
