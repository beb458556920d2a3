package uart

import (
	"fmt"

	"github.com/bft-labs/ethlink/internal/domain"
)

type rxState int

const (
	rxIdle rxState = iota
	rxStart
	rxData
	rxStop
	rxResync
)

// Rx recovers words from the line. Each bit is sampled once, in the middle
// of its period, timed from the falling edge of the start bit.
type Rx struct {
	cfg Config

	state rxState
	prev  bool
	wait  int
	bit   int
	shift uint16

	received    uint64
	framingErrs uint64
	falseStarts uint64
}

// NewRx creates a receiver. The line is assumed idle (high) before the first Tick.
func NewRx(cfg Config) (*Rx, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rx{cfg: cfg, prev: true}, nil
}

// Counts returns the words received, framing errors and false starts seen.
func (r *Rx) Counts() (received, framingErrs, falseStarts uint64) {
	return r.received, r.framingErrs, r.falseStarts
}

// Stats reports received words as frames.
func (r *Rx) Stats() domain.Stats {
	return domain.Stats{FramesReceived: r.received, UARTFraming: r.framingErrs}
}

// Tick samples the line for one clock cycle. It returns a word with ok set
// when a stop bit has been sampled high. A stop bit sampled low yields an
// error wrapping domain.ErrUARTFraming; the receiver then waits for the line
// to return high and looks for the next start bit.
func (r *Rx) Tick(line bool) (word uint16, ok bool, err error) {
	prev := r.prev
	r.prev = line

	switch r.state {
	case rxIdle:
		if !prev || line {
			return 0, false, nil
		}
		r.state = rxStart
		r.wait = (r.cfg.Prescale - 1) / 2
		r.bit, r.shift = 0, 0
	case rxResync:
		if line {
			r.state = rxIdle
		}
		return 0, false, nil
	}

	if r.wait > 0 {
		r.wait--
		return 0, false, nil
	}
	r.wait = r.cfg.Prescale - 1

	switch r.state {
	case rxStart:
		if line {
			r.state = rxIdle
			r.falseStarts++
			return 0, false, nil
		}
		r.state = rxData
	case rxData:
		if line {
			r.shift |= 1 << uint(r.bit)
		}
		r.bit++
		if r.bit == r.cfg.DataBits {
			r.state = rxStop
		}
	case rxStop:
		if !line {
			r.state = rxResync
			r.framingErrs++
			return 0, false, fmt.Errorf("word %#x: stop bit low: %w", r.shift, domain.ErrUARTFraming)
		}
		r.state = rxIdle
		r.received++
		return r.shift, true, nil
	}
	return 0, false, nil
}
