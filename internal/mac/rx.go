package mac

import (
	"fmt"
	"sync"

	"github.com/bft-labs/ethlink/internal/codec"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/ports"
	"github.com/bft-labs/ethlink/internal/stream"
)

// RxConfig configures a receive pipeline.
type RxConfig struct {
	// StreamWidth is the word width of the output stream
	StreamWidth int
	// MaxFrameSize bounds a frame, FCS excluded; DefaultMaxFrameSize when zero
	MaxFrameSize int
	// ForwardBadFrames emits frames failing the FCS check with the error tag
	// set instead of dropping them
	ForwardBadFrames bool
}

type rxState int

const (
	rxHunt rxState = iota
	rxPreamble
	rxData
)

// Rx delimits frames on the lane interface, checks their FCS and pushes the
// good ones onto its output stream.
type Rx struct {
	cfg    RxConfig
	out    *stream.Queue
	logger ports.Logger
	events ports.EventHandler

	state rxState
	pre   int
	buf   []byte
	cycle uint64

	statsMu sync.Mutex
	stats   domain.Stats
}

// NewRx creates a receive pipeline.
func NewRx(cfg RxConfig, logger ports.Logger, events ports.EventHandler) *Rx {
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = DefaultMaxFrameSize
	}
	logger, events = orNop(logger, events)
	return &Rx{
		cfg:    cfg,
		out:    stream.NewQueue(cfg.StreamWidth),
		logger: logger,
		events: events,
	}
}

// Output returns the stream the received frames are pushed onto.
func (r *Rx) Output() *stream.Queue { return r.out }

// Cycle returns the number of cycles received.
func (r *Rx) Cycle() uint64 { return r.cycle }

// Stats returns a snapshot of the counters.
func (r *Rx) Stats() domain.Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

// Reset drops the frame in progress and hunts for the next start symbol.
func (r *Rx) Reset() {
	r.state = rxHunt
	r.buf = nil
	r.pre = 0
}

// OnLaneInput consumes one cycle of the lane interface.
// It returns an error wrapping domain.ErrFrameDesync when a frame runs past
// the maximum frame size; the receiver has then already dropped the frame and
// resynchronizes on the next start symbol. Every other fault is counted and
// reported through the event handler only.
func (r *Rx) OnLaneInput(w domain.LaneWord) error {
	var firstErr error
	for _, s := range w {
		if err := r.symbol(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.cycle++
	return firstErr
}

func (r *Rx) symbol(s domain.Symbol) error {
	switch r.state {
	case rxHunt:
		if s.Kind == domain.SymbolStart {
			r.begin()
		}
		return nil

	case rxPreamble:
		switch s.Kind {
		case domain.SymbolData:
			if s.Data == domain.SFD {
				r.state = rxData
				return nil
			}
			r.pre++
			if r.pre >= domain.PreambleLen {
				r.malformed("no start frame delimiter")
			}
		case domain.SymbolError:
			r.errored()
		case domain.SymbolStart:
			r.malformed("start inside preamble")
			r.begin()
		default:
			r.malformed("preamble cut short")
		}
		return nil
	}

	switch s.Kind {
	case domain.SymbolData:
		r.buf = append(r.buf, s.Data)
		if len(r.buf) > r.cfg.MaxFrameSize+domain.FCSLen {
			return r.desync()
		}
	case domain.SymbolEnd:
		r.finish()
	case domain.SymbolError:
		r.errored()
	case domain.SymbolStart:
		r.malformed("start inside frame")
		r.begin()
	case domain.SymbolIdle:
		r.malformed("idle inside frame")
	}
	return nil
}

func (r *Rx) begin() {
	r.state = rxPreamble
	r.pre = 1
	r.buf = make([]byte, 0, 128)
}

func (r *Rx) hunt() {
	r.state = rxHunt
	r.buf = nil
}

func (r *Rx) finish() {
	frame := r.buf
	r.hunt()

	if len(frame) < domain.FCSLen {
		r.count(func(s *domain.Stats) { s.Malformed++ })
		r.report(len(frame), domain.ErrShortFrame)
		return
	}

	payload, ok := codec.StripAndValidateFCS(frame)
	if !ok {
		r.count(func(s *domain.Stats) { s.FCSErrors++ })
		r.report(len(frame), domain.ErrFCSMismatch)
		if r.cfg.ForwardBadFrames {
			_ = r.out.PushFrame(domain.Frame{Data: payload, Err: true})
		}
		return
	}

	r.count(func(s *domain.Stats) {
		s.FramesReceived++
		s.BytesReceived += uint64(len(frame))
	})
	if len(payload) > 0 {
		_ = r.out.PushFrame(domain.Frame{Data: payload})
	}
	r.logger.Debug("rx frame", ports.Uint64("cycle", r.cycle), ports.Int("length", len(frame)))
	r.events.OnFrameReceived(ports.FrameEvent{Cycle: r.cycle, Length: len(frame)})
}

func (r *Rx) errored() {
	n := len(r.buf)
	r.hunt()
	r.count(func(s *domain.Stats) { s.RxErrors++ })
	r.report(n, domain.ErrRxError)
}

func (r *Rx) malformed(reason string) {
	n := len(r.buf)
	r.hunt()
	r.count(func(s *domain.Stats) { s.Malformed++ })
	r.logger.Debug("rx malformed frame", ports.String("reason", reason))
	r.report(n, domain.ErrMalformedFrame)
}

func (r *Rx) desync() error {
	n := len(r.buf)
	r.hunt()
	r.count(func(s *domain.Stats) { s.Desyncs++ })
	r.report(n, domain.ErrFrameDesync)
	return fmt.Errorf("rx frame exceeds %d bytes at cycle %d: %w", r.cfg.MaxFrameSize, r.cycle, domain.ErrFrameDesync)
}

func (r *Rx) count(fn func(*domain.Stats)) {
	r.statsMu.Lock()
	fn(&r.stats)
	r.statsMu.Unlock()
}

func (r *Rx) report(length int, err error) {
	r.logger.Warn("rx frame dropped", ports.Uint64("cycle", r.cycle), ports.Int("length", length), ports.Err(err))
	r.events.OnFrameError(ports.ErrorEvent{Cycle: r.cycle, Length: length, Err: err})
}
