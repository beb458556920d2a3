package mac

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/ethlink/internal/codec"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/lane"
	"github.com/bft-labs/ethlink/internal/ports"
	"github.com/bft-labs/ethlink/internal/stream"
)

// TxConfig configures a transmit pipeline.
type TxConfig struct {
	// LaneWidth is the number of lanes per cycle (1, 2, 4 or 8)
	LaneWidth int
	// IFG is the inter-frame gap in lane slots
	IFG int
	// TxEnable gates the start of new frames
	TxEnable bool
	// StreamWidth is the word width used by Accept
	StreamWidth int
}

type txState int

const (
	txIdle txState = iota
	txPreamble
	txData
	txPad
	txFCS
)

type txOutcome int

const (
	txOK txOutcome = iota
	txUnderrun
	txErrored
)

// Tx serializes frames from a stream source onto the lane interface.
// Once a frame has started, Tick never waits for the source: a stall is
// turned into an error symbol that terminates the frame.
type Tx struct {
	src    ports.StreamSource
	queue  *stream.Queue
	logger ports.Logger
	events ports.EventHandler
	pacer  *lane.Pacer
	digest *codec.Digest

	ifg    atomic.Int64
	enable atomic.Bool

	state    txState
	pre      int
	buf      []byte
	sawLast  bool
	errTag   bool
	count    int
	trailer  [domain.FCSLen]byte
	fcsIdx   int
	outcome  txOutcome
	endNext  bool
	draining bool
	start    int
	cycle    uint64

	statsMu sync.Mutex
	stats   domain.Stats
}

// NewTx creates a transmit pipeline reading from src. When src is nil the
// pipeline reads from a built-in queue fed by Accept.
func NewTx(cfg TxConfig, src ports.StreamSource, logger ports.Logger, events ports.EventHandler) (*Tx, error) {
	if !lane.ValidWidth(cfg.LaneWidth) {
		return nil, fmt.Errorf("lane width %d: %w", cfg.LaneWidth, domain.ErrInvalidConfig)
	}
	if cfg.IFG < 0 {
		return nil, fmt.Errorf("ifg %d: %w", cfg.IFG, domain.ErrInvalidConfig)
	}
	logger, events = orNop(logger, events)

	t := &Tx{
		src:    src,
		logger: logger,
		events: events,
		pacer:  lane.NewPacer(cfg.LaneWidth, cfg.IFG),
		digest: codec.NewDigest(),
	}
	if src == nil {
		t.queue = stream.NewQueue(cfg.StreamWidth)
		t.src = t.queue
	}
	t.ifg.Store(int64(cfg.IFG))
	t.enable.Store(cfg.TxEnable)
	return t, nil
}

// Accept enqueues a frame on the built-in queue. With errFlag set the frame
// is sent with its last FCS byte replaced by an error symbol.
func (t *Tx) Accept(frame domain.Frame, errFlag bool) error {
	if t.queue == nil {
		return fmt.Errorf("accept with external source: %w", domain.ErrInvalidConfig)
	}
	frame.Err = frame.Err || errFlag
	return t.queue.PushFrame(frame)
}

// Queue returns the built-in queue, or nil when an external source is used.
func (t *Tx) Queue() *stream.Queue { return t.queue }

// SetIFG changes the inter-frame gap. It takes effect from the next frame.
func (t *Tx) SetIFG(ifg int) {
	if ifg < 0 {
		ifg = 0
	}
	t.ifg.Store(int64(ifg))
}

// SetTxEnable gates the start of new frames. A frame in flight completes.
func (t *Tx) SetTxEnable(enable bool) { t.enable.Store(enable) }

// Width returns the lane count.
func (t *Tx) Width() int { return t.pacer.Width() }

// Cycle returns the number of cycles ticked.
func (t *Tx) Cycle() uint64 { return t.cycle }

// Busy reports whether a frame or its gap is in flight.
func (t *Tx) Busy() bool {
	return t.state != txIdle || t.endNext || t.draining || t.pacer.Phase() != lane.PhaseIdle
}

// Stats returns a snapshot of the counters.
func (t *Tx) Stats() domain.Stats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

// Reset abandons any frame in flight and returns to the post-reset state.
// Queued words and counters are kept.
func (t *Tx) Reset() {
	t.pacer.Reset()
	t.state = txIdle
	t.buf = t.buf[:0]
	t.sawLast, t.errTag, t.endNext, t.draining = false, false, false, false
	t.count, t.fcsIdx, t.pre = 0, 0, 0
	t.digest.Reset()
}

// Tick advances one cycle and returns the symbols placed on the lanes.
func (t *Tx) Tick() domain.LaneWord {
	w := make(domain.LaneWord, t.pacer.Width())
	for i := range w {
		sym, done := t.slot()
		w[i] = sym
		t.pacer.Step()
		if done {
			t.finish()
		}
	}
	t.cycle++
	return w
}

// slot returns the symbol for the next lane slot and whether it is the last
// symbol of a frame.
func (t *Tx) slot() (domain.Symbol, bool) {
	switch t.state {
	case txPreamble:
		t.pre++
		if t.pre == domain.PreambleLen-1 {
			t.state = txData
			return domain.Data(domain.SFD), false
		}
		return domain.Data(domain.PreambleByte), false

	case txData:
		for len(t.buf) == 0 && !t.sawLast {
			w, ok := t.src.Next()
			if !ok {
				return t.underrun()
			}
			t.load(w)
		}
		if len(t.buf) == 0 {
			t.endData()
			return t.slot()
		}
		b := t.buf[0]
		t.buf = t.buf[1:]
		t.place(b)
		if len(t.buf) == 0 && t.sawLast {
			t.endData()
		}
		return domain.Data(b), false

	case txPad:
		t.place(0)
		if t.count >= domain.MinFrameLen {
			t.enterFCS()
		}
		return domain.Data(0), false

	case txFCS:
		b := t.trailer[t.fcsIdx]
		t.fcsIdx++
		t.count++
		if t.fcsIdx < domain.FCSLen {
			return domain.Data(b), false
		}
		if t.errTag {
			t.outcome = txErrored
			return domain.Error, true
		}
		return domain.Data(b), true
	}

	// idle or gap
	t.drain()
	if t.endNext {
		t.endNext = false
		return domain.End, false
	}
	if !t.draining && t.pacer.CanStart() && t.enable.Load() && t.fetch() {
		t.begin()
		return domain.Start, false
	}
	if t.pacer.GapDone() {
		t.pacer.GoIdle()
	}
	return domain.Idle, false
}

// fetch pulls the first word of the next frame.
func (t *Tx) fetch() bool {
	for {
		w, ok := t.src.Next()
		if !ok {
			return false
		}
		if w.Last && len(w.Bytes()) == 0 {
			t.statsMu.Lock()
			t.stats.Malformed++
			t.statsMu.Unlock()
			t.logger.Warn("tx dropped empty frame", ports.Uint64("cycle", t.cycle))
			t.events.OnFrameError(ports.ErrorEvent{Cycle: t.cycle, Err: domain.ErrEmptyFrame})
			continue
		}
		t.buf = t.buf[:0]
		t.sawLast, t.errTag = false, false
		t.load(w)
		return true
	}
}

func (t *Tx) load(w domain.StreamWord) {
	t.buf = append(t.buf, w.Bytes()...)
	t.sawLast = w.Last
	t.errTag = t.errTag || w.User
}

func (t *Tx) begin() {
	t.pacer.SetIFG(int(t.ifg.Load()))
	t.start = t.pacer.Lane()
	t.pacer.BeginFrame()
	t.state = txPreamble
	t.pre = 0
	t.count = 0
	t.fcsIdx = 0
	t.outcome = txOK
	t.digest.Reset()
}

func (t *Tx) place(b byte) {
	_ = t.digest.WriteByte(b)
	t.count++
}

func (t *Tx) endData() {
	if t.count < domain.MinFrameLen {
		t.state = txPad
		return
	}
	t.enterFCS()
}

func (t *Tx) enterFCS() {
	t.trailer = t.digest.Trailer()
	t.fcsIdx = 0
	t.state = txFCS
}

// underrun terminates the frame in the current slot. Words the source still
// holds for this frame are discarded as they arrive.
func (t *Tx) underrun() (domain.Symbol, bool) {
	t.count++
	t.outcome = txUnderrun
	t.draining = !t.sawLast
	return domain.Error, true
}

func (t *Tx) drain() {
	for t.draining {
		w, ok := t.src.Next()
		if !ok {
			return
		}
		if w.Last {
			t.draining = false
		}
	}
}

// finish runs after the last frame symbol has been stepped past.
func (t *Tx) finish() {
	gap := t.pacer.EndFrame(t.count)
	t.state = txIdle
	t.endNext = true
	t.buf = t.buf[:0]

	t.statsMu.Lock()
	switch t.outcome {
	case txUnderrun:
		t.stats.Underruns++
	case txErrored:
		t.stats.TxErrors++
	default:
		t.stats.FramesSent++
		t.stats.BytesSent += uint64(t.count)
	}
	t.statsMu.Unlock()

	switch t.outcome {
	case txUnderrun:
		t.logger.Warn("tx underrun", ports.Uint64("cycle", t.cycle), ports.Int("length", t.count))
		t.events.OnFrameError(ports.ErrorEvent{Cycle: t.cycle, Length: t.count, Err: domain.ErrUnderrun})
	case txErrored:
		t.logger.Warn("tx frame sent with error", ports.Uint64("cycle", t.cycle), ports.Int("length", t.count))
		t.events.OnFrameError(ports.ErrorEvent{Cycle: t.cycle, Length: t.count, Err: domain.ErrTxError})
	default:
		t.logger.Debug("tx frame",
			ports.Uint64("cycle", t.cycle),
			ports.Int("length", t.count),
			ports.Int("start_lane", t.start),
			ports.Int("gap", gap))
		t.events.OnFrameSent(ports.FrameEvent{Cycle: t.cycle, Length: t.count, StartLane: t.start})
	}
}
