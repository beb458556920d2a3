package mac

import (
	"github.com/bft-labs/ethlink/internal/codec"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/ports"
	"github.com/bft-labs/ethlink/internal/stream"
)

// sinkFrame is a frame as seen on the lane interface, preamble stripped.
type sinkFrame struct {
	symbols   []domain.Symbol
	startLane int
	startAt   uint64
}

// data returns the data bytes of the frame, FCS included.
func (f sinkFrame) data() []byte {
	var b []byte
	for _, s := range f.symbols {
		if s.IsData() {
			b = append(b, s.Data)
		}
	}
	return b
}

// endsWithError reports whether the frame's last symbol is an error symbol.
func (f sinkFrame) endsWithError() bool {
	return len(f.symbols) > 0 && f.symbols[len(f.symbols)-1].Kind == domain.SymbolError
}

func (f sinkFrame) payload() []byte {
	p, _ := codec.StripAndValidateFCS(f.data())
	return p
}

func (f sinkFrame) checkFCS() bool {
	_, ok := codec.StripAndValidateFCS(f.data())
	return ok
}

// laneSink collects frames from the lane interface the way a line monitor does.
type laneSink struct {
	frames []sinkFrame
	cur    *sinkFrame
	skip   int
	cycle  uint64
}

func (s *laneSink) put(w domain.LaneWord) {
	for i, sym := range w {
		switch {
		case sym.Kind == domain.SymbolStart:
			s.cur = &sinkFrame{startLane: i, startAt: s.cycle}
			s.skip = domain.PreambleLen - 1
		case s.cur == nil:
		case s.skip > 0:
			s.skip--
		case sym.Kind == domain.SymbolEnd:
			s.frames = append(s.frames, *s.cur)
			s.cur = nil
		default:
			s.cur.symbols = append(s.cur.symbols, sym)
		}
	}
	s.cycle++
}

// runTx ticks tx until its queue is drained and it is idle, feeding every
// word to the sink and to rx when given. It returns the cycles run.
func runTx(tx *Tx, src *stream.Queue, sink *laneSink, rx *Rx, limit int) int {
	n := 0
	for ; n < limit; n++ {
		if n > 0 && src.Empty() && !tx.Busy() {
			break
		}
		w := tx.Tick()
		if sink != nil {
			sink.put(w)
		}
		if rx != nil {
			_ = rx.OnLaneInput(w)
		}
	}
	return n
}

// encodeFrame returns the lane words carrying one frame, padded with idles
// to whole words. mutate may alter the symbols after the preamble.
func encodeFrame(frame []byte, width int, mutate func([]domain.Symbol) []domain.Symbol) []domain.LaneWord {
	body := make([]domain.Symbol, 0, len(frame)+1)
	for _, b := range frame {
		body = append(body, domain.Data(b))
	}
	body = append(body, domain.End)
	if mutate != nil {
		body = mutate(body)
	}

	syms := []domain.Symbol{domain.Start}
	for i := 0; i < 6; i++ {
		syms = append(syms, domain.Data(domain.PreambleByte))
	}
	syms = append(syms, domain.Data(domain.SFD))
	syms = append(syms, body...)
	for len(syms)%width != 0 {
		syms = append(syms, domain.Idle)
	}

	var words []domain.LaneWord
	for i := 0; i < len(syms); i += width {
		words = append(words, domain.LaneWord(syms[i:i+width]))
	}
	words = append(words, domain.IdleWord(width))
	return words
}

func referenceStartLanes(n, count, ifg, width int) []int {
	lane, dic := 0, 0
	var lanes []int
	for k := 0; k < count; k++ {
		if ifg == 0 {
			lane = 0
		}
		lanes = append(lanes, lane)
		lane = (lane + n + 4 + ifg) % width
		offset := lane % 4
		if dic+offset >= 4 {
			offset += 4
		}
		lane = ((lane-offset)%width + width) % width
		dic = (dic + offset) % 4
	}
	return lanes
}

type eventRecorder struct {
	sent, received int
	errs           []error
}

func (r *eventRecorder) OnFrameSent(ports.FrameEvent)     { r.sent++ }
func (r *eventRecorder) OnFrameReceived(ports.FrameEvent) { r.received++ }
func (r *eventRecorder) OnFrameError(e ports.ErrorEvent)  { r.errs = append(r.errs, e.Err) }

// startSlot returns the absolute slot index of the frame's start symbol.
func (f sinkFrame) startSlot(width int) int {
	return int(f.startAt)*width + f.startLane
}
