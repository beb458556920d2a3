// Package app runs a full-duplex link: a transmit clock domain driving a MAC
// transmit pipeline onto the PHY interface, and a receive clock domain
// decoding that interface into a MAC receive pipeline.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logadapter "github.com/bft-labs/ethlink/internal/adapters/log"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/mac"
	"github.com/bft-labs/ethlink/internal/phy"
	"github.com/bft-labs/ethlink/internal/ports"
	"github.com/bft-labs/ethlink/internal/stream"
)

// DefaultSyncDepth is the number of beats buffered between the domains.
const DefaultSyncDepth = 64

// LinkConfig configures a link.
type LinkConfig struct {
	LaneWidth        int
	StreamWidth      int
	IFG              int
	TxEnable         bool
	MaxFrameSize     int
	ForwardBadFrames bool

	// ClockPeriod paces the transmit domain. Zero runs it as fast as possible.
	ClockPeriod time.Duration
	// Cycles stops the link after this many transmit cycles. Zero runs until Stop.
	Cycles uint64
	// SyncDepth is the capacity of the beat channel between the domains.
	SyncDepth int
}

// BeatRecorder receives every beat the transmit domain places on the interface.
type BeatRecorder interface {
	Write(cycle uint64, b phy.Beat) error
}

// LinkStatus is a snapshot of a link.
type LinkStatus struct {
	State    State
	TxCycles uint64
	RxCycles uint64
	Tx       domain.Stats
	Rx       domain.Stats
}

// Link connects a transmit and a receive pipeline through a PHY encoding.
// The two domains share nothing but the beat channel; frames are sent with
// Send and collected with Received.
type Link struct {
	cfg      LinkConfig
	tx       *mac.Tx
	rx       *mac.Rx
	enc, dec phy.Codec
	lc       *Lifecycle
	logger   ports.Logger
	recorder BeatRecorder

	txCycles atomic.Uint64
	rxCycles atomic.Uint64
	// idleMark is the transmit cycle count at which the pipeline was last
	// seen with nothing queued or in flight, zero while busy.
	idleMark atomic.Uint64

	asmMu sync.Mutex
	asm   stream.Assembler

	runMu sync.Mutex
	done  chan struct{}
	err   error
}

// NewLink creates a stopped link. events must be safe for concurrent use:
// transmit events arrive from the transmit domain, receive events from the
// receive domain.
func NewLink(cfg LinkConfig, logger ports.Logger, events ports.EventHandler, emitter EventEmitter) (*Link, error) {
	if cfg.StreamWidth <= 0 {
		cfg.StreamWidth = cfg.LaneWidth
	}
	if cfg.SyncDepth <= 0 {
		cfg.SyncDepth = DefaultSyncDepth
	}
	if logger == nil {
		logger = logadapter.NewNoopLogger()
	}

	tx, err := mac.NewTx(mac.TxConfig{
		LaneWidth:   cfg.LaneWidth,
		IFG:         cfg.IFG,
		TxEnable:    cfg.TxEnable,
		StreamWidth: cfg.StreamWidth,
	}, nil, logger, events)
	if err != nil {
		return nil, fmt.Errorf("create tx: %w", err)
	}
	enc, err := phy.New(cfg.LaneWidth)
	if err != nil {
		return nil, err
	}
	dec, _ := phy.New(cfg.LaneWidth)

	return &Link{
		cfg: cfg,
		tx:  tx,
		rx: mac.NewRx(mac.RxConfig{
			StreamWidth:      cfg.StreamWidth,
			MaxFrameSize:     cfg.MaxFrameSize,
			ForwardBadFrames: cfg.ForwardBadFrames,
		}, logger, events),
		enc:    enc,
		dec:    dec,
		lc:     NewLifecycle(logger, emitter),
		logger: logger,
	}, nil
}

// SetRecorder installs a beat recorder. It must be called before Start.
func (l *Link) SetRecorder(r BeatRecorder) { l.recorder = r }

// PHY returns the name of the interface encoding.
func (l *Link) PHY() string { return l.enc.Name() }

// Start launches both clock domains. The link stops when ctx is canceled,
// when Stop is called or when the cycle budget is spent.
func (l *Link) Start(ctx context.Context) error {
	if !l.lc.CanStart() {
		return fmt.Errorf("start link: %w", domain.ErrAlreadyRunning)
	}
	if err := l.lc.TransitionTo(StateStarting, "start requested"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.lc.SetCancel(cancel)
	beats := make(chan phy.Beat, l.cfg.SyncDepth)
	done := make(chan struct{})

	l.runMu.Lock()
	l.done, l.err = done, nil
	l.runMu.Unlock()
	l.txCycles.Store(0)
	l.rxCycles.Store(0)
	l.idleMark.Store(0)
	l.enc.Reset()
	l.dec.Reset()
	l.tx.Reset()
	l.rx.Reset()

	if err := l.lc.TransitionTo(StateRunning, "domains starting"); err != nil {
		cancel()
		return err
	}
	l.logger.Info("link started",
		ports.String("phy", l.enc.Name()),
		ports.Int("lane_width", l.cfg.LaneWidth),
		ports.Int("ifg", l.cfg.IFG),
		ports.Uint64("cycles", l.cfg.Cycles),
	)

	l.lc.Go(func() { l.runTx(runCtx, beats) })
	l.lc.Go(func() { l.runRx(beats) })
	go l.supervise(runCtx, done, cancel)
	return nil
}

// Stop cancels both domains and waits for them to exit.
func (l *Link) Stop() error {
	l.runMu.Lock()
	done := l.done
	l.runMu.Unlock()

	st := l.lc.State()
	if done == nil || (!l.lc.CanStop() && st != StateStopping) {
		return fmt.Errorf("stop link: %w", domain.ErrNotRunning)
	}
	if l.lc.CanStop() {
		// The supervisor may have moved on already; either way the link stops.
		_ = l.lc.TransitionTo(StateStopping, "stop requested")
	}
	l.lc.Cancel()

	if err := l.lc.WaitWithTimeout(ShutdownTimeout); err != nil {
		return err
	}
	<-done
	return l.Err()
}

// Wait blocks until the link has stopped or ctx is done.
func (l *Link) Wait(ctx context.Context) error {
	l.runMu.Lock()
	done := l.done
	l.runMu.Unlock()
	if done == nil {
		return fmt.Errorf("wait link: %w", domain.ErrNotRunning)
	}
	select {
	case <-done:
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush blocks until every frame sent before the call has left the
// transmit pipeline and the receive domain has consumed every beat.
func (l *Link) Flush(ctx context.Context) error {
	l.runMu.Lock()
	done := l.done
	l.runMu.Unlock()
	if done == nil {
		return fmt.Errorf("flush link: %w", domain.ErrNotRunning)
	}

	// A cycle that starts after this load sees every frame queued so far.
	after := l.txCycles.Load() + 2
	ticker := time.NewTicker(100 * time.Microsecond)
	defer ticker.Stop()
	for {
		if m := l.idleMark.Load(); m >= after && l.rxCycles.Load() >= m {
			return nil
		}
		select {
		case <-ticker.C:
		case <-done:
			return fmt.Errorf("flush link: %w", domain.ErrNotRunning)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Err returns the error that crashed the last run, if any.
func (l *Link) Err() error {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	return l.err
}

// Send queues a frame for transmission.
func (l *Link) Send(frame domain.Frame, errFlag bool) error {
	return l.tx.Accept(frame, errFlag)
}

// Received returns the frames delivered since the last call.
func (l *Link) Received() ([]domain.Frame, error) {
	l.asmMu.Lock()
	defer l.asmMu.Unlock()
	return l.asm.Collect(l.rx.Output())
}

// SetIFG changes the inter-frame gap from the next frame on.
func (l *Link) SetIFG(ifg int) { l.tx.SetIFG(ifg) }

// SetTxEnable gates the start of new frames.
func (l *Link) SetTxEnable(enable bool) { l.tx.SetTxEnable(enable) }

// TxStats returns the transmit counters.
func (l *Link) TxStats() domain.Stats { return l.tx.Stats() }

// RxStats returns the receive counters.
func (l *Link) RxStats() domain.Stats { return l.rx.Stats() }

// Status returns a snapshot of the link.
func (l *Link) Status() LinkStatus {
	return LinkStatus{
		State:    l.lc.State(),
		TxCycles: l.txCycles.Load(),
		RxCycles: l.rxCycles.Load(),
		Tx:       l.tx.Stats(),
		Rx:       l.rx.Stats(),
	}
}

func (l *Link) runTx(ctx context.Context, beats chan<- phy.Beat) {
	defer close(beats)

	var tick <-chan time.Time
	if l.cfg.ClockPeriod > 0 {
		ticker := time.NewTicker(l.cfg.ClockPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for cycle := uint64(0); l.cfg.Cycles == 0 || cycle < l.cfg.Cycles; cycle++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return
		}

		b := l.enc.Encode(l.tx.Tick())
		if l.recorder != nil {
			if err := l.recorder.Write(cycle, b); err != nil {
				l.fail(fmt.Errorf("record beat: %w", err))
				return
			}
		}
		select {
		case beats <- b:
		case <-ctx.Done():
			return
		}

		n := l.txCycles.Add(1)
		if !l.tx.Busy() && l.tx.Queue().Empty() {
			l.idleMark.Store(n)
		} else {
			l.idleMark.Store(0)
		}
	}
}

func (l *Link) runRx(beats <-chan phy.Beat) {
	for b := range beats {
		if err := l.rx.OnLaneInput(l.dec.Decode(b)); err != nil {
			l.logger.Warn("rx resynchronizing", ports.Err(err))
		}
		l.rxCycles.Add(1)
	}
}

func (l *Link) supervise(ctx context.Context, done chan struct{}, cancel context.CancelFunc) {
	l.lc.Wait()
	canceled := ctx.Err() != nil
	cancel()

	if err := l.Err(); err != nil {
		_ = l.lc.TransitionTo(StateCrashed, err.Error())
	} else {
		reason := "cycle budget spent"
		if canceled {
			reason = "canceled"
		}
		if l.lc.State() == StateRunning {
			_ = l.lc.TransitionTo(StateStopping, reason)
		}
		_ = l.lc.TransitionTo(StateStopped, "domains exited")
	}
	st := l.Status()
	l.logger.Info("link stopped",
		ports.Uint64("tx_cycles", st.TxCycles),
		ports.Uint64("frames_sent", st.Tx.FramesSent),
		ports.Uint64("frames_received", st.Rx.FramesReceived),
		ports.Uint64("errors", st.Tx.Errors()+st.Rx.Errors()),
	)
	close(done)
}

func (l *Link) fail(err error) {
	l.runMu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.runMu.Unlock()
	l.logger.Error("link failed", ports.Err(err))
}
