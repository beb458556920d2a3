// Package ethlink models an Ethernet MAC framing pipeline cycle by cycle.
//
// A Link pairs a transmit pipeline, which turns frames into preamble, data,
// padding and FCS symbols spread over 1 to 8 lanes, with a receive pipeline
// that delimits those symbols back into checked frames. The two pipelines run
// in separate clock domains connected through a GMII or XGMII style encoding.
//
// Example usage:
//
//	cfg := ethlink.DefaultConfig()
//	cfg.Cycles = 10000
//	link, err := ethlink.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = link.Send(ethlink.Frame{Data: payload}, false)
//	if err := link.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	_ = link.Wait(ctx)
//	frames, _ := link.Received()
package ethlink

import (
	"context"
	"fmt"
	"sync"
	"time"

	logadapter "github.com/bft-labs/ethlink/internal/adapters/log"
	"github.com/bft-labs/ethlink/internal/app"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/ports"
	"github.com/bft-labs/ethlink/internal/trace"
)

type (
	// Frame is a payload plus its error tag.
	Frame = domain.Frame
	// Stats holds the counters of one direction of a link.
	Stats = domain.Stats
	// Logger is the interface for structured logging.
	Logger = ports.Logger
	// LogField is a structured log field.
	LogField = ports.Field
	// FrameEvent describes a frame that crossed a pipeline boundary.
	FrameEvent = ports.FrameEvent
	// ErrorEvent describes a dropped or terminated frame.
	ErrorEvent = ports.ErrorEvent
	// State is the lifecycle state of a link.
	State = app.State
	// TraceFormat selects the encoding of a beat trace.
	TraceFormat = trace.Format
)

// Lifecycle states.
const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Trace encodings.
const (
	TraceJSON    = trace.FormatJSON
	TraceMsgpack = trace.FormatMsgpack
)

// Errors re-exported for errors.Is checks.
var (
	ErrInvalidConfig  = domain.ErrInvalidConfig
	ErrAlreadyRunning = domain.ErrAlreadyRunning
	ErrNotRunning     = domain.ErrNotRunning
	ErrEmptyFrame     = domain.ErrEmptyFrame
)

// Config configures a Link.
type Config struct {
	// LaneWidth is the number of lanes: 1 selects GMII, 2, 4 or 8 XGMII.
	LaneWidth int
	// StreamWidth is the byte width of stream words. Defaults to LaneWidth.
	StreamWidth int
	// IFG is the average inter-frame gap in lane slots. Zero sends frames
	// back to back.
	IFG      int
	TxEnable bool
	// MaxFrameSize bounds a received frame, FCS excluded.
	MaxFrameSize int
	// ForwardBadFrames delivers frames failing the FCS check with Err set.
	ForwardBadFrames bool
	// ClockPeriod paces the transmit domain. Zero runs it unpaced.
	ClockPeriod time.Duration
	// Cycles stops the link after that many transmit cycles. Zero runs
	// until Stop.
	Cycles uint64
}

// DefaultConfig returns a 10G-style configuration: 8 lanes, 12 slot gap.
func DefaultConfig() Config {
	return Config{
		LaneWidth:    8,
		IFG:          12,
		TxEnable:     true,
		MaxFrameSize: 9600,
	}
}

// Link is a full-duplex loopback of a transmit and a receive pipeline.
// Use New to create one, then Start.
type Link struct {
	cfg     Config
	link    *app.Link
	logger  ports.Logger
	plugins []Plugin
	trace   *trace.Writer

	mu      sync.Mutex
	started []Plugin
}

// New creates a stopped link.
func New(cfg Config, opts ...Option) (*Link, error) {
	if cfg.IFG < 0 {
		return nil, fmt.Errorf("ifg %d: %w", cfg.IFG, domain.ErrInvalidConfig)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logadapter.NewNoopLogger()
	}

	var (
		events  ports.EventHandler = ports.NoopEvents{}
		emitter app.EventEmitter
	)
	if o.eventHandler != nil {
		events = o.eventHandler
		emitter = stateEmitter{handler: o.eventHandler}
	}

	link, err := app.NewLink(app.LinkConfig{
		LaneWidth:        cfg.LaneWidth,
		StreamWidth:      cfg.StreamWidth,
		IFG:              cfg.IFG,
		TxEnable:         cfg.TxEnable,
		MaxFrameSize:     cfg.MaxFrameSize,
		ForwardBadFrames: cfg.ForwardBadFrames,
		ClockPeriod:      cfg.ClockPeriod,
		Cycles:           cfg.Cycles,
	}, logger, events, emitter)
	if err != nil {
		return nil, err
	}

	l := &Link{
		cfg:     cfg,
		link:    link,
		logger:  logger,
		plugins: o.plugins,
	}
	if o.traceOut != nil {
		w, err := trace.NewWriter(o.traceOut, o.traceFormat, trace.Header{
			Width: cfg.LaneWidth,
			PHY:   link.PHY(),
		})
		if err != nil {
			return nil, err
		}
		l.trace = w
		link.SetRecorder(w)
	}
	return l, nil
}

// Start launches both clock domains, then initializes plugins in
// registration order. A plugin failure stops the link again.
func (l *Link) Start(ctx context.Context) error {
	if err := l.link.Start(ctx); err != nil {
		return err
	}

	pcfg := PluginConfig{Link: l, Logger: l.logger}
	for _, p := range l.plugins {
		if err := p.Initialize(ctx, pcfg); err != nil {
			l.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			l.shutdownPlugins()
			_ = l.link.Stop()
			return fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		l.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
		l.mu.Lock()
		l.started = append(l.started, p)
		l.mu.Unlock()
	}
	return nil
}

// Stop shuts plugins down in reverse order and stops both domains.
func (l *Link) Stop() error {
	l.shutdownPlugins()
	return l.link.Stop()
}

// Wait blocks until the link stops on its own, for instance when the cycle
// budget is spent, then shuts plugins down.
func (l *Link) Wait(ctx context.Context) error {
	err := l.link.Wait(ctx)
	if ctx.Err() == nil {
		l.shutdownPlugins()
	}
	return err
}

// Flush blocks until every frame sent so far has been received.
func (l *Link) Flush(ctx context.Context) error { return l.link.Flush(ctx) }

// Send queues a frame. errFlag forces the frame to be terminated with an
// error symbol.
func (l *Link) Send(frame Frame, errFlag bool) error { return l.link.Send(frame, errFlag) }

// Received returns the frames delivered since the last call.
func (l *Link) Received() ([]Frame, error) { return l.link.Received() }

// SetIFG changes the inter-frame gap from the next frame on.
func (l *Link) SetIFG(ifg int) {
	l.link.SetIFG(ifg)
	l.logger.Info("ifg changed", ports.Int("ifg", ifg))
}

// SetTxEnable gates the start of new frames.
func (l *Link) SetTxEnable(enable bool) {
	l.link.SetTxEnable(enable)
	l.logger.Info("tx enable changed", ports.Bool("enable", enable))
}

// Status returns the current lifecycle state.
func (l *Link) Status() State { return l.link.Status().State }

// TxStats returns the transmit counters.
func (l *Link) TxStats() Stats { return l.link.TxStats() }

// RxStats returns the receive counters.
func (l *Link) RxStats() Stats { return l.link.RxStats() }

// Cycles returns the number of transmit and receive cycles of the current run.
func (l *Link) Cycles() (tx, rx uint64) {
	st := l.link.Status()
	return st.TxCycles, st.RxCycles
}

// PHY names the interface encoding, "gmii" or "xgmii".
func (l *Link) PHY() string { return l.link.PHY() }

// TraceRecords returns the number of beats written to the trace.
func (l *Link) TraceRecords() uint64 {
	if l.trace == nil {
		return 0
	}
	return l.trace.Count()
}

func (l *Link) shutdownPlugins() {
	l.mu.Lock()
	started := l.started
	l.started = nil
	l.mu.Unlock()

	ctx := context.Background()
	for i := len(started) - 1; i >= 0; i-- {
		p := started[i]
		if err := p.Shutdown(ctx); err != nil {
			l.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			l.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}
