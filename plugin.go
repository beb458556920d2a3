package ethlink

import (
	"context"

	"github.com/bft-labs/ethlink/internal/app"
)

// Plugin extends a Link with optional behavior.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string
	// Initialize is called after the link has started.
	Initialize(ctx context.Context, cfg PluginConfig) error
	// Shutdown is called before the link stops.
	Shutdown(ctx context.Context) error
}

// Reconfigurer is the part of a Link a plugin may change at run time.
type Reconfigurer interface {
	SetIFG(ifg int)
	SetTxEnable(enable bool)
}

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	Link   Reconfigurer
	Logger Logger
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives link events. Implementations must be safe for
// concurrent use and return quickly.
type EventHandler interface {
	OnStateChange(ev StateChangeEvent)
	OnFrameSent(ev FrameEvent)
	OnFrameReceived(ev FrameEvent)
	OnFrameError(ev ErrorEvent)
}

// NoopEventHandler ignores every event. Embed it to handle a subset.
type NoopEventHandler struct{}

func (NoopEventHandler) OnStateChange(StateChangeEvent) {}
func (NoopEventHandler) OnFrameSent(FrameEvent)         {}
func (NoopEventHandler) OnFrameReceived(FrameEvent)     {}
func (NoopEventHandler) OnFrameError(ErrorEvent)        {}

type stateEmitter struct {
	handler EventHandler
}

func (e stateEmitter) OnStateChange(previous, current app.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

var _ Reconfigurer = (*Link)(nil)
