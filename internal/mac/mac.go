// Package mac implements the transmit and receive framing pipelines between
// the stream boundary and the lane interface.
//
// Both pipelines are cycle driven: the caller advances them one clock cycle
// at a time and they never block. Tx owns one lane.Pacer; Rx owns the frame
// delimiting state. Neither shares state with the other.
package mac

import (
	logadapter "github.com/bft-labs/ethlink/internal/adapters/log"
	"github.com/bft-labs/ethlink/internal/ports"
)

// DefaultMaxFrameSize bounds a received frame, FCS excluded, when RxConfig
// leaves it unset.
const DefaultMaxFrameSize = 9600

func orNop(logger ports.Logger, events ports.EventHandler) (ports.Logger, ports.EventHandler) {
	if logger == nil {
		logger = logadapter.NewNoopLogger()
	}
	if events == nil {
		events = ports.NoopEvents{}
	}
	return logger, events
}
