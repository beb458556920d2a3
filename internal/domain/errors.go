package domain

import "errors"

// Domain errors represent error conditions in the ethlink domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrEmptyFrame is returned when a zero-length frame reaches the stream boundary.
	ErrEmptyFrame = errors.New("ethlink: empty frame")

	// ErrShortFrame is returned when a received frame is too short to carry an FCS.
	ErrShortFrame = errors.New("ethlink: frame shorter than FCS")

	// ErrMalformedFrame is reported when a received frame is badly delimited:
	// missing preamble or terminate, or a start symbol inside a frame.
	ErrMalformedFrame = errors.New("ethlink: malformed frame delimiting")

	// ErrFCSMismatch is reported when a received frame's trailer does not validate.
	ErrFCSMismatch = errors.New("ethlink: FCS mismatch")

	// ErrUnderrun is reported when the transmit source starves mid-frame.
	ErrUnderrun = errors.New("ethlink: transmit underrun")

	// ErrTxError is reported when a frame is transmitted with its error tag set.
	ErrTxError = errors.New("ethlink: transmit error injected")

	// ErrRxError is reported when a received frame is terminated by an error symbol.
	ErrRxError = errors.New("ethlink: receive error symbol")

	// ErrFrameDesync is returned when no end marker is seen within the maximum
	// frame size. The receiver drops the frame and hunts for the next start.
	ErrFrameDesync = errors.New("ethlink: framing desynchronization")

	// ErrHeaderTruncated is reported when a frame is too short to carry an Ethernet header.
	ErrHeaderTruncated = errors.New("ethlink: truncated ethernet header")

	// ErrUARTFraming is reported when a UART stop bit is not high.
	ErrUARTFraming = errors.New("ethlink: uart framing error")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("ethlink: invalid configuration")

	// ErrAlreadyRunning is returned when Start() is called on a running link.
	ErrAlreadyRunning = errors.New("ethlink: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped link.
	ErrNotRunning = errors.New("ethlink: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("ethlink: shutdown timeout")
)
