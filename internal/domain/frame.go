package domain

// Wire constants shared by the transmit and receive paths.
const (
	// MinFrameLen is the minimum frame length excluding the FCS.
	MinFrameLen = 60

	// FCSLen is the length of the frame check sequence trailer.
	FCSLen = 4

	// PreambleLen is the length of preamble plus SFD. On the lane interface the
	// first preamble byte is replaced by the start symbol.
	PreambleLen = 8

	// PreambleByte fills the preamble.
	PreambleByte = 0x55

	// SFD is the start frame delimiter, the last byte of the preamble.
	SFD = 0xD5

	// HeaderLen is the length of the destination, source and type fields.
	HeaderLen = 14
)

// Frame is an ordered sequence of bytes moving through a pipeline.
// It is created by a producer and dropped once emitted to the opposite boundary.
type Frame struct {
	// Data holds the header and payload, without FCS unless stated otherwise
	Data []byte

	// Err is the per-frame user tag: the frame carries a transmit or receive error
	Err bool
}

// Len returns the number of bytes in the frame.
func (f Frame) Len() int {
	return len(f.Data)
}

// StreamWord is one beat of the byte-stream boundary.
type StreamWord struct {
	// Data is the full-width data bus; only the first Keep bytes are valid
	Data []byte

	// Keep is the number of valid bytes, the full width except on the last word
	Keep int

	// Start marks the first word of a frame
	Start bool

	// Last marks the final word of a frame
	Last bool

	// User is the error tag; set on any word it marks the whole frame
	User bool
}

// Bytes returns the valid bytes of the word.
func (w StreamWord) Bytes() []byte {
	if w.Keep > len(w.Data) {
		return w.Data
	}
	return w.Data[:w.Keep]
}
