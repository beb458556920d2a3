package domain

// Stats counts frames and errors observed by a pipeline.
// Every dropped or terminated frame increments exactly one error counter.
type Stats struct {
	FramesSent     uint64
	BytesSent      uint64
	FramesReceived uint64
	BytesReceived  uint64

	// Underruns counts frames terminated because the source stalled
	Underruns uint64
	// TxErrors counts frames transmitted with the error tag set
	TxErrors uint64

	FCSErrors uint64
	// RxErrors counts frames terminated by an error symbol
	RxErrors uint64
	// Desyncs counts frames dropped for exceeding the maximum frame size
	Desyncs uint64
	// Malformed counts frames dropped for bad delimiting: missing preamble or
	// terminate, too short to hold an FCS, or an empty frame offered to Tx
	Malformed uint64

	HeaderErrors uint64
	UARTFraming  uint64
}

// Errors returns the total of all error counters.
func (s Stats) Errors() uint64 {
	return s.Underruns + s.TxErrors + s.FCSErrors + s.RxErrors + s.Desyncs + s.Malformed + s.HeaderErrors + s.UARTFraming
}
