package ethhdr

import (
	"fmt"
	"sync"

	logadapter "github.com/bft-labs/ethlink/internal/adapters/log"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/ports"
	"github.com/bft-labs/ethlink/internal/stream"
)

// Splitter consumes frames as stream words and produces, per frame, a header
// on its header queue and the remaining bytes on its payload stream,
// repacked to the stream width.
//
// A frame that ends before any payload byte follows the header is dropped
// with domain.ErrHeaderTruncated and nothing is emitted for it. The header is
// emitted with the first payload byte, so at least one payload byte is held
// back until the frame's last word is seen.
type Splitter struct {
	width   int
	payload *stream.Queue
	logger  ports.Logger

	hmu     sync.Mutex
	headers []Header

	hdr     []byte
	pending []byte
	emitted bool
	sent    bool
	active  bool
	user    bool

	frames    uint64
	truncated uint64
}

// NewSplitter creates a splitter producing payload words of width bytes.
func NewSplitter(width int, logger ports.Logger) *Splitter {
	if width <= 0 {
		width = 1
	}
	if logger == nil {
		logger = logadapter.NewNoopLogger()
	}
	return &Splitter{
		width:   width,
		payload: stream.NewQueue(width),
		logger:  logger,
		hdr:     make([]byte, 0, domain.HeaderLen),
	}
}

// Payload returns the payload stream.
func (s *Splitter) Payload() *stream.Queue { return s.payload }

// NextHeader pops the oldest header.
func (s *Splitter) NextHeader() (Header, bool) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	if len(s.headers) == 0 {
		return Header{}, false
	}
	h := s.headers[0]
	s.headers = s.headers[1:]
	return h, true
}

// Headers returns the number of queued headers.
func (s *Splitter) Headers() int {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return len(s.headers)
}

// Counts returns the number of frames split and dropped as truncated.
func (s *Splitter) Counts() (frames, truncated uint64) {
	return s.frames, s.truncated
}

// Stats returns the split frames and truncated headers as counters.
func (s *Splitter) Stats() domain.Stats {
	return domain.Stats{FramesReceived: s.frames, HeaderErrors: s.truncated}
}

// Push consumes one word.
func (s *Splitter) Push(w domain.StreamWord) error {
	if w.Start && s.active {
		s.abort()
	}
	s.active = true
	s.user = s.user || w.User

	for _, b := range w.Bytes() {
		if len(s.hdr) < domain.HeaderLen {
			s.hdr = append(s.hdr, b)
			continue
		}
		if !s.emitted {
			s.emitHeader()
		}
		s.pending = append(s.pending, b)
		if len(s.pending) > s.width {
			s.flush(s.width, false)
		}
	}

	if !w.Last {
		return nil
	}
	defer s.reset()

	if !s.emitted {
		s.truncated++
		s.logger.Warn("frame shorter than header dropped", ports.Int("length", len(s.hdr)))
		return fmt.Errorf("frame of %d bytes: %w", len(s.hdr), domain.ErrHeaderTruncated)
	}
	for len(s.pending) > s.width {
		s.flush(s.width, false)
	}
	s.flush(len(s.pending), true)
	s.frames++
	return nil
}

// Drain pushes every word src has ready. It returns the first error but
// keeps consuming.
func (s *Splitter) Drain(src ports.StreamSource) error {
	var first error
	for {
		w, ok := src.Next()
		if !ok {
			return first
		}
		if err := s.Push(w); err != nil && first == nil {
			first = err
		}
	}
}

func (s *Splitter) emitHeader() {
	h, _ := ParseHeader(s.hdr)
	s.hmu.Lock()
	s.headers = append(s.headers, h)
	s.hmu.Unlock()
	s.emitted = true
}

func (s *Splitter) flush(n int, last bool) {
	data := make([]byte, s.width)
	copy(data, s.pending[:n])
	s.payload.Push(domain.StreamWord{
		Data:  data,
		Keep:  n,
		Start: !s.sent,
		Last:  last,
		User:  last && s.user,
	})
	s.pending = s.pending[n:]
	s.sent = true
}

// abort ends a frame cut short by a new start. A payload already under way
// is terminated with the error tag so that headers and payloads stay paired.
func (s *Splitter) abort() {
	s.logger.Debug("header splitter restarted mid-frame", ports.Int("header_bytes", len(s.hdr)))
	if s.emitted {
		s.user = true
		s.flush(len(s.pending), true)
	}
	s.reset()
}

func (s *Splitter) reset() {
	s.hdr = s.hdr[:0]
	s.pending = nil
	s.emitted, s.sent, s.active, s.user = false, false, false, false
}
