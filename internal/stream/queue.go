package stream

import (
	"sync"

	"github.com/bft-labs/ethlink/internal/domain"
)

// Queue is a FIFO of stream words with ready/valid semantics on its output.
// It implements ports.StreamSource and ports.StreamSink and is safe for use
// across clock domains.
type Queue struct {
	mu     sync.Mutex
	words  []domain.StreamWord
	width  int
	paused bool

	pattern []bool
	pos     int
}

// NewQueue creates an empty queue segmenting frames into words of width bytes.
func NewQueue(width int) *Queue {
	if width <= 0 {
		width = 1
	}
	return &Queue{width: width}
}

// Width returns the word width used by PushFrame.
func (q *Queue) Width() int { return q.width }

// Push appends words.
func (q *Queue) Push(words ...domain.StreamWord) {
	q.mu.Lock()
	q.words = append(q.words, words...)
	q.mu.Unlock()
}

// PushFrame segments a frame and appends its words.
// Empty frames are rejected.
func (q *Queue) PushFrame(f domain.Frame) error {
	if len(f.Data) == 0 {
		return domain.ErrEmptyFrame
	}
	q.Push(Segment(f, q.width)...)
	return nil
}

// Next implements ports.StreamSource. It returns false when the queue is
// empty, paused, or the pause generator holds valid low for this call.
func (q *Queue) Next() (domain.StreamWord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.paused || len(q.words) == 0 {
		return domain.StreamWord{}, false
	}
	if len(q.pattern) > 0 {
		hold := q.pattern[q.pos]
		q.pos = (q.pos + 1) % len(q.pattern)
		if hold {
			return domain.StreamWord{}, false
		}
	}
	w := q.words[0]
	q.words[0] = domain.StreamWord{}
	q.words = q.words[1:]
	return w, true
}

// SetPaused holds the output invalid until cleared.
func (q *Queue) SetPaused(paused bool) {
	q.mu.Lock()
	q.paused = paused
	q.mu.Unlock()
}

// SetPauseGenerator installs a cyclic pause pattern; true entries hold the
// output invalid for one Next call. A nil pattern removes it.
func (q *Queue) SetPauseGenerator(pattern []bool) {
	q.mu.Lock()
	q.pattern = append([]bool(nil), pattern...)
	q.pos = 0
	q.mu.Unlock()
}

// Len returns the number of queued words.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.words)
}

// Empty reports whether the queue holds no words.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Clear drops all queued words.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.words = nil
	q.mu.Unlock()
}
