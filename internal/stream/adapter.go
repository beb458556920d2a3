// Package stream converts between frames and the word-oriented stream
// boundary, and provides the ready/valid queues that sit on that boundary.
package stream

import (
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/ports"
)

// Segment splits a frame into words of width bytes. The last word carries
// the valid-byte count and the frame's error tag. An empty frame yields no words.
func Segment(frame domain.Frame, width int) []domain.StreamWord {
	if width <= 0 {
		width = 1
	}
	n := len(frame.Data)
	if n == 0 {
		return nil
	}
	words := make([]domain.StreamWord, 0, (n+width-1)/width)
	for off := 0; off < n; off += width {
		data := make([]byte, width)
		keep := copy(data, frame.Data[off:])
		last := off+width >= n
		words = append(words, domain.StreamWord{
			Data:  data,
			Keep:  keep,
			Start: off == 0,
			Last:  last,
			User:  last && frame.Err,
		})
	}
	return words
}

// Assembler rebuilds frames from stream words.
type Assembler struct {
	buf    []byte
	user   bool
	active bool
}

// Push adds one word. It returns the completed frame and true on the last word.
// A zero-length frame is rejected with domain.ErrEmptyFrame. A start marker
// inside a frame discards the partial frame and begins a new one.
func (a *Assembler) Push(w domain.StreamWord) (domain.Frame, bool, error) {
	if w.Start && a.active {
		a.reset()
	}
	a.active = true
	a.buf = append(a.buf, w.Bytes()...)
	a.user = a.user || w.User

	if !w.Last {
		return domain.Frame{}, false, nil
	}

	data, user := a.buf, a.user
	a.buf, a.user, a.active = nil, false, false
	if len(data) == 0 {
		return domain.Frame{}, false, domain.ErrEmptyFrame
	}
	return domain.Frame{Data: data, Err: user}, true, nil
}

// Pending returns the number of bytes of the frame in progress.
func (a *Assembler) Pending() int {
	return len(a.buf)
}

func (a *Assembler) reset() {
	a.buf = nil
	a.user = false
	a.active = false
}

// Collect drains every complete frame from src. Words of an incomplete
// trailing frame stay in the assembler.
func (a *Assembler) Collect(src ports.StreamSource) ([]domain.Frame, error) {
	var frames []domain.Frame
	for {
		w, ok := src.Next()
		if !ok {
			return frames, nil
		}
		f, done, err := a.Push(w)
		if err != nil {
			return frames, err
		}
		if done {
			frames = append(frames, f)
		}
	}
}
