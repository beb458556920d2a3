// Package payload generates the test payload patterns used to exercise the
// pipelines: an incrementing byte count and a PRBS31 sequence.
package payload

// Incrementing returns n bytes counting up from zero and wrapping at 256.
func Incrementing(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// PRBS31 is a pseudo-random bit sequence generator, x^31 + x^28 + 1,
// producing one byte per call.
type PRBS31 struct {
	state uint32
}

// NewPRBS31 returns a generator seeded with state. A zero seed locks the
// register, so it is replaced by the all-ones seed.
func NewPRBS31(state uint32) *PRBS31 {
	state &= 0x7fffffff
	if state == 0 {
		state = 0x7fffffff
	}
	return &PRBS31{state: state}
}

// Byte returns the next eight bits of the sequence.
func (p *PRBS31) Byte() byte {
	for i := 0; i < 8; i++ {
		fb := (p.state>>27)&1 ^ (p.state>>30)&1
		p.state = (p.state&0x3fffffff)<<1 | fb
	}
	return byte(p.state)
}

// Read fills b. It never fails.
func (p *PRBS31) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = p.Byte()
	}
	return len(b), nil
}

// PRBS returns n bytes from a fresh generator with the default seed.
func PRBS(n int) []byte {
	b := make([]byte, n)
	_, _ = NewPRBS31(0x7fffffff).Read(b)
	return b
}

// Kind names a payload pattern.
type Kind string

const (
	KindIncrementing Kind = "incrementing"
	KindPRBS         Kind = "prbs"
)

// Generate returns n bytes of the named pattern. Unknown kinds fall back to
// incrementing.
func Generate(kind Kind, n int) []byte {
	if kind == KindPRBS {
		return PRBS(n)
	}
	return Incrementing(n)
}

// SizeList returns the frame lengths of the standard transmit sweep:
// every length from 60 to 127, a few large and jumbo frames, then ten
// minimum-size frames.
func SizeList(jumbo bool) []int {
	var sizes []int
	for n := 60; n < 128; n++ {
		sizes = append(sizes, n)
	}
	sizes = append(sizes, 512, 1514)
	if jumbo {
		sizes = append(sizes, 9214)
	}
	for i := 0; i < 10; i++ {
		sizes = append(sizes, 60)
	}
	return sizes
}

// ShortSizeList returns the lengths used for padding and UART sweeps:
// 1 to 15 and 128.
func ShortSizeList() []int {
	var sizes []int
	for n := 1; n < 16; n++ {
		sizes = append(sizes, n)
	}
	return append(sizes, 128)
}
