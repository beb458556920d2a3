// Package codec computes and checks the Ethernet frame check sequence and
// enforces the minimum frame length.
//
// The FCS is CRC-32/Ethernet: polynomial 0x04C11DB7 reflected, initial value
// and final XOR 0xFFFFFFFF, transmitted least significant byte first.
package codec

import (
	"encoding/binary"
	"hash"
	"hash/crc32"

	"github.com/bft-labs/ethlink/internal/domain"
)

// Residual is the CRC-32 of any frame followed by its correct FCS.
const Residual uint32 = 0x2144DF1C

// Checksum returns the FCS of b.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// Pad returns payload zero-padded to the minimum frame length.
// The input is returned unchanged when it is already long enough.
func Pad(payload []byte) []byte {
	if len(payload) >= domain.MinFrameLen {
		return payload
	}
	out := make([]byte, domain.MinFrameLen)
	copy(out, payload)
	return out
}

// AppendFCS pads payload to the minimum frame length and appends its FCS.
// The result has length max(60, len(payload)) + 4. payload is not modified.
func AppendFCS(payload []byte) []byte {
	n := len(payload)
	if n < domain.MinFrameLen {
		n = domain.MinFrameLen
	}
	out := make([]byte, n, n+domain.FCSLen)
	copy(out, payload)
	return binary.LittleEndian.AppendUint32(out, Checksum(out))
}

// StripAndValidateFCS splits the trailer off a received frame.
// valid reports whether the CRC over the whole frame, trailer included,
// equals the residual. Frames shorter than the trailer are invalid.
func StripAndValidateFCS(frame []byte) (payload []byte, valid bool) {
	if len(frame) < domain.FCSLen {
		return nil, false
	}
	payload = frame[:len(frame)-domain.FCSLen]
	return payload, Checksum(frame) == Residual
}

// Digest computes an FCS incrementally, one byte at a time as the transmit
// path places bytes on the lanes.
type Digest struct {
	h hash.Hash32
	n int
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	return &Digest{h: crc32.NewIEEE()}
}

// WriteByte adds b to the checksum. It never fails.
func (d *Digest) WriteByte(b byte) error {
	d.h.Write([]byte{b})
	d.n++
	return nil
}

// Write adds p to the checksum. It never fails.
func (d *Digest) Write(p []byte) (int, error) {
	d.n += len(p)
	return d.h.Write(p)
}

// Len returns the number of bytes written since the last reset.
func (d *Digest) Len() int {
	return d.n
}

// Sum returns the FCS of the bytes written so far.
func (d *Digest) Sum() uint32 {
	return d.h.Sum32()
}

// Trailer returns the FCS in transmission order.
func (d *Digest) Trailer() [domain.FCSLen]byte {
	var t [domain.FCSLen]byte
	binary.LittleEndian.PutUint32(t[:], d.Sum())
	return t
}

// Reset clears the digest for the next frame.
func (d *Digest) Reset() {
	d.h.Reset()
	d.n = 0
}
