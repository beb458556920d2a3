package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func incrementing(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestChecksum_KnownVector(t *testing.T) {
	if got := Checksum([]byte("123456789")); got != 0xCBF43926 {
		t.Errorf("Checksum(123456789) = %#08x, want 0xcbf43926", got)
	}
}

func TestAppendFCS_Padding(t *testing.T) {
	for _, n := range []int{1, 32, 56, 57, 58, 59, 60, 62, 63, 65, 128, 1514} {
		payload := incrementing(n)
		out := AppendFCS(payload)

		wantLen := n
		if wantLen < 60 {
			wantLen = 60
		}
		wantLen += 4
		if len(out) != wantLen {
			t.Errorf("len(AppendFCS(%d)) = %d, want %d", n, len(out), wantLen)
			continue
		}
		if !bytes.Equal(out[:n], payload) {
			t.Errorf("AppendFCS(%d) altered payload", n)
		}
		for i := n; i < len(out)-4; i++ {
			if out[i] != 0 {
				t.Errorf("AppendFCS(%d) pad byte %d = %#x, want 0", n, i, out[i])
				break
			}
		}
		if _, ok := StripAndValidateFCS(out); !ok {
			t.Errorf("AppendFCS(%d) does not validate", n)
		}
	}
}

func TestAppendFCS_NoPaddingAtMinimum(t *testing.T) {
	payload := incrementing(60)
	out := AppendFCS(payload)

	if len(out) != 64 {
		t.Fatalf("len = %d, want 64", len(out))
	}
	fcs := binary.LittleEndian.Uint32(out[60:])
	if fcs != Checksum(payload) {
		t.Errorf("trailer = %#08x, want %#08x", fcs, Checksum(payload))
	}
	if !bytes.Equal(out[:60], payload) {
		t.Error("payload altered")
	}
}

func TestStripAndValidateFCS(t *testing.T) {
	good := AppendFCS(incrementing(70))

	corrupt := append([]byte(nil), good...)
	corrupt[10] ^= 0x01

	badTrailer := append([]byte(nil), good...)
	badTrailer[len(badTrailer)-1] ^= 0x80

	tests := []struct {
		name      string
		frame     []byte
		wantValid bool
		wantLen   int
	}{
		{"valid", good, true, 70},
		{"corrupt payload", corrupt, false, 70},
		{"corrupt trailer", badTrailer, false, 70},
		{"too short", []byte{1, 2, 3}, false, 0},
		{"zero-length payload", []byte{0, 0, 0, 0}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, valid := StripAndValidateFCS(tt.frame)
			if valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", valid, tt.wantValid)
			}
			if len(payload) != tt.wantLen {
				t.Errorf("len(payload) = %d, want %d", len(payload), tt.wantLen)
			}
		})
	}
}

func TestStripAndValidateFCS_Idempotent(t *testing.T) {
	for _, n := range []int{1, 20, 59, 60, 61, 200} {
		payload := incrementing(n)
		got, valid := StripAndValidateFCS(AppendFCS(payload))
		if !valid {
			t.Errorf("n=%d: not valid", n)
		}
		if !bytes.Equal(got, Pad(payload)) {
			t.Errorf("n=%d: payload = %x, want %x", n, got, Pad(payload))
		}
	}
}

func TestDigest_MatchesChecksum(t *testing.T) {
	payload := incrementing(100)
	d := NewDigest()
	for _, b := range payload[:50] {
		_ = d.WriteByte(b)
	}
	_, _ = d.Write(payload[50:])

	if d.Len() != 100 {
		t.Errorf("Len() = %d, want 100", d.Len())
	}
	if d.Sum() != Checksum(payload) {
		t.Errorf("Sum() = %#08x, want %#08x", d.Sum(), Checksum(payload))
	}
	tr := d.Trailer()
	if !bytes.Equal(tr[:], AppendFCS(payload)[100:]) {
		t.Errorf("Trailer() = %x, want %x", tr, AppendFCS(payload)[100:])
	}

	d.Reset()
	if d.Len() != 0 || d.Sum() != Checksum(nil) {
		t.Error("Reset() did not clear digest")
	}
}
