package phy

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/bft-labs/ethlink/internal/codec"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/mac"
	"github.com/bft-labs/ethlink/internal/payload"
	"github.com/bft-labs/ethlink/internal/stream"
)

func TestNew(t *testing.T) {
	tests := []struct {
		width   int
		want    string
		wantErr bool
	}{
		{1, "gmii", false},
		{2, "xgmii", false},
		{4, "xgmii", false},
		{8, "xgmii", false},
		{3, "", true},
		{16, "", true},
	}
	for _, tt := range tests {
		c, err := New(tt.width)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("New(%d) error = %v, want ErrInvalidConfig", tt.width, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%d) error = %v", tt.width, err)
		}
		if c.Name() != tt.want || c.Width() != tt.width {
			t.Errorf("New(%d) = %s/%d, want %s/%d", tt.width, c.Name(), c.Width(), tt.want, tt.width)
		}
	}
}

func TestXGMII_Encode(t *testing.T) {
	x := NewXGMII(8)
	w := domain.LaneWord{
		domain.Data(0xD5), domain.Data(0x01), domain.Data(0x02), domain.End,
		domain.Idle, domain.Idle, domain.Idle, domain.Idle,
	}
	b := x.Encode(w)
	if b.Data != 0x07070707fd0201d5 {
		t.Errorf("Data = %#x, want 0x07070707fd0201d5", b.Data)
	}
	if b.Ctrl != 0xf8 {
		t.Errorf("Ctrl = %#x, want 0xf8", b.Ctrl)
	}
	if got := b.String(); got != "07070707fd0201d5/f8" {
		t.Errorf("String() = %q", got)
	}
}

func TestXGMII_RoundTrip(t *testing.T) {
	x := NewXGMII(4)
	words := []domain.LaneWord{
		{domain.Start, domain.Data(0x55), domain.Data(0x55), domain.Data(0x55)},
		{domain.Data(0x07), domain.Data(0xfb), domain.Error, domain.End},
		domain.IdleWord(4),
	}
	for i, w := range words {
		got := x.Decode(x.Encode(w))
		if fmt.Sprint(got) != fmt.Sprint(w) {
			t.Errorf("word %d: got %v, want %v", i, got, w)
		}
	}
}

func TestXGMII_UnknownControl(t *testing.T) {
	x := NewXGMII(2)
	got := x.Decode(Beat{Data: 0x9c07, Ctrl: 0x3})
	if got[0] != domain.Idle || got[1] != domain.Error {
		t.Errorf("Decode() = %v, want [Idle Error]", got)
	}
}

func TestGMII_Sequence(t *testing.T) {
	g := &GMII{}
	in := []domain.Symbol{
		domain.Idle, domain.Start, domain.Data(0x55), domain.Data(0xD5),
		domain.Data(0x10), domain.Error, domain.End, domain.Idle,
		domain.Start, domain.Data(0xD5), domain.End,
	}
	wantBeats := []Beat{
		{}, {0x55, GMIIEnable}, {0x55, GMIIEnable}, {0xD5, GMIIEnable},
		{0x10, GMIIEnable}, {0, GMIIEnable | GMIIError}, {}, {},
		{0x55, GMIIEnable}, {0xD5, GMIIEnable}, {},
	}

	for i, s := range in {
		b := g.Encode(domain.LaneWord{s})
		if b != wantBeats[i] {
			t.Errorf("Encode(%v) = %v, want %v", s, b, wantBeats[i])
		}
		got := g.Decode(b)
		if got[0] != s {
			t.Errorf("symbol %d: decoded %v, want %v", i, got[0], s)
		}
	}
}

func TestGMII_Reset(t *testing.T) {
	g := &GMII{}
	g.Decode(Beat{Data: 0x55, Ctrl: GMIIEnable})
	g.Reset()
	if got := g.Decode(Beat{Data: 0x55, Ctrl: GMIIEnable}); got[0] != domain.Start {
		t.Errorf("after Reset decoded %v, want Start", got[0])
	}
}

// Frames survive the full path through the interface encoding.
func TestCodec_ThroughMAC(t *testing.T) {
	for _, width := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("width %d", width), func(t *testing.T) {
			enc, _ := New(width)
			dec, _ := New(width)
			tx, err := mac.NewTx(mac.TxConfig{LaneWidth: width, IFG: 12, TxEnable: true, StreamWidth: width}, nil, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			rx := mac.NewRx(mac.RxConfig{StreamWidth: width}, nil, nil)

			sizes := []int{1, 60, 77}
			for _, n := range sizes {
				_ = tx.Accept(domain.Frame{Data: payload.PRBS(n)}, false)
			}
			for i := 0; i < 2000; i++ {
				if err := rx.OnLaneInput(dec.Decode(enc.Encode(tx.Tick()))); err != nil {
					t.Fatalf("OnLaneInput() error = %v", err)
				}
			}
			if got := rx.Stats().FramesReceived; got != uint64(len(sizes)) {
				t.Fatalf("FramesReceived = %d, want %d (stats %+v)", got, len(sizes), rx.Stats())
			}
			var asm stream.Assembler
			got, err := asm.Collect(rx.Output())
			if err != nil {
				t.Fatal(err)
			}
			for i, n := range sizes {
				if !bytes.Equal(got[i].Data, codec.Pad(payload.PRBS(n))) {
					t.Errorf("frame %d: payload mismatch", i)
				}
			}
		})
	}
}
