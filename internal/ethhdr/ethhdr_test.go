package ethhdr

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/google/gopacket/layers"

	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/payload"
	"github.com/bft-labs/ethlink/internal/stream"
)

var testHeader = Header{
	Dst:  net.HardwareAddr{0xda, 0xd1, 0xd2, 0xd3, 0xd4, 0xd5},
	Src:  net.HardwareAddr{0x5a, 0x51, 0x52, 0x53, 0x54, 0x55},
	Type: layers.EthernetType(0x8000),
}

func sizeList() []int {
	var sizes []int
	for n := 1; n < 128; n++ {
		sizes = append(sizes, n)
	}
	sizes = append(sizes, 512, 1500, 9200)
	for i := 0; i < 10; i++ {
		sizes = append(sizes, 60-domain.HeaderLen)
	}
	return sizes
}

func TestParseHeader(t *testing.T) {
	b := testHeader.AppendTo(nil)
	if len(b) != domain.HeaderLen {
		t.Fatalf("len(AppendTo) = %d, want %d", len(b), domain.HeaderLen)
	}
	if !bytes.Equal(b[12:], []byte{0x80, 0x00}) {
		t.Errorf("type bytes = % x, want 80 00", b[12:])
	}

	h, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if h.Dst.String() != "da:d1:d2:d3:d4:d5" || h.Src.String() != "5a:51:52:53:54:55" || h.Type != 0x8000 {
		t.Errorf("ParseHeader() = %v", h)
	}

	if _, err := ParseHeader(b[:13]); !errors.Is(err, domain.ErrHeaderTruncated) {
		t.Errorf("ParseHeader(13 bytes) error = %v, want ErrHeaderTruncated", err)
	}
}

func TestSplitter(t *testing.T) {
	pause := []bool{true, true, true, false}

	tests := []struct {
		name         string
		width        int
		idle, bpress bool
	}{
		{"width 8", 8, false, false},
		{"width 8 idle", 8, true, false},
		{"width 8 backpressure", 8, false, true},
		{"width 8 both", 8, true, true},
		{"width 1", 1, false, false},
		{"width 4 both", 4, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sizes := sizeList()
			in := stream.NewQueue(tt.width)
			for _, n := range sizes {
				in.Push(Join(testHeader, domain.Frame{Data: payload.Incrementing(n)}, tt.width)...)
			}
			if tt.idle {
				in.SetPauseGenerator(pause)
			}

			s := NewSplitter(tt.width, nil)
			if tt.bpress {
				s.Payload().SetPauseGenerator(pause)
			}

			var asm stream.Assembler
			var got []domain.Frame
			for i := 0; i < 1_000_000 && (!in.Empty() || !s.Payload().Empty()); i++ {
				if err := s.Drain(in); err != nil {
					t.Fatalf("Drain() error = %v", err)
				}
				frames, err := asm.Collect(s.Payload())
				if err != nil {
					t.Fatalf("Collect() error = %v", err)
				}
				got = append(got, frames...)
			}

			if len(got) != len(sizes) {
				t.Fatalf("payloads = %d, want %d", len(got), len(sizes))
			}
			if s.Headers() != len(sizes) {
				t.Fatalf("headers = %d, want %d", s.Headers(), len(sizes))
			}
			for i, n := range sizes {
				h, _ := s.NextHeader()
				if h.String() != testHeader.String() {
					t.Errorf("frame %d header = %v", i, h)
				}
				if !bytes.Equal(got[i].Data, payload.Incrementing(n)) {
					t.Errorf("frame %d payload: got %d bytes, want %d", i, len(got[i].Data), n)
				}
				if got[i].Err {
					t.Errorf("frame %d: error tag set", i)
				}
			}
			if frames, truncated := s.Counts(); frames != uint64(len(sizes)) || truncated != 0 {
				t.Errorf("Counts() = %d, %d", frames, truncated)
			}
		})
	}
}

func TestSplitter_PayloadWords(t *testing.T) {
	s := NewSplitter(8, nil)
	for _, w := range Join(testHeader, domain.Frame{Data: payload.Incrementing(20)}, 8) {
		if err := s.Push(w); err != nil {
			t.Fatal(err)
		}
	}
	var words []domain.StreamWord
	for {
		w, ok := s.Payload().Next()
		if !ok {
			break
		}
		words = append(words, w)
	}
	if len(words) != 3 {
		t.Fatalf("words = %d, want 3", len(words))
	}
	if !words[0].Start || words[1].Start || !words[2].Last || words[2].Keep != 4 {
		t.Errorf("word markers = %+v", words)
	}
}

func TestSplitter_Truncated(t *testing.T) {
	for _, n := range []int{1, 13, 14} {
		s := NewSplitter(8, nil)
		words := stream.Segment(domain.Frame{Data: payload.Incrementing(n)}, 8)
		var err error
		for _, w := range words {
			err = s.Push(w)
		}
		if !errors.Is(err, domain.ErrHeaderTruncated) {
			t.Errorf("%d bytes: error = %v, want ErrHeaderTruncated", n, err)
		}
		if s.Headers() != 0 || !s.Payload().Empty() {
			t.Errorf("%d bytes: output not empty", n)
		}
		if _, truncated := s.Counts(); truncated != 1 {
			t.Errorf("%d bytes: truncated = %d, want 1", n, truncated)
		}
		if st := s.Stats(); st.HeaderErrors != 1 || st.FramesReceived != 0 {
			t.Errorf("%d bytes: Stats() = %+v", n, st)
		}
	}
}

func TestSplitter_ErrorTagAndRestart(t *testing.T) {
	s := NewSplitter(4, nil)
	partial := Join(testHeader, domain.Frame{Data: payload.Incrementing(30)}, 4)[:5]
	for _, w := range partial {
		_ = s.Push(w)
	}
	for _, w := range Join(testHeader, domain.Frame{Data: payload.Incrementing(10), Err: true}, 4) {
		if err := s.Push(w); err != nil {
			t.Fatal(err)
		}
	}

	var asm stream.Assembler
	got, err := asm.Collect(s.Payload())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("payloads = %d, want 2", len(got))
	}
	if !got[0].Err || len(got[0].Data) != 6 {
		t.Errorf("cut frame: err %v, %d bytes, want tagged 6 bytes", got[0].Err, len(got[0].Data))
	}
	if !got[1].Err || !bytes.Equal(got[1].Data, payload.Incrementing(10)) {
		t.Errorf("second frame = %+v, want tagged 10-byte payload", got[1])
	}
	if s.Headers() != 2 {
		t.Errorf("headers = %d, want 2", s.Headers())
	}
}

func TestDescribe(t *testing.T) {
	h := testHeader
	h.Type = layers.EthernetTypeIPv4
	var frame []byte
	for _, w := range Join(h, domain.Frame{Data: payload.Incrementing(46)}, 64) {
		frame = append(frame, w.Bytes()...)
	}

	got := Describe(frame)
	for _, want := range []string{"5a:51:52:53:54:55 > da:d1:d2:d3:d4:d5", "IPv4", "len=46"} {
		if !strings.Contains(got, want) {
			t.Errorf("Describe() = %q, missing %q", got, want)
		}
	}
	if got := Describe([]byte{1, 2}); !strings.Contains(got, "undecodable") {
		t.Errorf("Describe(short) = %q", got)
	}
}
