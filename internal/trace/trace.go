// Package trace records the beats crossing the PHY interface and reads them
// back, so that a captured transmit session can be replayed into a receiver.
//
// A trace is a Header followed by one Record per cycle, as a stream of JSON
// lines or of MessagePack values.
package trace

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bft-labs/ethlink/internal/phy"
)

// Version is the trace layout written by this package.
const Version = 1

// Format selects the trace encoding.
type Format string

const (
	// FormatJSON writes one JSON object per line (goccy/go-json).
	FormatJSON Format = "json"
	// FormatMsgpack writes consecutive MessagePack values.
	FormatMsgpack Format = "msgpack"
)

// ErrUnknownFormat is returned for a format name that is not supported.
var ErrUnknownFormat = errors.New("ethlink: unknown trace format")

// ParseFormat maps a format name to a Format. The empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatMsgpack, "mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
	}
}

// FormatFromPath picks the format from a file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return FormatMsgpack
	default:
		return FormatJSON
	}
}

// Header describes the interface the trace was captured on.
type Header struct {
	Version int    `json:"version" msgpack:"version"`
	Width   int    `json:"width" msgpack:"width"`
	PHY     string `json:"phy" msgpack:"phy"`
}

// Record is one beat.
type Record struct {
	Cycle uint64 `json:"cycle" msgpack:"c"`
	Data  uint64 `json:"data" msgpack:"d"`
	Ctrl  uint8  `json:"ctrl" msgpack:"k"`
}

// Beat returns the beat carried by r.
func (r Record) Beat() phy.Beat { return phy.Beat{Data: r.Data, Ctrl: r.Ctrl} }

// encoder and decoder are the per-format value streams.
type encoder interface{ Encode(v interface{}) error }
type decoder interface{ Decode(v interface{}) error }

// Writer appends records to a trace.
type Writer struct {
	enc   encoder
	count uint64
}

// NewWriter writes h to w and returns a writer for the records that follow.
func NewWriter(w io.Writer, format Format, h Header) (*Writer, error) {
	var enc encoder
	switch format {
	case FormatJSON:
		enc = newJSONEncoder(w)
	case FormatMsgpack:
		enc = newMsgpackEncoder(w)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	if h.Version == 0 {
		h.Version = Version
	}
	if err := enc.Encode(&h); err != nil {
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one beat.
func (w *Writer) Write(cycle uint64, b phy.Beat) error {
	if err := w.enc.Encode(&Record{Cycle: cycle, Data: b.Data, Ctrl: b.Ctrl}); err != nil {
		return fmt.Errorf("write trace record %d: %w", cycle, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 { return w.count }

// Reader reads records from a trace.
type Reader struct {
	dec    decoder
	header Header
}

// NewReader reads the trace header from r.
func NewReader(r io.Reader, format Format) (*Reader, error) {
	var dec decoder
	switch format {
	case FormatJSON:
		dec = newJSONDecoder(r)
	case FormatMsgpack:
		dec = newMsgpackDecoder(r)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	rd := &Reader{dec: dec}
	if err := dec.Decode(&rd.header); err != nil {
		return nil, fmt.Errorf("read trace header: %w", err)
	}
	if rd.header.Version != Version {
		return nil, fmt.Errorf("trace version %d, want %d", rd.header.Version, Version)
	}
	return rd, nil
}

// Header returns the trace header.
func (r *Reader) Header() Header { return r.header }

// Read returns the next record, or io.EOF after the last one.
func (r *Reader) Read() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read trace record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
