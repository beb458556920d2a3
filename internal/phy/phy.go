// Package phy encodes lane words onto the media-independent interface seen by
// a PHY: XGMII for multi-lane links and GMII for byte-wide ones.
package phy

import (
	"fmt"

	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/lane"
)

// XGMII control characters.
const (
	CodeIdle      byte = 0x07
	CodeStart     byte = 0xFB
	CodeTerminate byte = 0xFD
	CodeError     byte = 0xFE
)

// GMII control bits in Beat.Ctrl.
const (
	GMIIEnable uint8 = 1 << 0
	GMIIError  uint8 = 1 << 1
)

// Beat is one clock cycle on the interface. Lane i occupies bits 8i..8i+7 of
// Data; Ctrl holds one control bit per lane for XGMII and the enable and
// error lines for GMII.
type Beat struct {
	Data uint64
	Ctrl uint8
}

// Lane returns the data byte of lane i.
func (b Beat) Lane(i int) byte { return byte(b.Data >> (8 * uint(i))) }

// String formats the beat the way a logic analyzer would show it.
func (b Beat) String() string {
	return fmt.Sprintf("%016x/%02x", b.Data, b.Ctrl)
}

// Codec converts between lane words and beats. Decoders may keep state
// between beats; Reset clears it.
type Codec interface {
	Width() int
	Name() string
	Encode(w domain.LaneWord) Beat
	Decode(b Beat) domain.LaneWord
	Reset()
}

// New returns the codec for width lanes: GMII for one lane, XGMII otherwise.
func New(width int) (Codec, error) {
	if !lane.ValidWidth(width) {
		return nil, fmt.Errorf("phy width %d: %w", width, domain.ErrInvalidConfig)
	}
	if width == 1 {
		return &GMII{}, nil
	}
	return &XGMII{width: width}, nil
}
