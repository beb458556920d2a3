package phy

import "github.com/bft-labs/ethlink/internal/domain"

// GMII carries one byte per cycle framed by the enable line. A frame starts
// where enable rises, on the first preamble byte, and ends where it falls;
// the error line flags a corrupted byte.
type GMII struct {
	active bool
}

func (g *GMII) Width() int   { return 1 }
func (g *GMII) Name() string { return "gmii" }

// Reset forgets whether a frame is in progress.
func (g *GMII) Reset() { g.active = false }

// Encode maps the single symbol of w onto the enable, error and data lines.
func (g *GMII) Encode(w domain.LaneWord) Beat {
	if len(w) == 0 {
		return Beat{}
	}
	switch s := w[0]; s.Kind {
	case domain.SymbolData:
		return Beat{Data: uint64(s.Data), Ctrl: GMIIEnable}
	case domain.SymbolStart:
		return Beat{Data: uint64(domain.PreambleByte), Ctrl: GMIIEnable}
	case domain.SymbolError:
		return Beat{Ctrl: GMIIEnable | GMIIError}
	default:
		return Beat{}
	}
}

// Decode recovers start and end symbols from the enable edges.
func (g *GMII) Decode(b Beat) domain.LaneWord {
	en := b.Ctrl&GMIIEnable != 0
	var s domain.Symbol
	switch {
	case en && !g.active:
		s = domain.Start
	case en && b.Ctrl&GMIIError != 0:
		s = domain.Error
	case en:
		s = domain.Data(b.Lane(0))
	case g.active:
		s = domain.End
	default:
		s = domain.Idle
	}
	g.active = en
	return domain.LaneWord{s}
}
