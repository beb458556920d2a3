package domain

import "fmt"

// SymbolKind discriminates the lane-level symbol variants.
type SymbolKind uint8

const (
	SymbolData SymbolKind = iota
	SymbolIdle
	SymbolStart
	SymbolEnd
	SymbolError
)

// String returns a human-readable representation of the kind.
func (k SymbolKind) String() string {
	switch k {
	case SymbolData:
		return "Data"
	case SymbolIdle:
		return "Idle"
	case SymbolStart:
		return "Start"
	case SymbolEnd:
		return "End"
	case SymbolError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Symbol is what one lane carries in one cycle: either a data byte or one of
// the control symbols. Data is only meaningful for SymbolData.
type Symbol struct {
	Kind SymbolKind
	Data byte
}

// Control symbols.
var (
	Idle  = Symbol{Kind: SymbolIdle}
	Start = Symbol{Kind: SymbolStart}
	End   = Symbol{Kind: SymbolEnd}
	Error = Symbol{Kind: SymbolError}
)

// Data returns a data symbol carrying b.
func Data(b byte) Symbol {
	return Symbol{Kind: SymbolData, Data: b}
}

// IsData reports whether the symbol carries a data byte.
func (s Symbol) IsData() bool {
	return s.Kind == SymbolData
}

func (s Symbol) String() string {
	if s.Kind == SymbolData {
		return fmt.Sprintf("%02x", s.Data)
	}
	return s.Kind.String()
}

// LaneWord is one cycle of the lane interface, one symbol per lane.
type LaneWord []Symbol

// IdleWord returns a word of width idle symbols.
func IdleWord(width int) LaneWord {
	w := make(LaneWord, width)
	for i := range w {
		w[i] = Idle
	}
	return w
}

// StartLane returns the lane holding a start symbol, or -1.
func (w LaneWord) StartLane() int {
	for i, s := range w {
		if s.Kind == SymbolStart {
			return i
		}
	}
	return -1
}
