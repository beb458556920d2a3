package phy

import "github.com/bft-labs/ethlink/internal/domain"

// XGMII carries one byte and one control bit per lane. It is stateless.
type XGMII struct {
	width int
}

// NewXGMII returns an XGMII codec for width lanes (at most 8).
func NewXGMII(width int) *XGMII {
	if width < 1 || width > 8 {
		panic("phy: xgmii width out of range")
	}
	return &XGMII{width: width}
}

func (x *XGMII) Width() int   { return x.width }
func (x *XGMII) Name() string { return "xgmii" }
func (x *XGMII) Reset()       {}

// Encode packs w into a beat. Lanes beyond len(w) carry idle.
func (x *XGMII) Encode(w domain.LaneWord) Beat {
	var b Beat
	for i := 0; i < x.width; i++ {
		sym := domain.Idle
		if i < len(w) {
			sym = w[i]
		}
		code, ctrl := encodeSymbol(sym)
		b.Data |= uint64(code) << (8 * uint(i))
		if ctrl {
			b.Ctrl |= 1 << uint(i)
		}
	}
	return b
}

// Decode unpacks a beat. Unknown control characters decode as errors.
func (x *XGMII) Decode(b Beat) domain.LaneWord {
	w := make(domain.LaneWord, x.width)
	for i := range w {
		code := b.Lane(i)
		if b.Ctrl&(1<<uint(i)) == 0 {
			w[i] = domain.Data(code)
			continue
		}
		w[i] = decodeControl(code)
	}
	return w
}

func encodeSymbol(s domain.Symbol) (byte, bool) {
	switch s.Kind {
	case domain.SymbolData:
		return s.Data, false
	case domain.SymbolStart:
		return CodeStart, true
	case domain.SymbolEnd:
		return CodeTerminate, true
	case domain.SymbolError:
		return CodeError, true
	default:
		return CodeIdle, true
	}
}

func decodeControl(code byte) domain.Symbol {
	switch code {
	case CodeIdle:
		return domain.Idle
	case CodeStart:
		return domain.Start
	case CodeTerminate:
		return domain.End
	default:
		return domain.Error
	}
}
