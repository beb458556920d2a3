// Package uart serializes words onto an asynchronous serial line and
// recovers them: one start bit, DataBits data bits LSB first, one stop bit.
// Both directions are advanced one clock cycle per Tick; Prescale is the
// number of clock cycles per bit.
package uart

import (
	"fmt"

	"github.com/bft-labs/ethlink/internal/domain"
)

// Config holds the line parameters shared by both directions.
type Config struct {
	DataBits int
	Prescale int
}

// DefaultConfig is 8 data bits at one bit per clock cycle.
func DefaultConfig() Config {
	return Config{DataBits: 8, Prescale: 1}
}

// Validate checks the data width and prescale.
func (c Config) Validate() error {
	if c.DataBits < 5 || c.DataBits > 9 {
		return fmt.Errorf("uart data bits %d: %w", c.DataBits, domain.ErrInvalidConfig)
	}
	if c.Prescale < 1 {
		return fmt.Errorf("uart prescale %d: %w", c.Prescale, domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) mask() uint16 { return uint16(1)<<uint(c.DataBits) - 1 }

// BitsPerWord is the number of bit periods one word occupies on the line.
func (c Config) BitsPerWord() int { return c.DataBits + 2 }

// PrescaleFor returns the clock cycles per bit for baud at clockHz, at least 1.
func PrescaleFor(clockHz, baud int) int {
	if baud <= 0 {
		return 1
	}
	p := clockHz / baud
	if p < 1 {
		return 1
	}
	return p
}
