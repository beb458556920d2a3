// Package cliconfig assembles the ethlink command-line configuration from
// defaults, a TOML file, ETHLINK_* environment variables and flags, in
// increasing order of precedence.
package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/lane"
	"github.com/bft-labs/ethlink/internal/payload"
	"github.com/bft-labs/ethlink/internal/trace"
)

// Config holds CLI configuration for ethlink.
type Config struct {
	LaneWidth        int
	StreamWidth      int
	IFG              int
	TxEnable         bool
	MaxFrameSize     int
	ForwardBadFrames bool
	ClockPeriod      time.Duration
	Cycles           int

	Payload string
	Sizes   string
	Repeat  int

	Trace       string
	TraceFormat string

	UARTDataBits int
	UARTBaud     int
	ClockHz      int

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LaneWidth:    8,
		IFG:          12,
		TxEnable:     true,
		MaxFrameSize: 9600,
		Payload:      string(payload.KindIncrementing),
		Repeat:       1,
		UARTDataBits: 8,
		UARTBaud:     921600,
		ClockHz:      100_000_000,
		LogLevel:     "info",
	}
}

// Validate checks the configuration and sets derived defaults.
func (c *Config) Validate() error {
	if !lane.ValidWidth(c.LaneWidth) {
		return invalid("lane width %d must be 1, 2, 4 or 8", c.LaneWidth)
	}
	if c.StreamWidth == 0 {
		c.StreamWidth = c.LaneWidth
	}
	if c.StreamWidth < 0 {
		return invalid("stream width %d must be positive", c.StreamWidth)
	}
	if c.IFG < 0 {
		return invalid("ifg %d must not be negative", c.IFG)
	}
	if c.MaxFrameSize < domain.MinFrameLen {
		return invalid("max frame size %d below %d", c.MaxFrameSize, domain.MinFrameLen)
	}
	if c.ClockPeriod < 0 {
		return invalid("clock period %v must not be negative", c.ClockPeriod)
	}
	if c.Cycles < 0 {
		return invalid("cycles %d must not be negative", c.Cycles)
	}
	if c.Repeat < 1 {
		return invalid("repeat %d must be at least 1", c.Repeat)
	}

	switch payload.Kind(c.Payload) {
	case payload.KindIncrementing, payload.KindPRBS:
	default:
		return invalid("payload %q must be incrementing or prbs", c.Payload)
	}
	if _, err := ParseSizes(c.Sizes); err != nil {
		return err
	}
	if c.TraceFormat == "" && c.Trace != "" {
		c.TraceFormat = string(trace.FormatFromPath(c.Trace))
	}
	if _, err := trace.ParseFormat(c.TraceFormat); err != nil {
		return invalid("trace format: %v", err)
	}

	if c.UARTDataBits < 5 || c.UARTDataBits > 9 {
		return invalid("uart data bits %d must be 5 to 9", c.UARTDataBits)
	}
	if c.UARTBaud <= 0 || c.ClockHz <= 0 {
		return invalid("uart baud %d and clock %d Hz must be positive", c.UARTBaud, c.ClockHz)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return invalid("log level %q", c.LogLevel)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrInvalidConfig)
}

// ParseSizes parses a comma-separated list of frame sizes and inclusive
// ranges such as "1-15,128". The empty string yields nil.
func ParseSizes(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, invalid("sizes %q", part)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, invalid("sizes %q", part)
			}
		}
		if a < 1 || b < a {
			return nil, invalid("sizes %q", part)
		}
		for n := a; n <= b; n++ {
			sizes = append(sizes, n)
		}
	}
	return sizes, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int that may legitimately be zero, such as the gap.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination.
// With allowZero unset, zero and negative values are ignored.
func (s *configSetter) setIntFromString(flag, value string, allowZero bool, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 || (i == 0 && !allowZero) {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
