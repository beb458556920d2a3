package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML-friendly types. Pointers mark values
// whose zero is meaningful.
type FileConfig struct {
	LaneWidth        int    `toml:"lane_width"`
	StreamWidth      int    `toml:"stream_width"`
	IFG              *int   `toml:"ifg"`
	TxEnable         *bool  `toml:"tx_enable"`
	MaxFrameSize     int    `toml:"max_frame_size"`
	ForwardBadFrames *bool  `toml:"forward_bad_frames"`
	ClockPeriod      string `toml:"clock_period"`
	Cycles           int    `toml:"cycles"`
	Payload          string `toml:"payload"`
	Sizes            string `toml:"sizes"`
	Repeat           int    `toml:"repeat"`
	Trace            string `toml:"trace"`
	TraceFormat      string `toml:"trace_format"`
	UARTDataBits     int    `toml:"uart_data_bits"`
	UARTBaud         int    `toml:"uart_baud"`
	ClockHz          int    `toml:"clock_hz"`
	LogLevel         string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.ethlink/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".ethlink", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt("lane-width", fc.LaneWidth, &cfg.LaneWidth)
	s.setInt("stream-width", fc.StreamWidth, &cfg.StreamWidth)
	s.setIntPtr("ifg", fc.IFG, &cfg.IFG)
	s.setBool("tx-enable", fc.TxEnable, &cfg.TxEnable)
	s.setInt("max-frame-size", fc.MaxFrameSize, &cfg.MaxFrameSize)
	s.setBool("forward-bad-frames", fc.ForwardBadFrames, &cfg.ForwardBadFrames)
	if err := s.setDuration("clock-period", fc.ClockPeriod, &cfg.ClockPeriod); err != nil {
		return err
	}
	s.setInt("cycles", fc.Cycles, &cfg.Cycles)

	s.setString("payload", fc.Payload, &cfg.Payload)
	s.setString("sizes", fc.Sizes, &cfg.Sizes)
	s.setInt("repeat", fc.Repeat, &cfg.Repeat)
	s.setString("trace", fc.Trace, &cfg.Trace)
	s.setString("trace-format", fc.TraceFormat, &cfg.TraceFormat)

	s.setInt("uart-data-bits", fc.UARTDataBits, &cfg.UARTDataBits)
	s.setInt("uart-baud", fc.UARTBaud, &cfg.UARTBaud)
	s.setInt("clock-hz", fc.ClockHz, &cfg.ClockHz)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
