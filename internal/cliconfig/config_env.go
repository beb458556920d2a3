package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "ETHLINK_"

func getenv(name string) string { return os.Getenv(EnvPrefix + name) }

// ApplyEnvConfig applies configuration from ETHLINK_* environment variables.
// It respects flags that have been explicitly set (changed map) and returns
// an error if a variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	ints := []struct {
		flag, env string
		allowZero bool
		dst       *int
	}{
		{"lane-width", "LANE_WIDTH", false, &cfg.LaneWidth},
		{"stream-width", "STREAM_WIDTH", false, &cfg.StreamWidth},
		{"ifg", "IFG", true, &cfg.IFG},
		{"max-frame-size", "MAX_FRAME_SIZE", false, &cfg.MaxFrameSize},
		{"cycles", "CYCLES", true, &cfg.Cycles},
		{"repeat", "REPEAT", false, &cfg.Repeat},
		{"uart-data-bits", "UART_DATA_BITS", false, &cfg.UARTDataBits},
		{"uart-baud", "UART_BAUD", false, &cfg.UARTBaud},
		{"clock-hz", "CLOCK_HZ", false, &cfg.ClockHz},
	}
	for _, v := range ints {
		if err := s.setIntFromString(v.flag, getenv(v.env), v.allowZero, v.dst); err != nil {
			return err
		}
	}

	if err := s.setDuration("clock-period", getenv("CLOCK_PERIOD"), &cfg.ClockPeriod); err != nil {
		return err
	}

	s.setBoolFromString("tx-enable", getenv("TX_ENABLE"), &cfg.TxEnable)
	s.setBoolFromString("forward-bad-frames", getenv("FORWARD_BAD_FRAMES"), &cfg.ForwardBadFrames)

	s.setString("payload", getenv("PAYLOAD"), &cfg.Payload)
	s.setString("sizes", getenv("SIZES"), &cfg.Sizes)
	s.setString("trace", getenv("TRACE"), &cfg.Trace)
	s.setString("trace-format", getenv("TRACE_FORMAT"), &cfg.TraceFormat)
	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)

	return nil
}
