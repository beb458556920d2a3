package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/ethlink"
	"github.com/bft-labs/ethlink/internal/cliconfig"
)

const helpDescription = `
Cycle-level model of an Ethernet MAC framing pipeline and a UART framer.

Frames are turned into preamble, data, padding and FCS symbols spread over
1 to 8 lanes with deficit idle count alignment, carried over a GMII or XGMII
style encoding, and delimited and checked again on the receive side.

Settings come from flags, ETHLINK_* environment variables and
$HOME/.ethlink/config.toml, in that order of precedence.
`

var exampleUsage = strings.TrimSpace(`
  ethlink loopback --lane-width 8 --ifg 12 --sizes 60-127
  ethlink loopback --trace run.json --cycles 20000
  ethlink align --sizes 61 --count 10
  ethlink replay run.json
  ethlink uart --uart-baud 115200 --sizes 1-15
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// env carries the resolved configuration to the subcommands.
type env struct {
	cfg     cliconfig.Config
	cfgPath string
	// cfgFile is the config file actually read, empty when none exists.
	cfgFile string
	changed map[string]bool
	log     zerolog.Logger
}

func main() {
	e := &env{cfg: cliconfig.DefaultConfig(), log: cliconfig.Logger()}

	if err := newRootCmd(e).Execute(); err != nil {
		e.log.Error().Err(err).Msg("ethlink")
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "ethlink",
		Short:         "Model an Ethernet MAC framing pipeline cycle by cycle",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
	}

	cfg := &e.cfg
	f := root.PersistentFlags()
	f.StringVar(&e.cfgPath, "config", "", "path to config file (default: $HOME/.ethlink/config.toml)")

	f.IntVar(&cfg.LaneWidth, "lane-width", cfg.LaneWidth, "lanes per cycle: 1 (GMII), 2, 4 or 8 (XGMII)")
	f.IntVar(&cfg.StreamWidth, "stream-width", cfg.StreamWidth, "stream word width in bytes (defaults to lane width)")
	f.IntVar(&cfg.IFG, "ifg", cfg.IFG, "average inter-frame gap in lane slots, 0 for back to back")
	f.BoolVar(&cfg.TxEnable, "tx-enable", cfg.TxEnable, "allow new frames to start")
	f.IntVar(&cfg.MaxFrameSize, "max-frame-size", cfg.MaxFrameSize, "largest received frame in bytes, FCS excluded")
	f.BoolVar(&cfg.ForwardBadFrames, "forward-bad-frames", cfg.ForwardBadFrames, "deliver frames failing the FCS check with the error tag")
	f.DurationVar(&cfg.ClockPeriod, "clock-period", cfg.ClockPeriod, "transmit clock period, 0 runs unpaced")
	f.IntVar(&cfg.Cycles, "cycles", cfg.Cycles, "stop after this many transmit cycles, 0 runs until all frames are received")

	f.StringVar(&cfg.Payload, "payload", cfg.Payload, "payload pattern: incrementing or prbs")
	f.StringVar(&cfg.Sizes, "sizes", cfg.Sizes, "payload sizes, e.g. 1-15,128 (default: the standard sweep)")
	f.IntVar(&cfg.Repeat, "repeat", cfg.Repeat, "send the size list this many times")

	f.StringVar(&cfg.Trace, "trace", cfg.Trace, "record transmitted beats to this file")
	f.StringVar(&cfg.TraceFormat, "trace-format", cfg.TraceFormat, "trace encoding: json or msgpack (default: from file extension)")

	f.IntVar(&cfg.UARTDataBits, "uart-data-bits", cfg.UARTDataBits, "UART data bits, 5 to 9")
	f.IntVar(&cfg.UARTBaud, "uart-baud", cfg.UARTBaud, "UART baud rate")
	f.IntVar(&cfg.ClockHz, "clock-hz", cfg.ClockHz, "UART clock frequency in Hz")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	root.AddCommand(
		newLoopbackCmd(e),
		newAlignCmd(e),
		newReplayCmd(e),
		newUARTCmd(e),
	)
	return root
}

// load resolves the configuration: defaults, then the config file, then
// ETHLINK_* variables, with explicitly set flags winning over both.
func (e *env) load(cmd *cobra.Command) error {
	cfgFile := e.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	e.changed = changed

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&e.cfg, fc, changed); err != nil {
			return err
		}
		e.cfgFile = cfgFile
	} else if e.cfgPath != "" {
		return fmt.Errorf("config file %s not found", e.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&e.cfg, changed); err != nil {
		return err
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	e.log = cliconfig.NewLogger(os.Stderr, e.cfg.LogLevel)
	e.log.Debug().Interface("config", e.cfg).Str("file", e.cfgFile).Msg("configuration")
	return nil
}

// linkConfig maps the CLI configuration onto the library one.
func linkConfig(cfg cliconfig.Config) ethlink.Config {
	return ethlink.Config{
		LaneWidth:        cfg.LaneWidth,
		StreamWidth:      cfg.StreamWidth,
		IFG:              cfg.IFG,
		TxEnable:         cfg.TxEnable,
		MaxFrameSize:     cfg.MaxFrameSize,
		ForwardBadFrames: cfg.ForwardBadFrames,
		ClockPeriod:      cfg.ClockPeriod,
		Cycles:           uint64(cfg.Cycles),
	}
}
