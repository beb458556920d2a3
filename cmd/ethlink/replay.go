package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	logadapter "github.com/bft-labs/ethlink/internal/adapters/log"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/ethhdr"
	"github.com/bft-labs/ethlink/internal/mac"
	"github.com/bft-labs/ethlink/internal/phy"
	"github.com/bft-labs/ethlink/internal/ports"
	"github.com/bft-labs/ethlink/internal/stream"
	"github.com/bft-labs/ethlink/internal/trace"
)

func newReplayCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "replay [trace]",
		Short: "Feed a recorded beat trace into a receive pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := e.cfg.Trace
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no trace given")
			}
			format := trace.FormatFromPath(path)
			if e.changed["trace-format"] {
				format = trace.Format(e.cfg.TraceFormat)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = replay(bufio.NewReader(f), format, e, cmd.OutOrStdout())
			return err
		},
	}
}

// replayResult summarizes a replayed trace.
type replayResult struct {
	Beats  int
	Frames []domain.Frame
	Stats  domain.Stats
}

// replay decodes every beat of a trace with the encoding named in its header
// and prints the frames the receive pipeline delivers.
func replay(r io.Reader, format trace.Format, e *env, out io.Writer) (replayResult, error) {
	var res replayResult
	tr, err := trace.NewReader(r, format)
	if err != nil {
		return res, err
	}
	h := tr.Header()
	dec, err := phy.New(h.Width)
	if err != nil {
		return res, fmt.Errorf("trace header: %w", err)
	}
	if h.PHY != "" && h.PHY != dec.Name() {
		return res, fmt.Errorf("trace recorded on %s, width %d decodes as %s", h.PHY, h.Width, dec.Name())
	}

	logger := logadapter.NewZerologAdapterWithLogger(e.log).With("domain", "rx")
	width := e.cfg.StreamWidth
	if !e.changed["stream-width"] {
		width = h.Width
	}
	rx := mac.NewRx(mac.RxConfig{
		StreamWidth:      width,
		MaxFrameSize:     e.cfg.MaxFrameSize,
		ForwardBadFrames: e.cfg.ForwardBadFrames,
	}, logger, nil)

	var asm stream.Assembler
	for {
		rec, err := tr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		res.Beats++
		if err := rx.OnLaneInput(dec.Decode(rec.Beat())); err != nil {
			logger.Warn("rx resynchronizing", ports.Uint64("cycle", rec.Cycle), ports.Err(err))
		}
		frames, err := asm.Collect(rx.Output())
		if err != nil {
			return res, err
		}
		for _, f := range frames {
			tag := ""
			if f.Err {
				tag = " [bad fcs]"
			}
			fmt.Fprintf(out, "%6d  %s%s\n", rec.Cycle, ethhdr.Describe(f.Data), tag)
		}
		res.Frames = append(res.Frames, frames...)
	}

	res.Stats = rx.Stats()
	fmt.Fprintf(out, "%s, %d lanes: %d beats, %d frames, %d fcs errors, %d other errors\n",
		dec.Name(), h.Width, res.Beats, res.Stats.FramesReceived, res.Stats.FCSErrors,
		res.Stats.Errors()-res.Stats.FCSErrors)
	return res, nil
}
