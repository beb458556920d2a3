package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/ethlink"
	logadapter "github.com/bft-labs/ethlink/internal/adapters/log"
	"github.com/bft-labs/ethlink/internal/cliconfig"
	"github.com/bft-labs/ethlink/internal/codec"
	"github.com/bft-labs/ethlink/internal/ethhdr"
	"github.com/bft-labs/ethlink/internal/payload"
	"github.com/bft-labs/ethlink/internal/stream"
	"github.com/bft-labs/ethlink/internal/trace"
	"github.com/bft-labs/ethlink/plugins/configwatcher"
)

func newLoopbackCmd(e *env) *cobra.Command {
	var (
		watch      bool
		errorEvery int
	)
	cmd := &cobra.Command{
		Use:   "loopback",
		Short: "Send frames through the transmit and receive pipelines and check them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLoopback(ctx, e, loopbackOptions{watch: watch, errorEvery: errorEvery}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "apply ifg and tx_enable changes made to the config file while running")
	cmd.Flags().IntVar(&errorEvery, "error-every", 0, "send every Nth frame with the error tag set")
	return cmd
}

type loopbackOptions struct {
	watch      bool
	errorEvery int
}

// loopbackResult summarizes a run.
type loopbackResult struct {
	Sent       int
	Tagged     int
	Received   int
	Mismatched int
	Headers    uint64
	Truncated  uint64
	Tx, Rx     ethlink.Stats
}

func runLoopback(ctx context.Context, e *env, o loopbackOptions, out io.Writer) error {
	cfg := e.cfg
	logger := logadapter.NewZerologAdapterWithLogger(e.log)

	opts := []ethlink.Option{ethlink.WithLogger(logger)}
	if o.watch && e.cfgFile != "" {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
			Path:   e.cfgFile,
			Pinned: e.changed,
		}))
	}
	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			return fmt.Errorf("create trace: %w", err)
		}
		defer f.Close()
		bw := bufio.NewWriter(f)
		defer bw.Flush()
		format, _ := trace.ParseFormat(cfg.TraceFormat)
		opts = append(opts, ethlink.WithTrace(bw, format))
	}

	link, err := ethlink.New(linkConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create link: %w", err)
	}

	sizes, _ := cliconfig.ParseSizes(cfg.Sizes)
	if len(sizes) == 0 {
		sizes = payload.SizeList(cfg.MaxFrameSize >= 9214)
	}
	frames, tagged := buildTraffic(payload.Kind(cfg.Payload), sizes, cfg.Repeat, o.errorEvery)
	for i, f := range frames {
		if err := link.Send(ethlink.Frame{Data: f}, tagged[i]); err != nil {
			return fmt.Errorf("send frame %d: %w", i, err)
		}
	}

	if err := link.Start(ctx); err != nil {
		return fmt.Errorf("start link: %w", err)
	}
	if cfg.Cycles > 0 {
		err = link.Wait(ctx)
	} else {
		err = link.Flush(ctx)
	}
	if stopErr := link.Stop(); err == nil && cfg.Cycles == 0 {
		err = stopErr
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run link: %w", err)
	}

	got, err := link.Received()
	if err != nil {
		return fmt.Errorf("collect frames: %w", err)
	}
	res := checkLoopback(frames, tagged, got)
	res.Headers, res.Truncated = splitHeaders(got, cfg.StreamWidth, e)
	res.Tx, res.Rx = link.TxStats(), link.RxStats()

	txCycles, _ := link.Cycles()
	fmt.Fprintf(out, "phy %s, %d lanes, ifg %d, %d cycles\n", link.PHY(), cfg.LaneWidth, cfg.IFG, txCycles)
	fmt.Fprintf(out, "sent %d frames (%d tagged), received %d, mismatched %d\n", res.Sent, res.Tagged, res.Received, res.Mismatched)
	fmt.Fprintf(out, "headers %d, truncated %d\n", res.Headers, res.Truncated)
	fmt.Fprintf(out, "tx errors %d, rx errors %d\n", res.Tx.Errors(), res.Rx.Errors())
	if cfg.Trace != "" {
		fmt.Fprintf(out, "trace %s: %d beats\n", cfg.Trace, link.TraceRecords())
	}

	if res.Mismatched > 0 {
		return fmt.Errorf("%d of %d frames differ", res.Mismatched, res.Received)
	}
	return nil
}

// buildTraffic returns repeat rounds of one payload per size. With every > 0
// each every-th frame is marked for error injection.
func buildTraffic(kind payload.Kind, sizes []int, repeat, every int) ([][]byte, []bool) {
	var (
		frames [][]byte
		tagged []bool
	)
	for r := 0; r < repeat; r++ {
		for _, n := range sizes {
			frames = append(frames, payload.Generate(kind, n))
			tagged = append(tagged, every > 0 && len(frames)%every == 0)
		}
	}
	return frames, tagged
}

// checkLoopback matches received frames against the untagged frames sent,
// in order. Tagged frames are terminated with an error and never delivered.
// Received payloads carry the padding added on transmit.
func checkLoopback(sent [][]byte, tagged []bool, got []ethlink.Frame) loopbackResult {
	res := loopbackResult{Sent: len(sent), Received: len(got)}
	var want [][]byte
	for i, f := range sent {
		if tagged[i] {
			res.Tagged++
			continue
		}
		want = append(want, codec.Pad(f))
	}
	for i, f := range got {
		if i >= len(want) || f.Err || !bytes.Equal(f.Data, want[i]) {
			res.Mismatched++
		}
	}
	return res
}

// splitHeaders runs the received frames through a header splitter and logs
// each decoded header at debug level.
func splitHeaders(frames []ethlink.Frame, width int, e *env) (headers, truncated uint64) {
	sp := ethhdr.NewSplitter(width, logadapter.NewZerologAdapterWithLogger(e.log))
	for _, f := range frames {
		e.log.Debug().Str("frame", ethhdr.Describe(f.Data)).Msg("rx frame")
		for _, w := range stream.Segment(f, width) {
			_ = sp.Push(w)
		}
	}
	for {
		h, ok := sp.NextHeader()
		if !ok {
			break
		}
		e.log.Debug().Stringer("header", h).Msg("rx header")
	}
	return sp.Counts()
}
