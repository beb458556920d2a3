package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bft-labs/ethlink/internal/cliconfig"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/lane"
	"github.com/bft-labs/ethlink/internal/mac"
	"github.com/bft-labs/ethlink/internal/payload"
)

func newAlignCmd(e *env) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Print the start lane and gap of each frame in a back-to-back burst",
		Long: "Computes where each frame of a burst starts under deficit idle count " +
			"alignment, then transmits the same burst and checks the observed start lanes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlign(e.cfg, count, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "frames per size")
	return cmd
}

// alignRow is one frame of an alignment table.
type alignRow struct {
	Frame   int
	Length  int // on the wire, FCS included
	Lane    int
	Deficit int
	Gap     int
}

// alignTable computes the placement of count frames of each payload size.
func alignTable(sizes []int, count, ifg, width int) []alignRow {
	var (
		rows []alignRow
		st   lane.State
	)
	for _, n := range sizes {
		for i := 0; i < count; i++ {
			frameLen := max(n, domain.MinFrameLen) + domain.FCSLen
			next, gap := lane.Advance(st, frameLen, ifg, width)
			rows = append(rows, alignRow{
				Frame:   len(rows),
				Length:  frameLen,
				Lane:    st.Lane,
				Deficit: st.DeficitIdleCount,
				Gap:     gap,
			})
			st = next
		}
	}
	return rows
}

// observeStartLanes transmits the frames and returns the lane of every
// start symbol.
func observeStartLanes(sizes []int, count, ifg, width int) ([]int, error) {
	tx, err := mac.NewTx(mac.TxConfig{LaneWidth: width, IFG: ifg, TxEnable: true, StreamWidth: width}, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range sizes {
		for i := 0; i < count; i++ {
			if err := tx.Accept(domain.Frame{Data: payload.Incrementing(n)}, false); err != nil {
				return nil, err
			}
			total++
		}
	}

	var lanes []int
	for len(lanes) < total && (tx.Busy() || !tx.Queue().Empty()) {
		if l := tx.Tick().StartLane(); l >= 0 {
			lanes = append(lanes, l)
		}
	}
	return lanes, nil
}

func runAlign(cfg cliconfig.Config, count int, out io.Writer) error {
	sizes, _ := cliconfig.ParseSizes(cfg.Sizes)
	if len(sizes) == 0 {
		sizes = []int{60, 61, 62, 63}
	}
	rows := alignTable(sizes, count, cfg.IFG, cfg.LaneWidth)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "frame\tlength\tlane\tdeficit\tgap\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t\n", r.Frame, r.Length, r.Lane, r.Deficit, r.Gap)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lanes, err := observeStartLanes(sizes, count, cfg.IFG, cfg.LaneWidth)
	if err != nil {
		return err
	}
	if len(lanes) != len(rows) {
		return fmt.Errorf("observed %d frame starts, want %d", len(lanes), len(rows))
	}
	for i, r := range rows {
		if lanes[i] != r.Lane {
			return fmt.Errorf("frame %d started on lane %d, want %d", i, lanes[i], r.Lane)
		}
	}
	fmt.Fprintf(out, "%d start lanes match the transmit pipeline\n", len(rows))
	return nil
}
