package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/ethlink/internal/cliconfig"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/payload"
	"github.com/bft-labs/ethlink/internal/uart"
)

func newUARTCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "uart",
		Short: "Loop bytes through a UART transmitter and receiver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runUART(e.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prescale %d, %d data bits: sent %d words in %d cycles, received %d, framing errors %d\n",
				res.Prescale, e.cfg.UARTDataBits, res.Sent, res.Cycles, res.Received, res.FramingErrors)
			if res.Mismatched > 0 {
				return fmt.Errorf("%d words differ", res.Mismatched)
			}
			return nil
		},
	}
}

// uartResult summarizes a UART loopback.
type uartResult struct {
	Prescale      int
	Sent          int
	Received      int
	Mismatched    int
	FramingErrors uint64
	Cycles        int
}

// runUART sends one payload per configured size back to back and samples
// the line with a receiver at the same prescale.
func runUART(cfg cliconfig.Config) (uartResult, error) {
	ucfg := uart.Config{
		DataBits: cfg.UARTDataBits,
		Prescale: uart.PrescaleFor(cfg.ClockHz, cfg.UARTBaud),
	}
	res := uartResult{Prescale: ucfg.Prescale}

	tx, err := uart.NewTx(ucfg)
	if err != nil {
		return res, err
	}
	rx, err := uart.NewRx(ucfg)
	if err != nil {
		return res, err
	}

	sizes, _ := cliconfig.ParseSizes(cfg.Sizes)
	if len(sizes) == 0 {
		sizes = payload.ShortSizeList()
	}
	mask := uint16(1)<<uint(ucfg.DataBits) - 1
	var want []uint16
	for r := 0; r < cfg.Repeat; r++ {
		for _, n := range sizes {
			for _, b := range payload.Generate(payload.Kind(cfg.Payload), n) {
				want = append(want, uint16(b)&mask)
			}
		}
	}
	tx.Write(want...)
	res.Sent = len(want)

	// Run until the transmitter drains and one more word time of idle line.
	wordTime := ucfg.BitsPerWord() * ucfg.Prescale
	limit := wordTime * (len(want) + 2)
	idle := 0
	var got []uint16
	for ; res.Cycles < limit && (tx.Busy() || idle < wordTime); res.Cycles++ {
		if !tx.Busy() {
			idle++
		}
		w, ok, err := rx.Tick(tx.Tick())
		if err != nil && !errors.Is(err, domain.ErrUARTFraming) {
			return res, err
		}
		if ok {
			got = append(got, w)
		}
	}

	res.Received = len(got)
	res.FramingErrors = rx.Stats().UARTFraming
	for i, w := range want {
		if i >= len(got) || got[i] != w {
			res.Mismatched++
		}
	}
	return res, nil
}
