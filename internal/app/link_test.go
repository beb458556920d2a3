package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/ethlink/internal/codec"
	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/payload"
	"github.com/bft-labs/ethlink/internal/phy"
)

type beatLog struct {
	mu     sync.Mutex
	cycles []uint64
	failAt uint64
}

func (b *beatLog) Write(cycle uint64, _ phy.Beat) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAt > 0 && cycle == b.failAt {
		return errors.New("disk full")
	}
	b.cycles = append(b.cycles, cycle)
	return nil
}

func newLink(t *testing.T, cfg LinkConfig, emitter EventEmitter) *Link {
	t.Helper()
	l, err := NewLink(cfg, discardLogger{}, nil, emitter)
	if err != nil {
		t.Fatalf("NewLink() error = %v", err)
	}
	return l
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewLink_InvalidWidth(t *testing.T) {
	_, err := NewLink(LinkConfig{LaneWidth: 3, IFG: 12}, nil, nil, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("NewLink() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLink_Loopback(t *testing.T) {
	sizes := []int{1, 46, 60, 61, 64, 128, 1500}

	for _, width := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("width %d", width), func(t *testing.T) {
			ctx := testContext(t)
			l := newLink(t, LinkConfig{LaneWidth: width, IFG: 12, TxEnable: true, SyncDepth: 4}, nil)

			if err := l.Start(ctx); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			for _, n := range sizes {
				if err := l.Send(domain.Frame{Data: payload.Incrementing(n)}, false); err != nil {
					t.Fatalf("Send() error = %v", err)
				}
			}
			if err := l.Flush(ctx); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
			if err := l.Stop(); err != nil {
				t.Fatalf("Stop() error = %v", err)
			}

			got, err := l.Received()
			if err != nil {
				t.Fatalf("Received() error = %v", err)
			}
			if len(got) != len(sizes) {
				t.Fatalf("received %d frames, want %d", len(got), len(sizes))
			}
			for i, n := range sizes {
				if !bytes.Equal(got[i].Data, codec.Pad(payload.Incrementing(n))) {
					t.Errorf("frame %d: payload mismatch", i)
				}
			}

			st := l.Status()
			if st.State != StateStopped {
				t.Errorf("State = %v, want Stopped", st.State)
			}
			if st.TxCycles != st.RxCycles {
				t.Errorf("TxCycles = %d, RxCycles = %d", st.TxCycles, st.RxCycles)
			}
			if st.Tx.FramesSent != uint64(len(sizes)) || st.Rx.FramesReceived != uint64(len(sizes)) {
				t.Errorf("sent %d, received %d", st.Tx.FramesSent, st.Rx.FramesReceived)
			}
		})
	}
}

func TestLink_CycleBudget(t *testing.T) {
	emitter := &stateRecorder{}
	rec := &beatLog{}
	l := newLink(t, LinkConfig{LaneWidth: 8, IFG: 12, TxEnable: true, Cycles: 100}, emitter)
	l.SetRecorder(rec)
	_ = l.Send(domain.Frame{Data: payload.Incrementing(64)}, false)

	ctx := testContext(t)
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	st := l.Status()
	if st.TxCycles != 100 || st.RxCycles != 100 {
		t.Errorf("cycles = %d/%d, want 100/100", st.TxCycles, st.RxCycles)
	}
	if st.Rx.FramesReceived != 1 {
		t.Errorf("FramesReceived = %d, want 1", st.Rx.FramesReceived)
	}
	if len(rec.cycles) != 100 || rec.cycles[99] != 99 {
		t.Errorf("recorded %d beats", len(rec.cycles))
	}

	want := []string{"Stopped>Starting", "Starting>Running", "Running>Stopping", "Stopping>Stopped"}
	if got := emitter.path(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("path = %v, want %v", got, want)
	}
}

func TestLink_RecorderFailure(t *testing.T) {
	l := newLink(t, LinkConfig{LaneWidth: 4, IFG: 12, TxEnable: true}, nil)
	l.SetRecorder(&beatLog{failAt: 10})

	ctx := testContext(t)
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait() error = nil, want recorder failure")
	}
	if st := l.Status().State; st != StateCrashed {
		t.Errorf("State = %v, want Crashed", st)
	}
	if err := l.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
	// A crashed link can be started again.
	l.SetRecorder(nil)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	_ = l.Stop()
}

func TestLink_StartStopErrors(t *testing.T) {
	l := newLink(t, LinkConfig{LaneWidth: 8, IFG: 12, TxEnable: true}, nil)

	if err := l.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Stop() before Start error = %v, want ErrNotRunning", err)
	}
	if err := l.Flush(context.Background()); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Flush() before Start error = %v, want ErrNotRunning", err)
	}

	ctx := testContext(t)
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(ctx); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if err := l.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := l.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("second Stop() error = %v, want ErrNotRunning", err)
	}
}

func TestLink_ContextCancel(t *testing.T) {
	l := newLink(t, LinkConfig{LaneWidth: 8, IFG: 12, TxEnable: true, ClockPeriod: time.Microsecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	wctx := testContext(t)
	if err := l.Wait(wctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if st := l.Status().State; st != StateStopped {
		t.Errorf("State = %v, want Stopped", st)
	}
}

func TestLink_ErrorFrameAndRestart(t *testing.T) {
	l := newLink(t, LinkConfig{LaneWidth: 4, IFG: 12, TxEnable: true}, nil)
	ctx := testContext(t)

	for round := 0; round < 2; round++ {
		if err := l.Start(ctx); err != nil {
			t.Fatalf("round %d: Start() error = %v", round, err)
		}
		_ = l.Send(domain.Frame{Data: payload.Incrementing(80)}, true)
		_ = l.Send(domain.Frame{Data: payload.Incrementing(81)}, false)
		if err := l.Flush(ctx); err != nil {
			t.Fatalf("round %d: Flush() error = %v", round, err)
		}
		if err := l.Stop(); err != nil {
			t.Fatalf("round %d: Stop() error = %v", round, err)
		}

		got, _ := l.Received()
		if len(got) != 1 || len(got[0].Data) != 81 {
			t.Errorf("round %d: received %d frames, want the 81-byte frame only", round, len(got))
		}
	}
	if got := l.RxStats().RxErrors; got != 2 {
		t.Errorf("RxErrors = %d, want 2", got)
	}
	if got := l.TxStats().TxErrors; got != 2 {
		t.Errorf("TxErrors = %d, want 2", got)
	}
}

func TestLink_Reconfigure(t *testing.T) {
	l := newLink(t, LinkConfig{LaneWidth: 8, IFG: 12, TxEnable: false}, nil)
	ctx := testContext(t)
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	_ = l.Send(domain.Frame{Data: payload.Incrementing(60)}, false)
	time.Sleep(5 * time.Millisecond)
	if got := l.TxStats().FramesSent; got != 0 {
		t.Fatalf("FramesSent = %d while disabled", got)
	}

	l.SetIFG(20)
	l.SetTxEnable(true)
	if err := l.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := l.TxStats().FramesSent; got != 1 {
		t.Errorf("FramesSent = %d, want 1", got)
	}
}
