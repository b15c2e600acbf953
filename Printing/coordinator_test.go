package Printing_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"Caravan/Printing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_RunsLoadRenderPrintInOrder(t *testing.T) {
	var loaded, rendered atomic.Bool
	printed := make(chan struct{})

	c := Printing.NewCoordinator(Printing.Config{
		Load: func(ctx context.Context) error {
			loaded.Store(true)
			return nil
		},
		Render: func() error {
			require.True(t, loaded.Load(), "render must follow load")
			rendered.Store(true)
			return nil
		},
		InvokePrint: func() {
			require.True(t, rendered.Load(), "print must follow render")
			close(printed)
		},
		SettleDelay:     5 * time.Millisecond,
		CompletionDelay: 5 * time.Millisecond,
	})

	require.NoError(t, c.Start(context.Background()))

	select {
	case <-printed:
	case <-time.After(time.Second):
		t.Fatal("print invocation never fired")
	}
}

func TestCoordinator_LoadFailureStopsProtocol(t *testing.T) {
	loadErr := errors.New("not found")
	c := Printing.NewCoordinator(Printing.Config{
		Load:   func(ctx context.Context) error { return loadErr },
		Render: func() error { t.Fatal("render must not run"); return nil },
	})

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, loadErr)
}

func TestCoordinator_CompletionFiresExactlyOnce(t *testing.T) {
	// The platform signal may fire repeatedly; the callback must not.
	var completions atomic.Int32
	done := make(chan struct{})

	c := Printing.NewCoordinator(Printing.Config{
		OnComplete: func() {
			completions.Add(1)
			select {
			case <-done:
			default:
				close(done)
			}
		},
		SettleDelay:     5 * time.Millisecond,
		CompletionDelay: 5 * time.Millisecond,
	})
	require.NoError(t, c.Start(context.Background()))

	c.PrintFinished()
	c.PrintFinished()
	c.PrintFinished()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}
	// Give duplicate timers (if any leaked) a chance to fire before counting.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), completions.Load())
}

func TestCoordinator_ManualFinishSharesOneShotGuard(t *testing.T) {
	var completions atomic.Int32

	c := Printing.NewCoordinator(Printing.Config{
		OnComplete:      func() { completions.Add(1) },
		SettleDelay:     5 * time.Millisecond,
		CompletionDelay: 5 * time.Millisecond,
	})
	require.NoError(t, c.Start(context.Background()))

	c.Finish()
	c.PrintFinished()
	c.Finish()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), completions.Load())
}

func TestCoordinator_TeardownCancelsPendingCompletion(t *testing.T) {
	var completions atomic.Int32

	c := Printing.NewCoordinator(Printing.Config{
		OnComplete:      func() { completions.Add(1) },
		SettleDelay:     5 * time.Millisecond,
		CompletionDelay: 30 * time.Millisecond,
	})
	require.NoError(t, c.Start(context.Background()))

	c.PrintFinished()
	c.Teardown()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), completions.Load(), "no callback after teardown")
}

func TestCoordinator_TeardownCancelsPendingPrint(t *testing.T) {
	var prints atomic.Int32

	c := Printing.NewCoordinator(Printing.Config{
		InvokePrint:     func() { prints.Add(1) },
		SettleDelay:     30 * time.Millisecond,
		CompletionDelay: 5 * time.Millisecond,
	})
	require.NoError(t, c.Start(context.Background()))

	c.Teardown()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), prints.Load(), "no print invocation after teardown")
}

func TestCoordinator_NoAutomaticCompletionWithoutSignal(t *testing.T) {
	// A cancelled system print dialog means the signal never arrives; the
	// coordinator must simply wait, not complete on its own.
	var completions atomic.Int32

	c := Printing.NewCoordinator(Printing.Config{
		OnComplete:      func() { completions.Add(1) },
		SettleDelay:     5 * time.Millisecond,
		CompletionDelay: 5 * time.Millisecond,
	})
	require.NoError(t, c.Start(context.Background()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), completions.Load())

	c.Teardown()
}

func TestCoordinator_IsOneShot(t *testing.T) {
	c := Printing.NewCoordinator(Printing.Config{})
	require.NoError(t, c.Start(context.Background()))

	assert.ErrorIs(t, c.Start(context.Background()), Printing.ErrAlreadyStarted)

	c.Teardown()
	fresh := Printing.NewCoordinator(Printing.Config{})
	fresh.Teardown()
	assert.ErrorIs(t, fresh.Start(context.Background()), Printing.ErrTornDown)
}
