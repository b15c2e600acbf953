// Package Printing runs the short-lived download protocol: load the document,
// render it, invoke the platform print path after the data has settled, then
// hand control back to the caller exactly once when printing finishes. The
// whole thing must survive the user never confirming the print and must leave
// no timer running after teardown.
package Printing

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrAlreadyStarted is returned by Start on reuse; a Coordinator is one-shot.
	ErrAlreadyStarted = errors.New("print coordinator already started")

	// ErrTornDown is returned when Start races with Teardown.
	ErrTornDown = errors.New("print coordinator torn down")
)

// Config wires a Coordinator to its collaborators.
type Config struct {
	// Load fetches the document's full data, same path as normal editing.
	Load func(ctx context.Context) error

	// Render produces the print-formatted document from the loaded data.
	Render func() error

	// InvokePrint triggers the platform print step. Optional.
	InvokePrint func()

	// OnComplete is the caller's return-to-list action. Fires at most once.
	OnComplete func()

	// SettleDelay separates load completion from the print invocation so the
	// rendered layout can stabilize. CompletionDelay separates the finished
	// signal from OnComplete.
	SettleDelay     time.Duration
	CompletionDelay time.Duration
}

// Coordinator executes one download-mode pass. PrintFinished is the platform's
// completion signal; Finish is the manual fallback for a cancelled print
// dialog. Both funnel into the same one-shot completion path.
type Coordinator struct {
	cfg Config

	mu        sync.Mutex
	started   bool
	tornDown  bool
	completed bool
	printTm   *time.Timer
	finishTm  *time.Timer
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}
	if cfg.CompletionDelay <= 0 {
		cfg.CompletionDelay = 500 * time.Millisecond
	}
	return &Coordinator{cfg: cfg}
}

// Start loads and renders the document, then schedules the print invocation
// after the settle delay. It returns once the document is rendered; the print
// step and completion run from timers.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if c.cfg.Load != nil {
		if err := c.cfg.Load(ctx); err != nil {
			return err
		}
	}
	if c.cfg.Render != nil {
		if err := c.cfg.Render(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return ErrTornDown
	}
	if c.cfg.InvokePrint != nil {
		c.printTm = time.AfterFunc(c.cfg.SettleDelay, c.cfg.InvokePrint)
	}
	return nil
}

// PrintFinished is the platform's print-completed signal. The first call
// schedules OnComplete after the completion delay; repeat signals are ignored.
func (c *Coordinator) PrintFinished() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown || c.completed {
		return
	}
	c.completed = true
	c.finishTm = time.AfterFunc(c.cfg.CompletionDelay, c.complete)
}

// Finish is the manual "done" action for the case where the platform signal
// never fires (user cancelled the print dialog). It shares the one-shot guard
// with PrintFinished, so the callback still cannot fire twice.
func (c *Coordinator) Finish() {
	c.mu.Lock()
	if c.tornDown || c.completed {
		c.mu.Unlock()
		return
	}
	c.completed = true
	c.mu.Unlock()
	c.complete()
}

// Teardown cancels pending timers and suppresses any not-yet-fired callback.
// Safe to call more than once and after completion.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tornDown = true
	if c.printTm != nil {
		c.printTm.Stop()
	}
	if c.finishTm != nil {
		c.finishTm.Stop()
	}
}

func (c *Coordinator) complete() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	cb := c.cfg.OnComplete
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}
