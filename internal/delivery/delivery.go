package delivery

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// Sink receives the final assembled document.
type Sink interface {
	Deliver(ctx context.Context, text string) error
}

// Clipboard places the document on the system clipboard, preferring the
// native clipboard bindings and falling back to wl-copy on Wayland
// setups where those are unavailable.
type Clipboard struct {
	Timeout time.Duration
}

func (c Clipboard) Deliver(ctx context.Context, text string) error {
	err := clipboard.WriteAll(text)
	if err == nil {
		return nil
	}
	log.Printf("delivery: clipboard bindings failed, trying wl-copy: %v", err)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("delivery: no clipboard backend available: %w", err)
	}
	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("delivery: wl-copy failed: %w", err)
	}
	return nil
}

// LogSink logs the document instead of delivering it anywhere. Used in
// tests and headless runs.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, text string) error {
	log.Printf("delivery: %q", text)
	return nil
}
