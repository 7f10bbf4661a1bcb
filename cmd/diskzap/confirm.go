package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/sigreer/diskzap/internal/resolve"
)

// stdinConfirmer prompts before each target. The prompt has a deadline
// so an unattended run falls through to skipping instead of hanging.
type stdinConfirmer struct {
	timeout time.Duration
	lines   chan string
	// stale is set when a prompt times out: a line typed for that
	// prompt may still be in flight and must not confirm the next
	// target.
	stale bool
}

func newStdinConfirmer(timeout time.Duration) *stdinConfirmer {
	return newConfirmer(os.Stdin, timeout)
}

func newConfirmer(r io.Reader, timeout time.Duration) *stdinConfirmer {
	c := &stdinConfirmer{
		timeout: timeout,
		lines:   make(chan string),
	}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		close(c.lines)
	}()
	return c
}

func (c *stdinConfirmer) Confirm(t resolve.Target) (bool, error) {
	if c.stale {
		// Discard a leftover answer to the prompt that timed out; a
		// late "yes" meant for the previous disk must never confirm
		// this one.
		select {
		case <-c.lines:
		default:
		}
		c.stale = false
	}

	desc := t.Path
	if t.Model != "" {
		desc += ", " + t.Model
	}
	if t.Size > 0 {
		desc += ", " + humanize.IBytes(uint64(t.Size))
	}
	if t.Serial != "" {
		desc += ", serial " + t.Serial
	}
	pterm.Warning.Printfln("About to WIPE %s — this cannot be undone.", desc)
	fmt.Printf("Type 'yes' to proceed (anything else skips, %s timeout): ", c.timeout)

	select {
	case line, ok := <-c.lines:
		if !ok {
			return false, fmt.Errorf("stdin closed")
		}
		return strings.TrimSpace(line) == "yes", nil
	case <-time.After(c.timeout):
		fmt.Println()
		c.stale = true
		return false, fmt.Errorf("no answer within %s", c.timeout)
	}
}
