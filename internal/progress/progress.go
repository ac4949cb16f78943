// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress renders per-pair retrieval progress on the console.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Console owns an output stream shared by every bar it creates.
// On a terminal bars redraw in place; elsewhere each bar prints a
// single line when it finishes.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	live bool
	now  func() time.Time
}

// New returns a console writing to out. Live redraws are enabled only
// when out is a terminal.
func New(out io.Writer) *Console {
	live := false
	if f, ok := out.(*os.File); ok {
		live = term.IsTerminal(int(f.Fd()))
	}
	return &Console{out: out, live: live, now: time.Now}
}

// Live reports whether bars redraw in place.
func (c *Console) Live() bool { return c.live }

// SetLive overrides terminal detection.
func (c *Console) SetLive(live bool) { c.live = live }

// Bar returns a new bar. Bars are not reusable across pairs.
func (c *Console) Bar() *Bar {
	return &Bar{console: c}
}

// Bar tracks progress for one (provider, search term) pair.
type Bar struct {
	console *Console
	title   string
	total   int
	done    int
	started time.Time
	active  bool
}

// Start begins tracking total items under title.
func (b *Bar) Start(title string, total int) {
	c := b.console
	c.mu.Lock()
	defer c.mu.Unlock()
	b.title = title
	b.total = total
	b.done = 0
	b.started = c.now()
	b.active = true
	if c.live {
		b.drawLocked()
	}
}

// Add records n more processed items.
func (b *Bar) Add(n int) {
	c := b.console
	c.mu.Lock()
	defer c.mu.Unlock()
	if !b.active {
		return
	}
	b.done += n
	if c.live {
		b.drawLocked()
	}
}

// Finish prints the final line for the bar.
func (b *Bar) Finish() {
	c := b.console
	c.mu.Lock()
	defer c.mu.Unlock()
	if !b.active {
		return
	}
	b.active = false
	elapsed := c.now().Sub(b.started).Round(time.Millisecond)
	if c.live {
		fmt.Fprint(c.out, "\r\033[K")
	}
	fmt.Fprintf(c.out, "%s: %d/%d in %s\n", b.title, b.done, b.total, elapsed)
}

// Done returns the number of items recorded so far.
func (b *Bar) Done() int {
	b.console.mu.Lock()
	defer b.console.mu.Unlock()
	return b.done
}

func (b *Bar) drawLocked() {
	pct := 100
	if b.total > 0 {
		pct = b.done * 100 / b.total
		if pct > 100 {
			pct = 100
		}
	}
	fmt.Fprintf(b.console.out, "\r\033[K%s: %d/%d (%d%%)", b.title, b.done, b.total, pct)
}
