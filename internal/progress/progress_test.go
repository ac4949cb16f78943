// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedConsole(buf *bytes.Buffer, live bool) *Console {
	c := New(buf)
	c.SetLive(live)
	t0 := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	calls := 0
	c.now = func() time.Time {
		calls++
		return t0.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
	}
	return c
}

func TestNewDetectsNonTerminal(t *testing.T) {
	assert.False(t, New(&bytes.Buffer{}).Live())
}

func TestBarQuietOutput(t *testing.T) {
	var buf bytes.Buffer
	b := fixedConsole(&buf, false).Bar()

	b.Start("pubmed ai", 3)
	b.Add(1)
	b.Add(2)
	assert.Empty(t, buf.String(), "non-live bars print only on finish")

	b.Finish()
	assert.Equal(t, "pubmed ai: 3/3 in 1.5s\n", buf.String())
	assert.Equal(t, 3, b.Done())
}

func TestBarLiveRedraws(t *testing.T) {
	var buf bytes.Buffer
	b := fixedConsole(&buf, true).Bar()

	b.Start("doaj ml", 4)
	b.Add(1)
	b.Finish()

	out := buf.String()
	assert.Contains(t, out, "\r\033[Kdoaj ml: 0/4 (0%)")
	assert.Contains(t, out, "\r\033[Kdoaj ml: 1/4 (25%)")
	assert.True(t, strings.HasSuffix(out, "doaj ml: 1/4 in 1.5s\n"))
}

func TestBarIgnoresCallsOutsideStartFinish(t *testing.T) {
	var buf bytes.Buffer
	b := fixedConsole(&buf, false).Bar()
	b.Add(5)
	b.Finish()
	assert.Empty(t, buf.String())
	assert.Equal(t, 0, b.Done())
}

func TestZeroTotalShowsComplete(t *testing.T) {
	var buf bytes.Buffer
	b := fixedConsole(&buf, true).Bar()
	b.Start("eric x", 0)
	assert.Contains(t, buf.String(), "(100%)")
}

func TestBarsShareConsoleSafely(t *testing.T) {
	var buf bytes.Buffer
	c := fixedConsole(&buf, false)
	c.now = time.Now

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := c.Bar()
			b.Start("p t", 10)
			for j := 0; j < 10; j++ {
				b.Add(1)
			}
			b.Finish()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, strings.Count(buf.String(), "p t: 10/10 in "))
}
