package session

import (
	"math"

	"github.com/Noquela/duat-server/internal/config"
)

// scriptCursor walks one enemy's timeline against the session clock.
// Entries fire at the first step where the clock reaches their time;
// repeating entries then advance by their cadence.
type scriptCursor struct {
	actorID string
	entries []config.TimelineEntry
	nextAt  []float64
}

func newScriptCursor(actorID string, entries []config.TimelineEntry) *scriptCursor {
	c := &scriptCursor{
		actorID: actorID,
		entries: entries,
		nextAt:  make([]float64, len(entries)),
	}
	for i := range entries {
		c.nextAt[i] = entries[i].At
	}
	return c
}

// due returns the entries whose fire time has been reached. A repeating
// entry fires once per call even when the clock skipped several cadence
// slots; spent one-shot entries never fire again.
func (c *scriptCursor) due(now float64) []config.TimelineEntry {
	var out []config.TimelineEntry
	for i := range c.entries {
		if now < c.nextAt[i] {
			continue
		}
		out = append(out, c.entries[i])
		if c.entries[i].Every > 0 {
			for c.nextAt[i] <= now {
				c.nextAt[i] += c.entries[i].Every
			}
		} else {
			c.nextAt[i] = math.Inf(1)
		}
	}
	return out
}
