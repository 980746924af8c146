// Package limiter windows compiled rows for display: a page from an offset,
// or the last few rows.
package limiter

import (
	"errors"
	"fmt"
)

// ErrExclusive is returned when both a limit and a tail are set.
var ErrExclusive = errors.New("--limit and --tail are mutually exclusive")

// Config holds the window parameters. Zero values disable each bound.
type Config struct {
	Limit  int // keep at most this many rows
	Offset int // skip this many rows first; ignored with Tail
	Tail   int // keep only the last this many rows
}

// Validate rejects negative bounds and a limit combined with a tail.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{{"--limit", c.Limit}, {"--offset", c.Offset}, {"--tail", c.Tail}} {
		if f.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", f.name, f.v)
		}
	}
	if c.Limit > 0 && c.Tail > 0 {
		return ErrExclusive
	}
	return nil
}

// IsActive reports whether any bound is set.
func (c Config) IsActive() bool {
	return c.Limit > 0 || c.Offset > 0 || c.Tail > 0
}

// Bounds returns the half-open window [start, end) over n rows.
func (c Config) Bounds(n int) (start, end int) {
	if c.Tail > 0 {
		return max(n-c.Tail, 0), n
	}
	start = min(c.Offset, n)
	end = n
	if c.Limit > 0 {
		end = min(start+c.Limit, n)
	}
	return start, end
}

// Apply returns the window of rows. The result shares rows' backing array.
func Apply[T any](c Config, rows []T) []T {
	if !c.IsActive() {
		return rows
	}
	start, end := c.Bounds(len(rows))
	return rows[start:end]
}

// Page describes a window for display, such as "rows 11-20 of 57".
type Page struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
	Total int `json:"total" yaml:"total"`
}

// PageOf returns the window c selects over n rows.
func (c Config) PageOf(n int) Page {
	start, end := c.Bounds(n)
	return Page{Start: start, End: end, Total: n}
}

// String implements fmt.Stringer.
func (p Page) String() string {
	if p.End <= p.Start {
		return fmt.Sprintf("no rows of %d", p.Total)
	}
	return fmt.Sprintf("rows %d-%d of %d", p.Start+1, p.End, p.Total)
}
