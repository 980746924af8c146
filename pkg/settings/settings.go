// Package settings holds build metadata and the options of one gridkit run,
// and carries them through contexts.
package settings

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone names resolve on hosts without a zoneinfo database
)

// CliBinaryName is the canonical binary name.
const CliBinaryName = "gridkit"

// ConfigFileName is the app config file looked up in the working directory
// and the user config directory.
const ConfigFileName = CliBinaryName + ".yaml"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo describes the running binary.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the options of a single execution: logging and output
// behavior plus the compile defaults the app config and flags resolve to.
type Run struct {
	MinLogLevel int8
	IsQuiet     bool
	NoColor     bool
	ExitOnError bool

	Locale   string
	Currency string
	Timezone string

	// Strategy is a merge strategy name; empty uses the mode's default.
	Strategy       string
	AllowConflicts bool
	AutomaticCasts bool
	CacheCasts     bool
	// ParallelRows bounds concurrent row formatting; 0 means GOMAXPROCS.
	ParallelRows int
}

// NewCliParams returns the defaults of a CLI run.
func NewCliParams() *Run {
	return &Run{
		ExitOnError:    true,
		Locale:         "en-US",
		Currency:       "USD",
		Timezone:       "UTC",
		AllowConflicts: true,
		AutomaticCasts: true,
		CacheCasts:     true,
	}
}

// Location loads the configured timezone. An empty timezone is UTC.
func (r *Run) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}
