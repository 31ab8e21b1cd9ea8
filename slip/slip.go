// Package slip provides manual instrumentation of code regions.
//
// Regions are identified by tags. A tag is registered once by name while the
// tracker is disabled and then passed to [Tracker.Begin] and [Tracker.End]
// around the code to measure. Every completed span is accounted twice: in a
// flat record per tag and in a call tree keyed by the tags enclosing it at
// the moment it ran. An example tree may be:
//
//	 (root)
//	  ├ Update
//	  │  └ Physics
//	  └ Render
//	     ├ Physics
//	     └ Draw
//
// where the two Physics nodes are accounted separately while the flat record
// of Physics holds their sum.
//
// Statistics are collected in windows. [Tracker.Checkpoint] folds the
// current window into lifetime totals and opens a new one. The first window
// after [Tracker.Enable] is discarded.
//
// A Tracker is not safe for concurrent use: begin and end calls must be
// strictly nested and issued from a single goroutine.
package slip

import (
	"os"

	"golang.org/x/exp/slog"
)

func init() {
	logLevel = new(slog.LevelVar)
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(h)
}

var (
	logger   *slog.Logger
	logLevel *slog.LevelVar
)

// SetLogger set the logger used by slip.
// [SetLogLevel] will not be enforced if a custom logger is used.
func SetLogger(newlogger *slog.Logger) {
	logger = newlogger
}

// SetLogLevel sets the level for slip messages unless [SetLogger] has been called.
// The default log level is the zero value of [slog.LevelVar].
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}
