// Package main provides slipdemo, a simulated game loop instrumented with slip.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/zoobzio/clockz"
	"golang.org/x/exp/slog"

	"github.com/onegii/go-slip/internal/config"
	"github.com/onegii/go-slip/slip"
)

var (
	configPath      string
	frames          int
	checkpointEvery int
	format          string
	logLevel        string
	simulate        bool
)

var rootCmd = &cobra.Command{
	Use:   "slipdemo",
	Short: "Run a simulated game loop and report where the time went",
	Long: `slipdemo runs a game loop whose update and render phases are
instrumented with slip. Statistics are checkpointed every few frames and a
report of the flat and per-call-site totals is printed at the end.

Configuration is read from defaults, the --config TOML file, SLIP_*
environment variables and flags, in increasing order of priority.`,
	SilenceUsage: true,
	RunE:         runDemo,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	f.IntVarP(&frames, "frames", "n", 0, "number of frames to run")
	f.IntVar(&checkpointEvery, "checkpoint-every", 0, "frames per statistics window")
	f.StringVarP(&format, "format", "f", "", "report format: text or table")
	f.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.BoolVar(&simulate, "simulate", false, "use a fake clock for reproducible output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// changedFlags returns the flags set on the command line keyed like the
// config file.
func changedFlags(cmd *cobra.Command) map[string]any {
	flags := make(map[string]any)
	f := cmd.Flags()

	if f.Changed("frames") {
		flags["frames"] = frames
	}
	if f.Changed("checkpoint-every") {
		flags["checkpoint_every"] = checkpointEvery
	}
	if f.Changed("format") {
		flags["format"] = format
	}
	if f.Changed("log-level") {
		flags["log_level"] = logLevel
	}
	if f.Changed("simulate") {
		flags["simulate"] = simulate
	}

	return flags
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, changedFlags(cmd))
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slip.SetLogger(logger)

	return run(cfg, cmd.OutOrStdout(), logger)
}

// run drives cfg.Frames frames and writes the final report to out.
func run(cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	var (
		base  clockz.Clock = clockz.RealClock
		spend              = clockz.RealClock.Sleep
	)
	if cfg.Simulate {
		fake := clockz.NewFakeClock()
		base, spend = fake, fake.Advance
	}

	tracker := slip.NewBuilder().
		WithClock(slip.NewClock(base, cfg.Resolution)).
		WithSink(slip.WriterSink(out)).
		New()
	defer tracker.Close()

	g := &game{
		tracker: tracker,
		tags:    declarePhases(tracker),
		spend:   spend,
	}

	if err := tracker.Enable(); err != nil {
		return err
	}

	start := base.Now()
	for n := 0; n < cfg.Frames; n++ {
		g.frame(n)

		if (n+1)%cfg.CheckpointEvery == 0 {
			tracker.Checkpoint()
			logger.Debug("checkpoint", slog.Int("frame", n+1))
		}
	}
	logger.Info("run finished",
		slog.Int("frames", cfg.Frames),
		slog.Duration("elapsed", base.Since(start)))

	if cfg.Format == config.FormatTable {
		if err := tracker.Disable(false); err != nil {
			return err
		}
		tracker.PrintTable(out)
		return nil
	}

	return tracker.Disable(true)
}
