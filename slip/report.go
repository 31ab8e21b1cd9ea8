package slip

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rodaine/table"
	"golang.org/x/exp/slog"
)

// Sink receives report lines, without trailing newline.
type Sink interface {
	Emit(line string)
}

// SinkFunc adapts a function to a [Sink].
type SinkFunc func(line string)

// Emit calls f(line).
func (f SinkFunc) Emit(line string) {
	f(line)
}

// WriterSink returns a [Sink] writing one line per call to w.
func WriterSink(w io.Writer) Sink {
	return SinkFunc(func(line string) {
		fmt.Fprintln(w, line)
	})
}

// StdoutSink returns a [Sink] writing to standard output.
func StdoutSink() Sink {
	return WriterSink(os.Stdout)
}

// LogSink returns a [Sink] logging every line at info level.
func LogSink(l *slog.Logger) Sink {
	return SinkFunc(func(line string) {
		l.Info(line)
	})
}

// Report writes the lifetime statistics to the tracker sink: one line per
// tag, then the call tree in pre-order.
func (t *Tracker) Report() {
	t.ReportTo(t.sink)
}

// ReportTo is like [Tracker.Report] but writes to s.
func (t *Tracker) ReportTo(s Sink) {
	for _, tag := range t.Tags() {
		s.Emit(t.reportLine(tag, t.Flat(tag)))
	}

	s.Emit("")
	s.Emit("tree calls")
	s.Emit("")

	t.Walk(func(n NodeInfo) bool {
		s.Emit(strings.Repeat("\t", n.Depth-1) + t.reportLine(n.Tag, n.Stats))
		return true
	})
}

func (t *Tracker) reportLine(tag Tag, s Stats) string {
	name, _ := t.registry.name(tag)
	return fmt.Sprintf("%s (id: %d): took %.3fms for %d calls (%.3fms avg, %.3fms min, %.3fms max)",
		name, tag,
		s.Lifetime.Total/1000,
		s.Lifetime.Count,
		s.Average()/1000,
		s.MinTime()/1000,
		s.Lifetime.Max/1000)
}

// PrintTable writes the lifetime statistics to w as two tables, one for the
// flat records and one for the call tree.
func (t *Tracker) PrintTable(w io.Writer) {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()

	tbl := newStatsTable("tag", w)
	tbl.WithHeaderFormatter(headerFmt)
	for _, tag := range t.Tags() {
		name, _ := t.registry.name(tag)
		addStatsRow(tbl, name, tag, t.Flat(tag))
	}
	color.New(color.FgGreen).Add(color.Bold).Fprintf(w, "\nⓉ Tags\n")
	tbl.Print()

	headerFmt = color.New(color.FgYellow, color.Underline).SprintfFunc()

	tbl = newStatsTable("call", w)
	tbl.WithHeaderFormatter(headerFmt)
	t.Walk(func(n NodeInfo) bool {
		name := strings.Repeat("  ", n.Depth-1) + "└ " + n.Name
		addStatsRow(tbl, name, n.Tag, n.Stats)
		return true
	})
	color.New(color.FgYellow).Add(color.Bold).Fprintf(w, "\nⓉ Call tree\n")
	tbl.Print()
}

func newStatsTable(first string, w io.Writer) table.Table {
	return table.New(
		first,
		"id",
		"total runtime",
		"calls",
		"mean runtime",
		"min runtime",
		"max runtime",
	).WithWriter(w)
}

func addStatsRow(tbl table.Table, name string, tag Tag, s Stats) {
	tbl.AddRow(
		name,
		int(tag),
		microseconds(s.Lifetime.Total),
		humanize.Comma(int64(s.Lifetime.Count)),
		microseconds(s.Average()),
		microseconds(s.MinTime()),
		microseconds(s.Lifetime.Max))
}

func microseconds(us float64) time.Duration {
	return time.Duration(us * float64(time.Microsecond))
}
