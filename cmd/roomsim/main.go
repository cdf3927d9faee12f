// Command roomsim computes room impulse responses for a YAML scene and
// prints their acoustic parameters.
//
// Usage:
//
//	roomsim [flags] scene.yaml
//
// Flags override the solver settings of the scene. One row is printed per
// source and microphone pair.
//
// Examples:
//
//	roomsim office.yaml
//	roomsim -order 12 -rays 20000 -seed 1 office.yaml
//	roomsim -bands -theory office.yaml
//	roomsim -sweep 3 office.yaml
//	roomsim -materials mytable.yaml office.yaml
//	roomsim -list-materials
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-room/measure/ir"
	"github.com/cwbudde/algo-room/measure/sweep"
	"github.com/cwbudde/algo-room/room"
	"github.com/cwbudde/algo-room/room/material"
	"github.com/cwbudde/algo-room/room/scene"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type settings struct {
	sampleRate float64
	maxOrder   int
	rays       int
	seed       int64
	rayTracing bool
	materials  string
	list       bool
	bands      bool
	theory     bool
	progress   bool
	sweep      float64
	timeout    time.Duration
}

func parseFlags(args []string, stderr io.Writer) (*settings, []string, map[string]bool, error) {
	var s settings

	fs := flag.NewFlagSet("roomsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Float64Var(&s.sampleRate, "fs", room.DefaultSampleRate, "sample rate in Hz")
	fs.IntVar(&s.maxOrder, "order", room.DefaultMaxOrder, "maximum image source order")
	fs.IntVar(&s.rays, "rays", 0, "rays per source (enables ray tracing)")
	fs.Int64Var(&s.seed, "seed", 0, "seed for the random draws")
	fs.BoolVar(&s.rayTracing, "rt", false, "enable ray tracing")
	fs.StringVar(&s.materials, "materials", "", "material table file replacing the built-in presets")
	fs.BoolVar(&s.list, "list-materials", false, "list available material presets")
	fs.BoolVar(&s.bands, "bands", false, "print reverberation times per octave band")
	fs.BoolVar(&s.theory, "theory", false, "print Sabine and Eyring estimates per band")
	fs.BoolVar(&s.progress, "progress", false, "report ray tracing progress on stderr")
	fs.Float64Var(&s.sweep, "sweep", 0, "also measure every response with a log sweep of this many seconds")
	fs.DurationVar(&s.timeout, "timeout", 0, "abort the computation after this duration")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: roomsim [flags] scene.yaml\n\n")
		fmt.Fprintf(stderr, "Computes room impulse responses and prints their acoustic parameters.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  roomsim office.yaml\n")
		fmt.Fprintf(stderr, "  roomsim -order 12 -rays 20000 -seed 1 office.yaml\n")
		fmt.Fprintf(stderr, "  roomsim -bands -theory office.yaml\n")
		fmt.Fprintf(stderr, "  roomsim -sweep 3 office.yaml\n")
		fmt.Fprintf(stderr, "  roomsim -list-materials\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return &s, fs.Args(), set, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	s, rest, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	table := material.DefaultTable()
	if s.materials != "" {
		table, err = material.LoadTableFile(s.materials)
		if err != nil {
			return err
		}
	}

	if s.list {
		return printMaterials(stdout, table)
	}

	if len(rest) != 1 {
		return errors.New("expected exactly one scene file (see -h)")
	}

	sc, err := scene.Load(rest[0])
	if err != nil {
		return err
	}

	r, err := sc.Build(table, overrides(s, set, stderr)...)
	if err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := r.ComputeRIR(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "computed %d responses in %v\n", res.NumSources()*res.NumMics(), time.Since(start).Round(time.Millisecond))

	if err := printMetrics(stdout, res); err != nil {
		return err
	}
	if s.bands {
		if err := printBands(stdout, r, res); err != nil {
			return err
		}
	}
	if s.theory {
		if err := printTheory(stdout, r); err != nil {
			return err
		}
	}
	if s.sweep > 0 {
		return printSweep(stdout, res, s.sweep)
	}
	return nil
}

// overrides turns the flags given on the command line into room options.
// They are applied after the scene's own settings.
func overrides(s *settings, set map[string]bool, stderr io.Writer) []room.Option {
	var opts []room.Option
	if set["fs"] {
		opts = append(opts, room.WithSampleRate(s.sampleRate))
	}
	if set["order"] {
		opts = append(opts, room.WithMaxOrder(s.maxOrder))
	}
	if set["rt"] {
		opts = append(opts, room.WithRayTracing(s.rayTracing))
	}
	if set["rays"] {
		opts = append(opts, room.WithRayTracing(true), room.WithNumRays(s.rays))
	}
	if set["seed"] {
		opts = append(opts, room.WithSeed(s.seed))
	}
	if s.progress {
		opts = append(opts, room.WithProgress(func(source, done, total int) {
			fmt.Fprintf(stderr, "\rsource %d: %d/%d rays", source, done, total)
			if done == total {
				fmt.Fprintln(stderr)
			}
		}))
	}
	return opts
}

func printMaterials(w io.Writer, t *material.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Material\tCategory\n")
	fmt.Fprintf(tw, "--------\t--------\n")
	for _, name := range t.Names() {
		cat, _ := t.Category(name)
		fmt.Fprintf(tw, "%s\t%s\n", name, cat)
	}
	return tw.Flush()
}

func printMetrics(w io.Writer, res *room.Result) error {
	a, err := ir.NewAnalyzer(res.SampleRate())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Pair\tSamples\tRT60 [s]\tEDT [s]\tC50 [dB]\tC80 [dB]\tD50\tDRR [dB]\n")
	fmt.Fprintf(tw, "----\t-------\t--------\t-------\t--------\t--------\t---\t--------\n")
	for i := range res.NumSources() {
		for j := range res.NumMics() {
			rir := res.At(i, j)
			m, err := a.Analyze(rir)
			if err != nil {
				return fmt.Errorf("%s: %w", room.Key(i, j), err)
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.2f\t%.2f\t%.3f\t%.2f\n",
				room.Key(i, j),
				len(rir),
				seconds(m.RT60),
				seconds(m.EDT),
				m.C50,
				m.C80,
				m.D50,
				m.DRR,
			)
		}
	}
	return tw.Flush()
}

func printBands(w io.Writer, r *room.Room, res *room.Result) error {
	a, err := ir.NewAnalyzer(res.SampleRate())
	if err != nil {
		return err
	}
	b := r.Bands()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nPair")
	for i := range b.Len() {
		fmt.Fprintf(tw, "\t%g Hz", b.Center(i))
	}
	fmt.Fprintln(tw)

	for i := range res.NumSources() {
		for j := range res.NumMics() {
			metrics, err := a.AnalyzeBands(res.At(i, j), b)
			if err != nil {
				return fmt.Errorf("%s: %w", room.Key(i, j), err)
			}
			fmt.Fprintf(tw, "%s", room.Key(i, j))
			for _, m := range metrics {
				fmt.Fprintf(tw, "\t%s", seconds(m.RT60))
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}

func printTheory(w io.Writer, r *room.Room) error {
	b := r.Bands()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nEstimate")
	for i := range b.Len() {
		fmt.Fprintf(tw, "\t%g Hz", b.Center(i))
	}
	fmt.Fprintln(tw)

	for _, method := range []room.RT60Method{room.Sabine, room.Eyring} {
		rt, err := r.RT60Theory(method)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s", method)
		for _, v := range rt {
			fmt.Fprintf(tw, "\t%s", seconds(v))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// printSweep repeats the metrics table for the responses as an exponential
// sweep measurement would capture them.
func printSweep(w io.Writer, res *room.Result, duration float64) error {
	fs := res.SampleRate()
	sw := &sweep.LogSweep{
		StartFreq:  50,
		EndFreq:    0.45 * fs,
		Duration:   duration,
		SampleRate: fs,
		Fade:       min(0.05, duration/4),
	}
	a, err := ir.NewAnalyzer(fs)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nSweep\tRT60 [s]\tEDT [s]\tC80 [dB]\tD50\n")
	for i := range res.NumSources() {
		for j := range res.NumMics() {
			measured, err := sw.Measure(res.At(i, j))
			if err != nil {
				return fmt.Errorf("%s: %w", room.Key(i, j), err)
			}
			m, err := a.Analyze(measured)
			if err != nil {
				return fmt.Errorf("%s: %w", room.Key(i, j), err)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.3f\n", room.Key(i, j), seconds(m.RT60), seconds(m.EDT), m.C80, m.D50)
		}
	}
	return tw.Flush()
}

// seconds formats a decay time, printing "-" when none could be measured.
func seconds(v float64) string {
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}
