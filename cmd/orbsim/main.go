// Command orbsim estimates how similar two images are by matching ORB
// features per colour channel, and writes a side-by-side composite of the
// strongest correspondences.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"orbsim/internal/compare"
	"orbsim/internal/config"
	"orbsim/internal/history"
	orbimage "orbsim/internal/image"
	"orbsim/internal/logging"
	"orbsim/internal/render"
	"orbsim/internal/version"

	"github.com/rs/zerolog"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1 // load failure, usage or runtime error
	exitNoResult = 2
)

const windowTitle = "Similarities"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath  string
	saveConfig  string
	out         string
	show        bool
	historyPath string
	listHistory int
	showVersion bool
	logJSON     bool
	logLevel    string
	features    int
	threshold   float64
	drawn       int
	channels    string
	sequential  bool
	seed        int64
	caption     bool
	backend     string
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, map[string]bool, error) {
	fs := flag.NewFlagSet("orbsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: orbsim [flags] <image1> <image2>")
		fs.PrintDefaults()
	}

	o := &options{}
	fs.StringVar(&o.configPath, "config", config.DefaultPath(), "JSON configuration file")
	fs.StringVar(&o.saveConfig, "save-config", "", "Write the effective configuration to this path")
	fs.StringVar(&o.out, "out", "", "Composite output path (.png or .jpg); overrides config")
	fs.BoolVar(&o.show, "show", false, "Display the composite in a window")
	fs.StringVar(&o.historyPath, "history", "", "SQLite database recording each comparison")
	fs.IntVar(&o.listHistory, "list-history", 0, "Print the N most recent comparisons from -history and exit")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&o.logJSON, "log-json", false, "Log JSON lines instead of console output")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	fs.IntVar(&o.features, "features", 0, "Keypoints per channel; overrides config")
	fs.Float64Var(&o.threshold, "threshold", 0, "RANSAC reprojection threshold in pixels; overrides config")
	fs.IntVar(&o.drawn, "matches", 0, "Correspondences drawn on the composite; overrides config")
	fs.StringVar(&o.channels, "channels", "", "Channel processing order, e.g. BGR; overrides config")
	fs.BoolVar(&o.sequential, "sequential", false, "Process channels one after another")
	fs.Int64Var(&o.seed, "seed", 0, "RANSAC sampler seed; overrides config")
	fs.BoolVar(&o.caption, "caption", false, "Print the score on the composite")
	fs.StringVar(&o.backend, "backend", "go", "Feature backend: go, or cv when built with -tags withcv")

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, fs.Args(), set, nil
}

// applyOverrides copies explicitly set flags onto cfg.
func applyOverrides(cfg *config.Config, o *options, set map[string]bool) {
	if set["out"] {
		cfg.Output = o.out
	}
	if set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
	if set["features"] {
		cfg.MaxFeatures = o.features
	}
	if set["threshold"] {
		cfg.RANSACThreshold = o.threshold
	}
	if set["matches"] {
		cfg.MaxDrawnMatches = o.drawn
	}
	if set["channels"] {
		cfg.ChannelOrder = o.channels
	}
	if set["sequential"] {
		cfg.Parallel = !o.sequential
	}
	if set["seed"] {
		cfg.Seed = o.seed
	}
	if set["caption"] {
		cfg.Caption = o.caption
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, rest, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	if o.showVersion {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}
	applyOverrides(&cfg, o, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid options: %v\n", err)
		return exitFailure
	}

	base, err := logging.New(stderr, logging.Options{Level: cfg.LogLevel, JSON: o.logJSON})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to set up logging: %v\n", err)
		return exitFailure
	}
	logger := logging.Component(base, "cli")

	if o.saveConfig != "" {
		if err := cfg.Save(o.saveConfig); err != nil {
			logger.Error().Err(err).Msg("save config")
			return exitFailure
		}
		logger.Info().Str("path", o.saveConfig).Msg("configuration written")
		if len(rest) == 0 {
			return exitOK
		}
	}

	var store *history.Store
	if o.historyPath != "" {
		store, err = history.Open(o.historyPath, base)
		if err != nil {
			logger.Error().Err(err).Msg("open history")
			return exitFailure
		}
		defer store.Close()
	}

	if o.listHistory > 0 {
		if store == nil {
			fmt.Fprintln(stderr, "-list-history requires -history")
			return exitFailure
		}
		return listHistory(ctx, store, o.listHistory, stdout, logger)
	}

	if len(rest) != 2 {
		fmt.Fprintln(stderr, "Usage: orbsim [flags] <image1> <image2>")
		return exitFailure
	}
	path1, path2 := rest[0], rest[1]
	for _, path := range rest {
		if !orbimage.IsSupportedFormat(path) {
			logger.Warn().Str("path", path).Strs("supported", orbimage.SupportedFormats()).Msg("unrecognised image extension")
		}
	}

	detector, closeDetector, err := newDetector(o.backend, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("create detector")
		return exitFailure
	}
	defer closeDetector()

	comparer, err := compare.New(cfg, detector, base)
	if err != nil {
		logger.Error().Err(err).Msg("create comparer")
		return exitFailure
	}

	start := time.Now()
	res, err := comparer.ComparePaths(ctx, path1, path2)
	outcome := compare.OutcomeLoadFailure
	if res != nil {
		outcome = res.Outcome
	}
	if err != nil && !errors.Is(err, orbimage.ErrLoad) {
		logger.Error().Err(err).Msg("comparison failed")
		return exitFailure
	}
	if err != nil {
		logger.Warn().Err(err).Msg("could not load images")
	}

	entry := history.Entry{
		Image1:       path1,
		Image2:       path2,
		Outcome:      outcome.String(),
		ChannelOrder: cfg.ChannelOrder,
	}

	code := exitFailure
	switch outcome {
	case compare.OutcomeOK:
		code = exitOK
		entry.Similarity = res.Score.Percent
		entry.Inliers = res.Score.TotalInliers
		entry.Keypoints = res.Score.TotalKeypoints
		fmt.Fprintf(stdout, "Image 1 is %.2f%% similar to Image 2.\n", res.Score.Percent)

		if cfg.Output != "" {
			if err := render.Save(cfg.Output, res.Composite, cfg.Render()); err != nil {
				logger.Error().Err(err).Msg("save composite")
				return exitFailure
			}
			entry.Composite = cfg.Output
			logger.Info().Str("path", cfg.Output).Dur("elapsed", time.Since(start)).Msg("composite written")
		}
	case compare.OutcomeNoResult:
		code = exitNoResult
		fmt.Fprintln(stdout, "Image comparison failed.")
	default:
		fmt.Fprintln(stdout, "Image comparison failed.")
	}

	if store != nil {
		if _, err := store.Record(ctx, entry); err != nil {
			logger.Error().Err(err).Msg("record history")
		}
	}

	if o.show && outcome == compare.OutcomeOK {
		status := fmt.Sprintf("Image 1 is %.2f%% similar to Image 2.", res.Score.Percent)
		if err := display(o.backend, windowTitle, res.Composite, status); err != nil {
			logger.Error().Err(err).Msg("display composite")
		}
	}
	return code
}

func listHistory(ctx context.Context, store *history.Store, n int, stdout io.Writer, logger zerolog.Logger) int {
	entries, err := store.Recent(ctx, n)
	if err != nil {
		logger.Error().Err(err).Msg("read history")
		return exitFailure
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tOUTCOME\tSIMILARITY\tINLIERS\tKEYPOINTS\tIMAGE 1\tIMAGE 2")
	for _, e := range entries {
		similarity := "-"
		if e.Outcome == compare.OutcomeOK.String() {
			similarity = fmt.Sprintf("%.2f%%", e.Similarity)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Outcome, similarity,
			e.Inliers, e.Keypoints, e.Image1, e.Image2)
	}
	if err := tw.Flush(); err != nil {
		return exitFailure
	}
	return exitOK
}
