// Package main provides the CLI entry point for frameprocessor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/frameprocessor/pkg/adapters/ggrenderer"
	"github.com/user/frameprocessor/pkg/adapters/imagesink"
	"github.com/user/frameprocessor/pkg/adapters/logger"
	"github.com/user/frameprocessor/pkg/adapters/mp4source"
	"github.com/user/frameprocessor/pkg/adapters/nullsink"
	"github.com/user/frameprocessor/pkg/adapters/osfilesystem"
	"github.com/user/frameprocessor/pkg/adapters/smartdecoder"
	"github.com/user/frameprocessor/pkg/config"
	"github.com/user/frameprocessor/pkg/ports"
	"github.com/user/frameprocessor/pkg/processor"
	"github.com/user/frameprocessor/pkg/summarizer"
)

var version = "dev"

func newApp() *cli.App {
	return &cli.App{
		Name:    "frameprocessor",
		Usage:   l10n.T("Decode MP4 video and hand frames to a sink at the consumer's pace"),
		Version: version,
		Commands: []*cli.Command{
			runCommand(),
			probeCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	catInput := l10n.T("Input")
	catDecode := l10n.T("Decoding")
	catOutput := l10n.T("Output")
	catLogging := l10n.T("Logging")

	return &cli.Command{
		Name:      "run",
		Usage:     l10n.T("Decode a video and deliver frames to a sink"),
		ArgsUsage: "<input.mp4>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: catInput},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Maximum number of frames to consume"), Category: catInput},

			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: l10n.T("Decoder backend (auto, software, ffmpeg, libaom, libav)"), Category: catDecode},
			&cli.StringFlag{Name: "ffmpeg-path", Usage: l10n.T("Path to the ffmpeg binary"), Category: catDecode},
			&cli.IntFlag{Name: "gate-timeout", Usage: l10n.T("Bounded wait of the frame gate in milliseconds"), Category: catDecode},
			&cli.StringFlag{Name: "fault-policy", Usage: l10n.T("Fault handling (silent, notify)"), Category: catDecode},

			&cli.StringFlag{Name: "sink", Usage: l10n.T("Frame sink (null, image)"), Category: catOutput},
			&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: l10n.T("Directory for image output"), Category: catOutput},
			&cli.StringFlag{Name: "format", Usage: l10n.T("Image format (png, jpeg)"), Category: catOutput},
			&cli.IntFlag{Name: "quality", Usage: l10n.T("JPEG quality (1-100)"), Category: catOutput},
			&cli.BoolFlag{Name: "overlay", Usage: l10n.T("Draw frame number and timestamp on images"), Category: catOutput},
			&cli.IntFlag{Name: "scale-width", Usage: l10n.T("Resize images to this width"), Category: catOutput},
			&cli.StringFlag{Name: "report", Usage: l10n.T("Write a run summary to this file"), Category: catOutput},
			&cli.StringFlag{Name: "report-format", Usage: l10n.T("Summary format (text, markdown, yaml, msgpack)"), Category: catOutput},

			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)"), Category: catLogging},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output"), Category: catLogging},
		},
		Action: runAction,
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("List the tracks of an MP4 file"),
		ArgsUsage: "<input.mp4>",
		Action:    probeAction,
	}
}

// loadConfig builds the run configuration: defaults, then the config file,
// then flags and the positional input.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.Args().Present() {
		cfg.Input = c.Args().First()
	}
	if c.IsSet("frames") {
		cfg.Frames = c.Int("frames")
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.IsSet("gate-timeout") {
		cfg.GateTimeoutMs = c.Int("gate-timeout")
	}
	if c.IsSet("fault-policy") {
		cfg.FaultPolicy = c.String("fault-policy")
	}
	if c.IsSet("sink") {
		cfg.Sink.Kind = c.String("sink")
	}
	if c.IsSet("output-dir") {
		cfg.Sink.OutputDir = c.String("output-dir")
	}
	if c.IsSet("format") {
		cfg.Sink.Format = c.String("format")
	}
	if c.IsSet("quality") {
		cfg.Sink.Quality = c.Int("quality")
	}
	if c.IsSet("overlay") {
		cfg.Sink.Overlay = c.Bool("overlay")
	}
	if c.IsSet("scale-width") {
		cfg.Sink.ScaleWidth = c.Int("scale-width")
	}
	if c.IsSet("report") {
		cfg.Report = c.String("report")
	}
	if c.IsSet("report-format") {
		cfg.ReportFormat = c.String("report-format")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.Bool("quiet") {
		cfg.LogLevel = ports.LevelQuiet.String()
	}

	if cfg.Input == "" {
		return cfg, errors.New(l10n.T("an input file is required"))
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) ports.Logger {
	lvl := ports.ParseLogLevel(level)
	if lvl == ports.LevelQuiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(lvl)
}

// countingSink is a frame sink that reports how many frames it handled.
type countingSink interface {
	ports.FrameSink
	Count() int
}

type nullCounter struct{ *nullsink.Sink }

func (s nullCounter) Count() int { return s.Consumed() }

type imageCounter struct{ *imagesink.Sink }

func (s imageCounter) Count() int { return len(s.Written()) }

func newSink(cfg config.Config, log ports.Logger) (countingSink, error) {
	if cfg.Sink.Kind != config.SinkImage {
		return nullCounter{nullsink.New()}, nil
	}
	overlay, err := config.ParseColor(cfg.Sink.OverlayColor)
	if err != nil {
		return nil, err
	}
	sink := imagesink.New(imagesink.Options{
		OutputDir:    cfg.Sink.OutputDir,
		Format:       cfg.ImageFormat(),
		Quality:      cfg.Sink.Quality,
		Overlay:      cfg.Sink.Overlay,
		OverlayColor: overlay,
		ScaleWidth:   cfg.Sink.ScaleWidth,
	}, osfilesystem.New(), ggrenderer.New(), log)
	return imageCounter{sink}, nil
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := smartdecoder.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}
	registry, backends, err := smartdecoder.NewRegistry(backend, smartdecoder.Options{
		FFmpegPath: cfg.FFmpegPath,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	log.Debug("Using backends: %s", strings.Join(backends, ", "))

	sink, err := newSink(cfg, log)
	if err != nil {
		return err
	}
	opts, err := cfg.ToProcessorOptions(log, registry)
	if err != nil {
		return err
	}

	log.Info("Opening %s", cfg.Input)
	start := time.Now()
	p, err := processor.Open(cfg.Input, cfg.Frames, sink, opts...)
	if err != nil {
		return err
	}

	if _, ok := p.Track(); ok {
		wait(ctx, p, log)
	}
	stats := p.Stats()
	releaseErr := p.Release()

	log.Info("Processed %d frames in %v", stats.FrameIndex, time.Since(start).Round(time.Millisecond))

	summary := summarizer.NewBuilder().
		WithInput(cfg.Input).
		WithStats(stats).
		WithSink(cfg.Sink.Kind, sinkDir(cfg), sink.Count()).
		Build()
	if err := writeReport(cfg, summary, log); err != nil {
		return err
	}
	if ports.ParseLogLevel(cfg.LogLevel) != ports.LevelQuiet {
		printSummary(os.Stdout, summarizer.NewTextFormatter(), summary, log)
	}

	if stats.Fault != nil {
		return cli.Exit(stats.Fault, 2)
	}
	return releaseErr
}

// printSummary writes the formatted summary to w, logging formatter failures.
func printSummary(w io.Writer, f summarizer.Formatter, summary *summarizer.Summary, log ports.Logger) {
	text, err := f.Format(summary)
	if err != nil {
		log.Error("Failed to format summary: %v", err)
		return
	}
	fmt.Fprint(w, string(text))
}

// wait blocks until the run stops or the process is interrupted.
func wait(ctx context.Context, p *processor.Processor, log ports.Logger) {
	select {
	case <-p.Done():
	case <-ctx.Done():
		log.Warn("Interrupted, shutting down...")
	}
}

func sinkDir(cfg config.Config) string {
	if cfg.Sink.Kind == config.SinkImage {
		return cfg.Sink.OutputDir
	}
	return ""
}

func writeReport(cfg config.Config, summary *summarizer.Summary, log ports.Logger) error {
	if cfg.Report == "" {
		return nil
	}
	formatter, err := summarizer.FormatterFor(cfg.ReportFormat)
	if err != nil {
		return err
	}
	if err := summarizer.NewWriter(formatter, osfilesystem.New()).Write(cfg.Report, summary); err != nil {
		log.Error("Failed to write report: %s", err)
		return err
	}
	log.Info("Report written to %s", cfg.Report)
	return nil
}

func probeAction(c *cli.Context) error {
	if !c.Args().Present() {
		return errors.New(l10n.T("an input file is required"))
	}
	src, err := mp4source.Open(c.Args().First(), logger.NewNoop())
	if err != nil {
		return err
	}
	defer src.Close()

	tracks := src.Tracks()
	if len(tracks) == 0 {
		fmt.Println(l10n.T("No tracks found"))
		return nil
	}
	for _, t := range tracks {
		if t.IsVideo() {
			fmt.Println(l10n.F("Track %d: %s (%s) %dx%d, timescale %d", t.ID, t.MIME, t.SampleEntry, t.Width, t.Height, t.Timescale))
		} else {
			fmt.Println(l10n.F("Track %d: %s (%s)", t.ID, t.MIME, t.SampleEntry))
		}
	}
	return nil
}
