// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package cli

import (
	"context"
	"runtime"

	"github.com/xcp-ng/randstream/config"
	"github.com/xcp-ng/randstream/progress"
	"github.com/xcp-ng/randstream/stream"
	"github.com/xcp-ng/randstream/support/logging"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

// defaultChunkSize is the chunk size used when none is configured.
const defaultChunkSize = 32 * 1024

type app struct {
	env Env

	// Verbosity flags given before and after the command name.
	globalVerbosity  verbosity
	commandVerbosity verbosity

	common commonFlags

	// generate
	position   SizeFlag
	noTruncate bool

	// validate
	expected ChecksumFlag

	log logging.L
}

// commonFlags are the flags shared by every command.
type commonFlags struct {
	size        SizeFlag
	chunkSize   SizeFlag
	jobs        int
	noProgress  bool
	seed        uint64
	configPath  string
	metricsFile string
}

// verbosity counts repeated -v and -q flags.
//
// Each flag set needs its own counters: registering a count flag resets its
// target.
type verbosity struct {
	verbose int
	quiet   int
}

func (v *verbosity) addFlags(fs *pflag.FlagSet) {
	fs.CountVarP(&v.verbose, "verbose", "v", "Increase logging verbosity. Can be repeated.")
	fs.CountVarP(&v.quiet, "quiet", "q", "Decrease logging verbosity. Can be repeated.")
}

func (a *app) logLevel() zapcore.Level {
	g, c := &a.globalVerbosity, &a.commandVerbosity
	return logging.LevelForVerbosity(g.verbose+c.verbose, g.quiet+c.quiet)
}

func (c *commonFlags) addFlags(fs *pflag.FlagSet) {
	c.chunkSize = defaultChunkSize

	fs.VarP(&c.size, "size", "s", "The stream size. Defaults to the size of FILE.")
	fs.VarP(&c.chunkSize, "chunk-size", "c", "The chunk size.")
	fs.IntVarP(&c.jobs, "jobs", "j", 0, "The number of parallel jobs. Defaults to the number of physical cores.")
	fs.BoolVarP(&c.noProgress, "no-progress", "n", false, "Hide the progress bar.")
	fs.Uint64VarP(&c.seed, "seed", "S", 0, "The random generator seed.")
	fs.StringVar(&c.configPath, "config", "", "A TOML file providing defaults for these flags.")
	fs.StringVar(&c.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit.")
}

// applyConfig loads the configuration file, if any, into the flags that were
// not set explicitly.
func (c *commonFlags) applyConfig(fs *pflag.FlagSet) error {
	if c.configPath == "" {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	if cfg.ChunkSize != "" && !fs.Changed("chunk-size") {
		if err := c.chunkSize.Set(cfg.ChunkSize); err != nil {
			return errors.Wrap(err, "chunk_size")
		}
	}
	if cfg.Jobs != 0 && !fs.Changed("jobs") {
		c.jobs = cfg.Jobs
	}
	if !fs.Changed("seed") {
		c.seed = cfg.Seed
	}
	if cfg.NoProgress && !fs.Changed("no-progress") {
		c.noProgress = true
	}
	if cfg.MetricsFile != "" && !fs.Changed("metrics-file") {
		c.metricsFile = cfg.MetricsFile
	}
	return nil
}

// defaultJobs is the number of physical cores, falling back on the number of
// logical CPUs when it can't be detected.
func defaultJobs() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (a *app) options(fs *pflag.FlagSet, desc string) stream.Options {
	c := &a.common
	opts := stream.Options{
		ChunkSize: uint64(c.chunkSize),
		Size:      uint64(c.size),
		SizeKnown: fs.Changed("size"),
		Jobs:      c.jobs,
		Logger:    a.log,
	}
	if opts.Jobs == 0 {
		opts.Jobs = defaultJobs()
	}
	if !c.noProgress {
		opts.Progress = newBarSink(a.env.Stderr, desc)
	}
	return opts
}

// run executes cmd once its flags have been parsed.
func (a *app) run(ctx context.Context, cmd *command, fs *pflag.FlagSet) error {
	logger := logging.New(zapcore.AddSync(a.env.Stderr), a.logLevel())
	defer logger.Sync()
	a.log = logger

	var path string
	switch args := fs.Args(); len(args) {
	case 0:
	case 1:
		path = args[0]
	default:
		return usageErrorf("expected at most one FILE, got %d arguments", len(args))
	}
	switch {
	case a.common.jobs < 0:
		return usageErrorf("--jobs must not be negative, got %d", a.common.jobs)
	case a.common.jobs == 0 && fs.Changed("jobs"):
		return usageErrorf("--jobs must be at least 1")
	}
	if err := cmd.check(a, fs, path); err != nil {
		return err
	}

	if err := a.common.applyConfig(fs); err != nil {
		a.log.Error(err)
		return err
	}

	var reg *prometheus.Registry
	if a.common.metricsFile != "" {
		reg = prometheus.NewRegistry()
		stream.RegisterMonitoring(reg)
	}

	err := cmd.run(ctx, a, fs, path)
	if err != nil {
		a.log.Error(err)
	}

	if reg != nil {
		if merr := prometheus.WriteToTextfile(a.common.metricsFile, reg); merr != nil {
			merr = errors.Wrap(merr, "writing metrics")
			a.log.Error(merr)
			if err == nil {
				err = merr
			}
		}
	}
	return err
}

// command is a randstream subcommand.
type command struct {
	name  string
	alias string
	short string
	long  string

	addFlags func(a *app, fs *pflag.FlagSet)
	check    func(a *app, fs *pflag.FlagSet, path string) error
	run      func(ctx context.Context, a *app, fs *pflag.FlagSet, path string) error
}

var commands = []*command{
	{
		name:  "generate",
		alias: "write",
		short: "Generate a random stream",
		long: "Generate a random stream into FILE, or to stdout.\n\n" +
			"If FILE is a regular file or a block device, the stream is written at\n" +
			"multiple locations in parallel to maximize the throughput.",
		addFlags: func(a *app, fs *pflag.FlagSet) {
			fs.VarP(&a.position, "position", "p", "The stream position. Must be a multiple of the chunk size. "+
				"Single-letter units are binary: 32k is 32768.")
			fs.BoolVarP(&a.noTruncate, "no-truncate", "t", false, "Don't truncate FILE.")
		},
		check: func(a *app, fs *pflag.FlagSet, path string) error {
			if fs.Changed("position") && path == "" {
				return usageErrorf("--position requires a FILE")
			}
			return nil
		},
		run: func(ctx context.Context, a *app, fs *pflag.FlagSet, path string) error {
			opts := stream.GenerateOptions{
				Options:    a.options(fs, "writing"),
				Path:       path,
				Seed:       a.common.seed,
				Position:   uint64(a.position),
				NoTruncate: a.noTruncate,
			}
			if path == "" {
				opts.Output = a.env.Stdout
			}
			_, err := stream.Generate(ctx, &opts)
			finishProgress(opts.Progress, err)
			return err
		},
	},
	{
		name:  "validate",
		alias: "read",
		short: "Validate a random stream",
		long: "Validate a random stream read from FILE, or from stdin.\n\n" +
			"If FILE is a regular file or a block device, the data is read from\n" +
			"multiple locations in parallel to maximize the throughput.",
		addFlags: func(a *app, fs *pflag.FlagSet) {
			fs.VarP(&a.expected, "expected-checksum", "e",
				"The expected stream checksum. Generates an error if it doesn't match.")
		},
		check: func(*app, *pflag.FlagSet, string) error { return nil },
		run: func(ctx context.Context, a *app, fs *pflag.FlagSet, path string) error {
			opts := stream.ValidateOptions{
				Options:          a.options(fs, "reading"),
				Path:             path,
				ExpectedChecksum: a.expected.Ptr(),
			}
			if path == "" {
				opts.Input = a.env.Stdin
			}
			_, err := stream.Validate(ctx, &opts)
			finishProgress(opts.Progress, err)
			return err
		},
	},
}

func lookupCommand(name string) *command {
	for _, cmd := range commands {
		if name == cmd.name || name == cmd.alias {
			return cmd
		}
	}
	return nil
}

// finishProgress clears a progress bar left unfinished by a failed run, so
// that the error message is not appended to it.
func finishProgress(sink progress.Sink, err error) {
	if bs, ok := sink.(*barSink); ok && err != nil {
		bs.Clear()
	}
}
