// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package cli implements the randstream command line.
//
// randstream creates and validates a random stream of data with built-in
// validation. By including a checksum within each data chunk, it enables
// independent validation and simplifies locating errors within a specific
// segment of the stream.
//
//	randstream [-v|-q]... generate [flags] [FILE]
//	randstream [-v|-q]... validate [flags] [FILE]
//
// Without FILE, generate writes to stdout and validate reads from stdin.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Version is the version reported by --version.
var Version = "dev"

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Env is the process environment a command runs in.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// usageError is an error in the command line itself.
type usageError struct{ error }

func usageErrorf(format string, args ...interface{}) error {
	return usageError{errors.Errorf(format, args...)}
}

// Main is the main entry point.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], Env{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
	stop()
	os.Exit(code)
}

// Run runs the command line args (without the program name) and returns the
// process exit code.
func Run(ctx context.Context, args []string, env Env) int {
	a := app{env: env}

	top := pflag.NewFlagSet("randstream", pflag.ContinueOnError)
	top.SetOutput(env.Stderr)
	top.SetInterspersed(false)
	a.globalVerbosity.addFlags(top)
	version := top.Bool("version", false, "Print the version and exit.")
	top.Usage = func() { a.topUsage(top) }

	if err := top.Parse(args); err != nil {
		return a.parseFailed(err, top.Usage)
	}
	if *version {
		fmt.Fprintf(env.Stdout, "randstream %s\n", Version)
		return ExitOK
	}

	rest := top.Args()
	if len(rest) == 0 {
		top.Usage()
		return ExitUsage
	}

	cmd := lookupCommand(rest[0])
	if cmd == nil {
		fmt.Fprintf(env.Stderr, "error: unknown command %q\n\n", rest[0])
		top.Usage()
		return ExitUsage
	}

	fs := pflag.NewFlagSet("randstream "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	a.commandVerbosity.addFlags(fs)
	a.common.addFlags(fs)
	cmd.addFlags(&a, fs)
	fs.Usage = func() { a.commandUsage(cmd, fs) }

	if err := fs.Parse(rest[1:]); err != nil {
		return a.parseFailed(err, fs.Usage)
	}

	err := a.run(ctx, cmd, fs)
	switch err.(type) {
	case nil:
		return ExitOK
	case usageError:
		fmt.Fprintf(env.Stderr, "error: %s\n\n", err)
		fs.Usage()
		return ExitUsage
	default:
		return ExitError
	}
}

func (a *app) parseFailed(err error, usage func()) int {
	if err == pflag.ErrHelp {
		return ExitOK
	}
	fmt.Fprintf(a.env.Stderr, "error: %s\n\n", err)
	usage()
	return ExitUsage
}

func (a *app) topUsage(fs *pflag.FlagSet) {
	w := a.env.Stderr
	fmt.Fprintln(w, "Usage: randstream [flags] <command> [flags] [FILE]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Creates and validates a random stream of data with built-in validation.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-20s %s\n", cmd.name+", "+cmd.alias, cmd.short)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}

func (a *app) commandUsage(cmd *command, fs *pflag.FlagSet) {
	w := a.env.Stderr
	fmt.Fprintf(w, "Usage: randstream %s [flags] [FILE]\n", cmd.name)
	fmt.Fprintln(w)
	fmt.Fprintln(w, cmd.long)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
