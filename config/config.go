// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package config loads randstream defaults from a TOML file.
//
// Every setting is optional. A setting present in the file replaces the
// built-in default, and is itself replaced by an explicit command-line flag.
//
//	chunk_size   = "64k"
//	jobs         = 8
//	seed         = 1234
//	no_progress  = true
//	metrics_file = "/var/lib/node_exporter/randstream.prom"
package config

import (
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config holds the settings read from a configuration file.
type Config struct {
	// ChunkSize is a human-readable chunk size, such as "32k" or "1MiB".
	ChunkSize string `toml:"chunk_size"`
	// Jobs is the number of workers. Zero means the built-in default.
	Jobs int `toml:"jobs"`
	// Seed is the generation seed.
	Seed uint64 `toml:"seed"`
	// NoProgress disables the progress bar.
	NoProgress bool `toml:"no_progress"`
	// MetricsFile is the path of the Prometheus text file written at exit.
	MetricsFile string `toml:"metrics_file"`
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer fd.Close()

	cfg, err := Decode(fd)
	if err != nil {
		return nil, errors.Wrapf(err, "loading config %q", path)
	}
	return cfg, nil
}

// Decode reads a configuration from r.
//
// Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding TOML")
	}
	if cfg.Jobs < 0 {
		return nil, errors.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	return &cfg, nil
}
