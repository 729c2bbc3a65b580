// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/Gyoonus/deoptfuscator-sub021/compile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "X64CC"

// Config is decoded by viper from the config file, the environment and the
// command line, in increasing order of precedence.
type Config struct {
	ReadBarrier        string           `mapstructure:"read_barrier"`
	HeapPoisoning      bool             `mapstructure:"heap_poisoning"`
	ImplicitNullChecks bool             `mapstructure:"implicit_null_checks"`
	CountHotness       bool             `mapstructure:"count_hotness"`
	StringCompression  bool             `mapstructure:"string_compression"`
	JIT                bool             `mapstructure:"jit"`
	ForceMFence        bool             `mapstructure:"force_mfence"`
	Features           compile.Features `mapstructure:"features"`

	Workers int    `mapstructure:"workers"`
	Output  string `mapstructure:"output"`
	Metrics string `mapstructure:"metrics"`
	Disasm  bool   `mapstructure:"disasm"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("read_barrier", "baker", "read barrier kind: none, baker or slow")
	flags.Bool("heap_poisoning", false, "store heap references negated")
	flags.Bool("implicit_null_checks", true, "rely on faulting loads for null checks")
	flags.Bool("count_hotness", false, "count method entries and loop back-edges")
	flags.Bool("string_compression", true, "strings may use 8-bit characters")
	flags.Bool("jit", false, "compile for the JIT: root table patches instead of bss entries")
	flags.Bool("force_mfence", false, "use mfence instead of a locked add for full barriers")
	flags.IntP("workers", "j", runtime.GOMAXPROCS(0), "methods compiled concurrently")
	flags.StringP("output", "o", "methods.bundle", "output bundle file")
	flags.String("metrics", "", "write prometheus metrics to file")
	flags.Bool("disasm", false, "print disassembly of compiled methods")
	flags.String("log.level", "info", "log level: debug, info, warn or error")
}

// loadConfig merges configuration sources.  An empty filename skips the
// config file.
func loadConfig(v *viper.Viper, cmd *cobra.Command, filename string) (*Config, error) {
	features := compile.DetectFeatures()
	v.SetDefault("features.popcnt", features.POPCNT)
	v.SetDefault("features.lzcnt", features.LZCNT)
	v.SetDefault("features.tzcnt", features.TZCNT)
	v.SetDefault("features.sse41", features.SSE41)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c, nil
}

// Options for the compiler.
func (c *Config) Options() (opt compile.Options, err error) {
	kind, ok := compile.ParseReadBarrierKind(c.ReadBarrier)
	if !ok {
		err = fmt.Errorf("unknown read barrier kind: %q", c.ReadBarrier)
		return
	}

	opt = compile.Options{
		ReadBarrier:        kind,
		HeapPoisoning:      c.HeapPoisoning,
		ImplicitNullChecks: c.ImplicitNullChecks,
		CountHotness:       c.CountHotness,
		StringCompression:  c.StringCompression,
		JIT:                c.JIT,
		ForceMFence:        c.ForceMFence,
		Features:           c.Features,
	}
	return
}

func (c *Config) print(w io.Writer) error {
	opt, err := c.Options()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "read_barrier: %s\n", opt.ReadBarrier)
	fmt.Fprintf(w, "heap_poisoning: %v\n", opt.HeapPoisoning)
	fmt.Fprintf(w, "implicit_null_checks: %v\n", opt.ImplicitNullChecks)
	fmt.Fprintf(w, "count_hotness: %v\n", opt.CountHotness)
	fmt.Fprintf(w, "string_compression: %v\n", opt.StringCompression)
	fmt.Fprintf(w, "jit: %v\n", opt.JIT)
	fmt.Fprintf(w, "force_mfence: %v\n", opt.ForceMFence)
	fmt.Fprintf(w, "features: %s\n", opt.Features)
	fmt.Fprintf(w, "workers: %d\n", c.Workers)
	fmt.Fprintf(w, "output: %s\n", c.Output)
	fmt.Fprintf(w, "metrics: %s\n", c.Metrics)
	fmt.Fprintf(w, "disasm: %v\n", c.Disasm)
	fmt.Fprintf(w, "log.level: %s\n", c.Log.Level)
	return nil
}
