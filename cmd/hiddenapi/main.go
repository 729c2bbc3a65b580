// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Program hiddenapi marks the members of dex files with API restriction
// lists.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Gyoonus/deoptfuscator-sub021/hiddenapi"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	dex            []string
	lightGreylist  string
	darkGreylist   string
	blacklist      string
	printHiddenAPI bool
	metrics        string
	logLevel       string
}

var errUsage = errors.New("usage error")

func newCommand() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:           "hiddenapi",
		Short:         "Encode hidden API lists into dex access flags",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(o.dex) == 0 {
				cmd.PrintErrln(cmd.UsageString())
				return fmt.Errorf("%w: no dex files specified", errUsage)
			}
			if o.lightGreylist == "" && o.darkGreylist == "" && o.blacklist == "" {
				cmd.PrintErrln(cmd.UsageString())
				return fmt.Errorf("%w: no API file specified", errUsage)
			}
			return run(&o, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&o.dex, "dex", nil, "dex file whose members' access flags are to be set (repeatable)")
	flags.StringVar(&o.lightGreylist, "light-greylist", "", "signatures of light-greylisted members")
	flags.StringVar(&o.darkGreylist, "dark-greylist", "", "signatures of dark-greylisted members")
	flags.StringVar(&o.blacklist, "blacklist", "", "signatures of blacklisted members")
	flags.BoolVar(&o.printHiddenAPI, "print-hidden-api", false, "print signatures of all restricted members")
	flags.StringVar(&o.metrics, "metrics", "", "write prometheus metrics to file")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level")
	return cmd
}

func readList(filename string) (hiddenapi.Signatures, error) {
	if filename == "" {
		return nil, nil
	}
	return hiddenapi.ReadSignaturesFile(filename)
}

func run(o *options, stdout io.Writer) (err error) {
	var level zapcore.Level
	if err = level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	log := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(cfg.EncoderConfig), zapcore.AddSync(os.Stderr), level))
	defer log.Sync()

	var lists hiddenapi.Lists
	if lists.LightGreylist, err = readList(o.lightGreylist); err != nil {
		return
	}
	if lists.DarkGreylist, err = readList(o.darkGreylist); err != nil {
		return
	}
	if lists.Blacklist, err = readList(o.blacklist); err != nil {
		return
	}

	var hidden func(string)
	w := bufio.NewWriter(stdout)
	defer func() {
		if e := w.Flush(); err == nil {
			err = e
		}
	}()
	if o.printHiddenAPI {
		hidden = func(sig string) {
			fmt.Fprintln(w, sig)
		}
	}

	stats, err := hiddenapi.ProcessFiles(o.dex, &lists, hidden)
	if err != nil {
		return
	}

	log.Info("processed",
		zap.Strings("dex", o.dex),
		zap.Int(hiddenapi.Whitelist.String(), stats[hiddenapi.Whitelist]),
		zap.Int(hiddenapi.LightGreylist.String(), stats[hiddenapi.LightGreylist]),
		zap.Int(hiddenapi.DarkGreylist.String(), stats[hiddenapi.DarkGreylist]),
		zap.Int(hiddenapi.Blacklist.String(), stats[hiddenapi.Blacklist]))

	if o.metrics != "" {
		m := metrics.New()
		m.ObserveHiddenAPI(stats)
		err = m.WriteFile(o.metrics)
	}
	return
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hiddenapi:", err)
		os.Exit(1)
	}
}
