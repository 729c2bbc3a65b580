// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Program x64cc compiles listed methods to x86-64 machine code.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "x64cc",
		Short:         "x86-64 method compiler",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	addFlags(root)

	load := func(cmd *cobra.Command) (*Config, error) {
		return loadConfig(viper.New(), cmd, configFile)
	}

	root.AddCommand(&cobra.Command{
		Use:   "compile listing...",
		Short: "Compile msgpack method listings into a bundle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			return runCompile(c, args, cmd.OutOrStdout())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "options",
		Short: "Print the effective compiler options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout())
		},
	})

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "x64cc:", err)
		os.Exit(1)
	}
}
