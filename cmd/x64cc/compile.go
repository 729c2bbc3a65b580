// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Gyoonus/deoptfuscator-sub021/compile"
	"github.com/Gyoonus/deoptfuscator-sub021/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/disasm"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/metrics"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// readListings decodes all listings in a file.
func readListings(filename string) (list []*graph.Listing, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		if _, err = r.Peek(1); err == io.EOF {
			err = nil
			return
		} else if err != nil {
			return
		}

		var l *graph.Listing
		l, err = graph.DecodeListing(r)
		if err != nil {
			err = fmt.Errorf("%s: listing %d: %w", filename, len(list), err)
			return
		}
		list = append(list, l)
	}
}

func runCompile(c *Config, filenames []string, stdout io.Writer) error {
	log, err := newLogger(c.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	opt, err := c.Options()
	if err != nil {
		return err
	}
	log.Debug("options",
		zap.Stringer("read_barrier", opt.ReadBarrier),
		zap.Stringer("features", opt.Features),
		zap.Int("workers", c.Workers))

	var listings []*graph.Listing
	for _, filename := range filenames {
		list, err := readListings(filename)
		if err != nil {
			return err
		}
		listings = append(listings, list...)
	}

	m := metrics.New()
	methods := make([]object.CompiledMethod, len(listings))

	jobs := make(chan int)
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		defer close(jobs)
		for i := range listings {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for n := 0; n < c.Workers; n++ {
		g.Go(func() error {
			for i := range jobs {
				l := listings[i]

				config := &compile.Config{
					Options:      opt,
					EventHandler: m.PhaseTimer(),
				}

				cm, err := compile.Compile(config, l)
				if err != nil {
					m.ObserveFailure(err)
					log.Error("compilation failed",
						zap.String("method", l.Method.Name),
						zap.Bool("input", errors.IsInput(err)),
						zap.Error(err))
					return fmt.Errorf("%s: %w", l.Method.Name, err)
				}

				m.ObserveMethod(cm)
				log.Info("compiled",
					zap.String("method", cm.Name),
					zap.Int("code", len(cm.Code)),
					zap.Uint32("frame", cm.FrameSize),
					zap.Int("slowpaths", cm.SlowPaths.Total),
					zap.Int("patches", len(cm.Patches)))

				methods[i] = *cm
			}
			return nil
		})
	}

	err = g.Wait()

	if c.Metrics != "" {
		if err := m.WriteFile(c.Metrics); err != nil {
			log.Warn("writing metrics failed", zap.Error(err))
		}
	}

	if err != nil {
		return err
	}

	if c.Disasm {
		for i := range methods {
			if err := disasm.Fprint(stdout, &methods[i]); err != nil {
				return err
			}
		}
	}

	return writeBundle(c.Output, &object.Bundle{Methods: methods})
}

func writeBundle(filename string, b *object.Bundle) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = e
		}
	}()

	w := bufio.NewWriter(f)
	if err = b.Encode(w); err != nil {
		return
	}
	return w.Flush()
}
