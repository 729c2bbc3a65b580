// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gyoonus/deoptfuscator-sub021/datatype"
	"github.com/Gyoonus/deoptfuscator-sub021/graph"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOptions(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "x64cc.yaml")
	if err := os.WriteFile(config, []byte("jit: true\nworkers: 3\nfeatures:\n  popcnt: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("X64CC_HEAP_POISONING", "true")

	out, err := run(t, "options", "--config", config, "--read_barrier=slow", "--workers=5")
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []string{
		"read_barrier: slow\n",
		"heap_poisoning: true\n",
		"jit: true\n",
		"workers: 5\n",
		"implicit_null_checks: true\n",
		"popcnt",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("missing %q in:\n%s", s, out)
		}
	}
}

func TestOptionsBadReadBarrier(t *testing.T) {
	if _, err := run(t, "options", "--read_barrier=fast"); err == nil {
		t.Error("unknown read barrier accepted")
	}
}

func writeListings(t *testing.T, filename string, names ...string) {
	t.Helper()

	var buf bytes.Buffer
	for _, name := range names {
		g := graph.New(graph.Method{Name: name, Static: true})
		g.NewBlock().Add(graph.OpReturnVoid, datatype.Void)

		l, err := graph.NewListing(g)
		if err != nil {
			t.Fatal(err)
		}
		if err := l.Encode(&buf); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCompile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "methods.listing")
	output := filepath.Join(dir, "out.bundle")
	metricsFile := filepath.Join(dir, "metrics.prom")

	writeListings(t, input, "a", "b", "c")

	if _, err := run(t, "compile", input, "-o", output, "-j", "2", "--metrics", metricsFile, "--log.level=error"); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	b, err := object.DecodeBundle(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Methods) != 3 {
		t.Fatalf("%d methods", len(b.Methods))
	}
	for i, name := range []string{"a", "b", "c"} {
		m := b.Methods[i]
		if m.Name != name || !bytes.Equal(m.Code, []byte{0xc3}) {
			t.Errorf("method %d: %s %x", i, m.Name, m.Code)
		}
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `x64cc_methods_total{status="ok"} 3`) {
		t.Errorf("metrics:\n%s", data)
	}
}

func TestCompileMissingInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, "compile", filepath.Join(dir, "nothing"), "-o", filepath.Join(dir, "out"), "--log.level=error"); err == nil {
		t.Error("missing input accepted")
	}
}
