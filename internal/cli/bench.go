// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// bench.go - The bench command: KDF cost and cipher throughput on this machine.
//
// Command: bench [flags]
//
// Examples:
//   enomcrypt bench
//   enomcrypt bench --iterations 3 --size 4MiB --rounds 8
//   enomcrypt bench --save --json

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/enomcrypt/internal/benchmark"
	"github.com/jeranaias/enomcrypt/internal/util"
)

// benchView is the JSON form of a benchmark run.
type benchView struct {
	*benchmark.Result
	Saved string `json:"saved,omitempty"`
}

func (a *App) benchCommand() *cobra.Command {
	var (
		iterations uint32
		size       string
		rounds     int
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure key derivation cost and cipher throughput",
		Long: `Measure how long one Argon2id and one PBKDF2 derivation take, and how fast
AES-256 encrypts and decrypts whole-file buffers in each mode.

Use the numbers to pick --iterations and --threads before a large run.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			bufSize, err := util.ParseBytes(size)
			if err != nil || bufSize == 0 {
				return &UsageError{Err: fmt.Errorf("invalid --size %q", size)}
			}
			if rounds < 1 {
				return &UsageError{Err: fmt.Errorf("--rounds must be at least 1, got %d", rounds)}
			}
			runner := &benchmark.Runner{BufferSize: int(bufSize), Rounds: rounds}
			return a.runBench(cmd, runner, benchmark.Suite{Iterations: iterations}, save)
		},
	}

	fs := cmd.Flags()
	fs.Uint32Var(&iterations, "iterations", 0, "KDF iterations (0 = each KDF's default)")
	fs.StringVar(&size, "size", "1MiB", "buffer size per cipher round")
	fs.IntVar(&rounds, "rounds", benchmark.DefaultRounds, "buffers per cipher test")
	fs.BoolVar(&save, "save", false, "store the result under ~/.enomcrypt/benchmarks")
	return cmd
}

func (a *App) runBench(cmd *cobra.Command, runner *benchmark.Runner, suite benchmark.Suite, save bool) error {
	tests := benchmark.StandardTests(suite)
	a.log.WithField("tests", len(tests)).Debug("starting benchmark")

	result, err := runner.Run(cmd.Context(), tests)
	if err != nil {
		return err
	}

	view := benchView{Result: result}
	if save {
		store, err := benchmark.NewStorage()
		if err != nil {
			return err
		}
		name, err := store.Save(result)
		if err != nil {
			return err
		}
		view.Saved = name
		a.log.WithField("file", name).Info("benchmark saved")
	}

	if a.jsonOut {
		return NewJSONResponse("bench", view).Print(a.Stdout)
	}

	labelWidth := 0
	for _, test := range result.Tests {
		labelWidth = max(labelWidth, len(test.Name)+2)
	}

	w := a.Stdout
	fmt.Fprintln(w, TitleStyle.Render("Benchmark"))
	fmt.Fprintln(w, RenderSeparator(50))
	for _, test := range result.Tests {
		value := test.Metric()
		if test.Status != benchmark.TestStatusPassed {
			value = ErrorStyle.Render(value + ": " + test.Error)
		}
		fmt.Fprintln(w, RenderField(test.Name, value, labelWidth))
	}
	fmt.Fprintln(w, RenderSeparator(50))
	fmt.Fprintln(w, DimStyle.Render(result.Summary()))
	if view.Saved != "" {
		fmt.Fprintln(w, DimStyle.Render("Saved as "+view.Saved))
	}
	return nil
}
