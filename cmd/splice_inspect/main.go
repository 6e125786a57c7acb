// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// splice_inspect dumps the contents of a compiled program cache file: the
// sub-model table with each partition's backend, operations, boundary
// indices and engine blob size.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/spf13/cobra"

	"github.com/splice-ml/splice/delegate"
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "splice_inspect <cache-file>",
	Short: "Inspect a compiled program cache file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(cmd, args[0])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"also list every operation and operand of each sub-graph")
}

func inspect(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// DecodeCache treats corruption as fatal; surface it as a CLI error.
	var records []delegate.CacheRecord
	if err := exceptions.TryCatch[error](func() {
		records = delegate.DecodeCache(data)
	}); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s, %d sub-model(s)\n", path, humanize.Bytes(uint64(len(data))), len(records))
	for i, rec := range records {
		fmt.Fprintf(out, "\nsub-model %d: backend=%s\n", i, rec.Backend)
		fmt.Fprintf(out, "  operations: %d %s\n", len(rec.Graph.Operations), opKinds(rec))
		fmt.Fprintf(out, "  inputs:  %v\n", rec.InputIndices)
		fmt.Fprintf(out, "  outputs: %v\n", rec.OutputIndices)
		if len(rec.EngineBlob) > 0 {
			fmt.Fprintf(out, "  engine blob: %s\n", humanize.Bytes(uint64(len(rec.EngineBlob))))
		}
		if !flagVerbose {
			continue
		}
		for _, op := range rec.Graph.Operations {
			names := make([]string, 0, len(op.Inputs)+len(op.Outputs))
			for _, o := range op.Inputs {
				names = append(names, o.Name)
			}
			names = append(names, "->")
			for _, o := range op.Outputs {
				names = append(names, o.Name)
			}
			fmt.Fprintf(out, "    %-16s %s\n", op.Type, strings.Join(names, " "))
		}
		for _, o := range rec.Graph.Operands {
			fmt.Fprintf(out, "    operand %-20s %s\n", o.Name, o.Type)
		}
	}
	return nil
}

// opKinds summarizes the distinct operation kinds of one sub-graph.
func opKinds(rec delegate.CacheRecord) string {
	seen := make(map[string]bool)
	var kinds []string
	for _, op := range rec.Graph.Operations {
		name := op.Type.String()
		if !seen[name] {
			seen[name] = true
			kinds = append(kinds, name)
		}
	}
	if len(kinds) == 0 {
		return "(passthrough)"
	}
	return "(" + strings.Join(kinds, ", ") + ")"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
