// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/pqlint/internal/bench"
)

func getBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench FILE",
		Short: "Measure parquet scan cost",
		Long:  `Scans the file end to end and reports wall time and size. With --compare, measures a second file and reports the cost delta, useful for judging a rewrite.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			compare, err := c.Flags().GetString("compare")
			if err != nil {
				return fmt.Errorf("failed to get compare flag: %w", err)
			}
			iterations, err := c.Flags().GetInt("iterations")
			if err != nil {
				return fmt.Errorf("failed to get iterations flag: %w", err)
			}
			return runBench(c.Context(), args[0], compare, iterations, c.OutOrStdout())
		},
	}

	cmd.Flags().String("compare", "", "Second file to measure against the first")
	cmd.Flags().Int("iterations", 0, "Scan iterations per file, best one wins (default from config)")

	return cmd
}

func runBench(ctx context.Context, locator, compare string, iterations int, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if iterations <= 0 {
		iterations = cfg.Bench.Iterations
	}

	if compare == "" {
		m, err := bench.Measure(ctx, locator, cfg.Bench.BatchSize, iterations)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, m)
		return nil
	}

	cmp, err := bench.Compare(ctx, locator, compare, cfg.Bench.BatchSize, iterations)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cmp)
	return nil
}
