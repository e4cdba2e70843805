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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/pqlint/internal/lint/rules"
	"github.com/cardinalhq/pqlint/internal/prescription"
	"github.com/cardinalhq/pqlint/internal/rewrite"
	"github.com/cardinalhq/pqlint/internal/source"
)

func getFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix FILE",
		Short: "Rewrite a parquet file with corrected physical layout",
		Long:  `Lints the file, derives a prescription from the diagnostics, and rewrites the file with the prescription applied. Row values and the logical schema are preserved exactly.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			outPath, err := c.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("failed to get output flag: %w", err)
			}
			ruleNames, err := c.Flags().GetStringSlice("rules")
			if err != nil {
				return fmt.Errorf("failed to get rules flag: %w", err)
			}
			dryRun, err := c.Flags().GetBool("dry-run")
			if err != nil {
				return fmt.Errorf("failed to get dry-run flag: %w", err)
			}
			printRx, err := c.Flags().GetBool("print-prescription")
			if err != nil {
				return fmt.Errorf("failed to get print-prescription flag: %w", err)
			}
			exportRx, err := c.Flags().GetString("export-prescription")
			if err != nil {
				return fmt.Errorf("failed to get export-prescription flag: %w", err)
			}
			return runFix(c.Context(), args[0], outPath, ruleNames, dryRun, printRx, exportRx, c.OutOrStdout())
		},
	}

	cmd.Flags().StringP("output", "o", "", "Destination file for the rewritten parquet")
	if err := cmd.MarkFlagRequired("output"); err != nil {
		panic(fmt.Errorf("failed to mark output flag as required: %w", err))
	}
	cmd.Flags().StringSlice("rules", nil, "Derive the prescription from only the named rules (default all)")
	cmd.Flags().Bool("dry-run", false, "Show the prescription without rewriting")
	cmd.Flags().Bool("print-prescription", false, "Print the prescription before rewriting")
	cmd.Flags().String("export-prescription", "", "Write the prescription to a file")

	cmd.AddCommand(getFixLoadCmd())

	return cmd
}

func getFixLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Rewrite a parquet file using a saved prescription",
		Long:  `Reads a prescription from a file and rewrites the parquet file with it applied, skipping the lint pass entirely.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			outPath, err := c.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("failed to get output flag: %w", err)
			}
			rxPath, err := c.Flags().GetString("prescription")
			if err != nil {
				return fmt.Errorf("failed to get prescription flag: %w", err)
			}
			dryRun, err := c.Flags().GetBool("dry-run")
			if err != nil {
				return fmt.Errorf("failed to get dry-run flag: %w", err)
			}
			return runFixLoad(c.Context(), args[0], outPath, rxPath, dryRun, c.OutOrStdout())
		},
	}

	cmd.Flags().StringP("output", "o", "", "Destination file for the rewritten parquet")
	if err := cmd.MarkFlagRequired("output"); err != nil {
		panic(fmt.Errorf("failed to mark output flag as required: %w", err))
	}
	cmd.Flags().String("prescription", "", "Prescription file to apply")
	if err := cmd.MarkFlagRequired("prescription"); err != nil {
		panic(fmt.Errorf("failed to mark prescription flag as required: %w", err))
	}
	cmd.Flags().Bool("dry-run", false, "Validate the prescription without rewriting")

	return cmd
}

func runFix(ctx context.Context, locator, outPath string, ruleNames []string, dryRun, printRx bool, exportRx string, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	selected := rules.Get(ruleNames, cfg.Rules)
	if len(selected) == 0 {
		return fmt.Errorf("no rules matched %v", ruleNames)
	}

	report, cleanup, err := lintFile(ctx, locator, selected)
	if err != nil {
		return err
	}
	defer cleanup()

	rx := report.Prescription()
	if errs := rx.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("prescription conflict", slog.Any("error", e))
		}
	}

	if printRx || dryRun {
		if rx.Empty() {
			fmt.Fprintln(out, "nothing to fix")
		} else {
			fmt.Fprint(out, rx.String())
		}
	}
	if exportRx != "" {
		if err := os.WriteFile(exportRx, []byte(rx.String()), 0644); err != nil {
			return fmt.Errorf("failed to write prescription to %s: %w", exportRx, err)
		}
	}
	if dryRun {
		return nil
	}

	return applyRewrite(ctx, locator, outPath, rx, out)
}

func runFixLoad(ctx context.Context, locator, outPath, rxPath string, dryRun bool, out io.Writer) error {
	text, err := os.ReadFile(rxPath)
	if err != nil {
		return fmt.Errorf("failed to read prescription %s: %w", rxPath, err)
	}
	rx, err := prescription.Parse(string(text))
	if err != nil {
		return err
	}
	if errs := rx.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("prescription conflict", slog.Any("error", e))
		}
	}
	if dryRun {
		fmt.Fprint(out, rx.String())
		return nil
	}

	return applyRewrite(ctx, locator, outPath, rx, out)
}

func applyRewrite(ctx context.Context, locator, outPath string, rx *prescription.Prescription, out io.Writer) error {
	h, err := source.Resolve(ctx, locator)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	if err := rewrite.File(ctx, h, outPath, rx); err != nil {
		return fmt.Errorf("rewrite failed: %w", err)
	}
	fmt.Fprintf(out, "wrote %s\n", outPath)
	return nil
}
