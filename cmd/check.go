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
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/pqlint/internal/fileview"
	"github.com/cardinalhq/pqlint/internal/lint"
	"github.com/cardinalhq/pqlint/internal/lint/rules"
	"github.com/cardinalhq/pqlint/internal/source"
)

func getCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Lint a parquet file's physical layout",
		Long:  `Runs the layout rules against a parquet file and reports diagnostics. Exits with status 1 when any diagnostic at warning severity or above is found.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ruleNames, err := c.Flags().GetStringSlice("rules")
			if err != nil {
				return fmt.Errorf("failed to get rules flag: %w", err)
			}
			minSeverity, err := c.Flags().GetString("severity")
			if err != nil {
				return fmt.Errorf("failed to get severity flag: %w", err)
			}
			printRx, err := c.Flags().GetBool("print-prescription")
			if err != nil {
				return fmt.Errorf("failed to get print-prescription flag: %w", err)
			}
			exportRx, err := c.Flags().GetString("export-prescription")
			if err != nil {
				return fmt.Errorf("failed to get export-prescription flag: %w", err)
			}
			return runCheck(c.Context(), args[0], ruleNames, minSeverity, printRx, exportRx, c.OutOrStdout())
		},
	}

	cmd.Flags().StringSlice("rules", nil, "Run only the named rules (default all)")
	cmd.Flags().String("severity", "suggestion", "Minimum severity to report (suggestion, warning, error)")
	cmd.Flags().Bool("print-prescription", false, "Print the merged prescription after the diagnostics")
	cmd.Flags().String("export-prescription", "", "Write the merged prescription to a file")

	return cmd
}

func runCheck(ctx context.Context, locator string, ruleNames []string, minSeverity string, printRx bool, exportRx string, out io.Writer) error {
	floor, err := parseSeverity(minSeverity)
	if err != nil {
		return err
	}

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

	renderReport(out, report, floor)

	rx := report.Prescription()
	if errs := rx.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("prescription conflict", slog.Any("error", e))
		}
	}

	if printRx && !rx.Empty() {
		fmt.Fprintln(out)
		fmt.Fprint(out, rx.String())
	}
	if exportRx != "" {
		if err := os.WriteFile(exportRx, []byte(rx.String()), 0644); err != nil {
			return fmt.Errorf("failed to write prescription to %s: %w", exportRx, err)
		}
	}

	if report.HasWarnings() {
		os.Exit(1)
	}
	return nil
}

// lintFile opens the locator, runs the rules, and returns the report
// plus a cleanup closure for the underlying handles.
func lintFile(ctx context.Context, locator string, selected []lint.Rule) (*lint.Report, func(), error) {
	h, err := source.Resolve(ctx, locator)
	if err != nil {
		return nil, nil, err
	}
	f, err := fileview.Open(ctx, h)
	if err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	report, err := lint.Run(ctx, f, selected)
	if err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	return report, func() { _ = h.Close() }, nil
}

func parseSeverity(s string) (lint.Severity, error) {
	switch strings.ToLower(s) {
	case "suggestion":
		return lint.Suggestion, nil
	case "warning":
		return lint.Warning, nil
	case "error":
		return lint.Error, nil
	default:
		return 0, fmt.Errorf("unknown severity %q (want suggestion, warning, or error)", s)
	}
}

func renderReport(out io.Writer, report *lint.Report, floor lint.Severity) {
	shown := 0
	for _, d := range report.Diagnostics {
		if d.Severity < floor {
			continue
		}
		fmt.Fprintf(out, "%s: %s [%s] %s\n", d.Severity, d.Location(), d.Rule, d.Message)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(out, "no issues found")
	}
}
