package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"planilla/internal/core"
	"planilla/internal/export"
	"planilla/internal/metrics"
)

func (c *ctl) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the payout summary of a week to a file",
	}

	var outDir string
	cmd.PersistentFlags().StringVarP(&outDir, "output", "o", ".", "Directory to write into, or - for stdout")

	run := func(format string, render func(core.WeeklySummary) ([]byte, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, w, err := c.weekFor(ctx, args[0], false)
			if err != nil {
				return err
			}
			summary, err := svc.Summary(ctx, w.ID)
			if err != nil {
				return err
			}
			data, err := render(summary)
			if err != nil {
				metrics.Exports.WithLabelValues(format, "error").Inc()
				return fmt.Errorf("render %s: %w", format, err)
			}
			metrics.Exports.WithLabelValues(format, "ok").Inc()

			if outDir == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			path := filepath.Join(outDir, export.FileName(w, format))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}
	}

	csvCmd := &cobra.Command{
		Use:   "csv DATE",
		Short: "Export the payout summary as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  run("csv", export.CSV),
	}
	xlsxCmd := &cobra.Command{
		Use:   "xlsx DATE",
		Short: "Export the payout summary and daily grid as XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: run("xlsx", func(s core.WeeklySummary) ([]byte, error) {
			buf, err := export.XLSX(s)
			if err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}),
	}

	cmd.AddCommand(csvCmd, xlsxCmd)
	return cmd
}

// Execute runs planillactl and returns the exit code.
func Execute(stderr io.Writer) int {
	root, closeAll := NewRootCommand()
	err := root.Execute()
	if cerr := closeAll(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
