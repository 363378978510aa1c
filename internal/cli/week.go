package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"planilla/internal/core"
)

func (c *ctl) weekCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Inspect and manage payroll weeks",
		Long: `Weeks are addressed by any date inside them (YYYY-MM-DD).
A week runs Monday to Saturday.`,
	}

	show := &cobra.Command{
		Use:   "show DATE",
		Short: "Print the weekly summary, creating the week if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, w, err := c.weekFor(ctx, args[0], true)
			if err != nil {
				return err
			}
			summary, err := svc.Summary(ctx, w.ID)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary)
		},
	}

	closeCmd := &cobra.Command{
		Use:   "close DATE",
		Short: "Close the week so its entries can no longer change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, w, err := c.weekFor(ctx, args[0], false)
			if err != nil {
				return err
			}
			w, err = svc.CloseWeek(ctx, w.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Semana %s: %s\n", w.Label(), w.State())
			return nil
		},
	}

	reopen := &cobra.Command{
		Use:   "reopen DATE",
		Short: "Reopen a closed week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, w, err := c.weekFor(ctx, args[0], false)
			if err != nil {
				return err
			}
			w, err = svc.ReopenWeek(ctx, w.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Semana %s: %s\n", w.Label(), w.State())
			return nil
		},
	}

	supervisor := &cobra.Command{
		Use:   "supervisor DATE NAME",
		Short: "Set the week's supervisor (blank resets to the placeholder)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, w, err := c.weekFor(ctx, args[0], true)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			w, err = svc.SetSupervisor(ctx, w.ID, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Semana %s: supervisor %s\n", w.Label(), w.Supervisor)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent weeks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			weeks, err := svc.ListWeeks(ctx, limit)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tSEMANA\tSUPERVISOR\tESTADO")
			for _, w := range weeks {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", w.ID, w.Label(), w.Supervisor, w.State())
			}
			return tw.Flush()
		},
	}
	list.Flags().Int("limit", 12, "Number of weeks to show")

	cmd.AddCommand(show, closeCmd, reopen, supervisor, list)
	return cmd
}

func printSummary(out io.Writer, s core.WeeklySummary) error {
	fmt.Fprintf(out, "Semana %s (%s)\nSupervisor: %s\n\n", s.Week.Label(), s.Week.State(), s.Week.Supervisor)

	tw := newTable(out)
	header := []string{"TRABAJADOR"}
	for _, label := range core.DayLabels {
		header = append(header, strings.ToUpper(string([]rune(label)[:3])))
	}
	header = append(header, "DIAS", "ADICIONAL", "TOTAL")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range s.Workers {
		cols := []string{row.Worker}
		for _, m := range row.Days {
			cols = append(cols, m.String())
		}
		cols = append(cols, fmt.Sprint(row.DaysWorked), row.Bonus.String(), row.Total.String())
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}

	cols := []string{"TOTAL"}
	for _, m := range s.DayTotals {
		cols = append(cols, m.String())
	}
	cols = append(cols, "", s.TotalBonus.String(), s.TotalPayable.String())
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	return tw.Flush()
}
