package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"planilla/internal/core"
)

func (c *ctl) entryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Record or remove daily amounts",
	}

	var (
		role, activity, bonus string
		bonusFlag             bool
	)
	set := &cobra.Command{
		Use:   "set DATE WORKER AMOUNT",
		Short: "Record what a worker earned on a day (replaces any earlier amount)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			amount, err := core.ParseMoney(args[2])
			if err != nil {
				return err
			}
			bonusAmount, err := core.ParseMoney(bonus)
			if err != nil {
				return err
			}
			svc, w, err := c.weekFor(ctx, args[0], true)
			if err != nil {
				return err
			}
			date, _ := core.ParseDate(args[0])
			e, err := svc.UpsertEntry(ctx, core.EntryInput{
				WeekID:      w.ID,
				Date:        date,
				WorkerName:  args[1],
				Role:        role,
				Activity:    activity,
				Amount:      amount,
				BonusFlag:   bonusFlag,
				BonusAmount: bonusAmount,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s", e.Date, e.WorkerName, e.Amount)
			if e.BonusFlag {
				fmt.Fprintf(cmd.OutOrStdout(), " + adicional %s", e.BonusAmount)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	set.Flags().StringVar(&role, "role", "", "Role for a worker new to the catalog")
	set.Flags().StringVar(&activity, "activity", "", "What the worker did")
	set.Flags().StringVar(&bonus, "bonus", "", "Saturday bonus amount")
	set.Flags().BoolVar(&bonusFlag, "bonus-flag", false, "Mark the Saturday bonus")

	var all bool
	del := &cobra.Command{
		Use:   "delete DATE WORKER",
		Short: "Delete a worker's entry for a day, or every entry of the week with --all",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, w, err := c.weekFor(ctx, args[0], false)
			if err != nil {
				return err
			}
			var n int64
			if all {
				n, err = svc.DeleteAllEntries(ctx, w.ID, args[1])
			} else {
				date, _ := core.ParseDate(args[0])
				n, err = svc.DeleteEntry(ctx, w.ID, args[1], date)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries deleted\n", n)
			return nil
		},
	}
	del.Flags().BoolVar(&all, "all", false, "Delete every entry of the worker in the week")

	cmd.AddCommand(set, del)
	return cmd
}
