package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *ctl) workerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage the worker catalog",
	}

	var showAll bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			workers, err := svc.ListWorkers(ctx, !showAll)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NOMBRE\tCARGO\tACTIVO")
			for _, w := range workers {
				active := "si"
				if !w.Active {
					active = "no"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", w.Name, w.Role, active)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&showAll, "all", false, "Include inactive workers")

	var role string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a worker to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			w, err := svc.CreateWorker(ctx, args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trabajador %s agregado\n", w.Name)
			return nil
		},
	}
	add.Flags().StringVar(&role, "role", "", "Worker role")

	setActive := func(use, short, done string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " NAME",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				svc, err := c.service(ctx)
				if err != nil {
					return err
				}
				if err := svc.SetWorkerActive(ctx, args[0], active); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Trabajador %s %s\n", args[0], done)
				return nil
			},
		}
	}

	rename := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a worker; past entries follow the new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			if err := svc.RenameWorker(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trabajador %s renombrado a %s\n", args[0], args[1])
			return nil
		},
	}

	roleCmd := &cobra.Command{
		Use:   "role NAME ROLE",
		Short: "Change a worker's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			return svc.SetWorkerRole(ctx, args[0], args[1])
		},
	}

	cmd.AddCommand(
		list,
		add,
		setActive("deactivate", "Hide a worker from the active catalog", "desactivado", false),
		setActive("activate", "Bring a deactivated worker back", "activado", true),
		rename,
		roleCmd,
	)
	return cmd
}
