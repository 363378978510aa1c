package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"planilla/internal/amqp"
	"planilla/internal/config"
	"planilla/internal/core"
	"planilla/internal/log"
	"planilla/internal/services"
	"planilla/internal/storage"
)

// ctl carries the state shared by planillactl subcommands. The service is
// opened lazily so that `migrate` and `--help` never touch the database.
type ctl struct {
	dbPath string
	cfg    *config.Config
	svc    *services.PayrollService
	events *amqp.Client
}

// NewRootCommand builds the planillactl command tree. The returned func
// releases the database and broker handles opened by the subcommands.
func NewRootCommand() (*cobra.Command, func() error) {
	c := &ctl{}

	root := &cobra.Command{
		Use:           "planillactl",
		Short:         "Administer the weekly payroll ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	root.AddCommand(
		c.migrateCommand(),
		c.weekCommand(),
		c.entryCommand(),
		c.workerCommand(),
		c.exportCommand(),
	)
	return root, c.close
}

func (c *ctl) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if c.dbPath != "" {
		cfg.SQLiteDBPath = c.dbPath
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *ctl) service(ctx context.Context) (*services.PayrollService, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	repo, err := OpenSQLite(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}

	var events services.WeekEventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			log.FromContext(ctx).WarnContext(ctx, "AMQP unavailable, week events will not be published", log.FieldError, err)
		} else {
			c.events = client
			events = client
		}
	}

	c.svc = services.NewPayrollService(repo, events, cfg.SupervisorPlaceholder)
	return c.svc, nil
}

func (c *ctl) close() error {
	if c.events != nil {
		_ = c.events.Close()
		c.events = nil
	}
	if c.svc != nil {
		err := c.svc.Close()
		c.svc = nil
		return err
	}
	return nil
}

// weekFor resolves the week that contains the date argument.
func (c *ctl) weekFor(ctx context.Context, arg string, create bool) (*services.PayrollService, core.Week, error) {
	date, err := core.ParseDate(arg)
	if err != nil {
		return nil, core.Week{}, err
	}
	svc, err := c.service(ctx)
	if err != nil {
		return nil, core.Week{}, err
	}
	var w core.Week
	if create {
		w, err = svc.ResolveWeek(ctx, date, "")
	} else {
		w, err = svc.FindWeek(ctx, date)
	}
	if err != nil {
		return nil, core.Week{}, fmt.Errorf("week of %s: %w", arg, err)
	}
	return svc, w, nil
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func (c *ctl) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if err := ensureDir(cfg.SQLiteDBPath); err != nil {
				return err
			}
			if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d", version)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func ensureDir(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
