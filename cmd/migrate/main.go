package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/config"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the coupon service database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "",
		"postgres URL; defaults to the DB_* environment settings")

	open := func() (*migrate.Migrate, error) {
		url := databaseURL
		if url == "" {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			url = cfg.DBConfig.DatabaseURL()
		}
		return database.NewMigrator(url)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up [n]",
			Short: "Apply all pending migrations, or the next n",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer m.Close()
				if len(args) == 0 {
					return report(cmd, m, ignoreNoChange(m.Up()))
				}
				n, err := parseSteps(args[0])
				if err != nil {
					return err
				}
				return report(cmd, m, ignoreNoChange(m.Steps(n)))
			},
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Roll back the last n migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n := 1
				if len(args) == 1 {
					var err error
					if n, err = parseSteps(args[0]); err != nil {
						return err
					}
				}
				m, err := open()
				if err != nil {
					return err
				}
				defer m.Close()
				return report(cmd, m, ignoreNoChange(m.Steps(-n)))
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer m.Close()
				return report(cmd, m, nil)
			},
		},
	)
	return root
}

func parseSteps(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("step count must be a positive integer, got %q", arg)
	}
	return n, nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func report(cmd *cobra.Command, m *migrate.Migrate, err error) error {
	if err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		cmd.Println("no migrations applied")
		return nil
	}
	if err != nil {
		return err
	}
	cmd.Printf("version %d (dirty=%t)\n", version, dirty)
	return nil
}
