package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dailyrent/service-booking/internal/config"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

func main() {
	var dir string

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the booking service database schema",
	}
	rootCmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")

	rootCmd.AddCommand(
		upCmd(&dir),
		downCmd(&dir),
		versionCmd(&dir),
		forceCmd(&dir),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func open(dir *string) (*migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := cfg.MigrationsDir
	if *dir != "" {
		path = *dir
	}
	return database.NewMigrator(cfg.DBConfig.DatabaseURL(), path)
}

func upCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(dir)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Up(); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					fmt.Println("No pending migrations.")
					return nil
				}
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			fmt.Println("Migrations applied.")
			return nil
		},
	}
}

func downCmd(dir *string) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(dir)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to roll back: %w", err)
			}
			fmt.Printf("Rolled back %d migration(s).\n", steps)
			return nil
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	return cmd
}

func versionCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(dir)
			if err != nil {
				return err
			}
			defer m.Close()

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Println("No migrations applied.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
			return nil
		},
	}
}

func forceCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			m, err := open(dir)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Force(version); err != nil {
				return err
			}
			fmt.Printf("Forced version %d.\n", version)
			return nil
		},
	}
}
