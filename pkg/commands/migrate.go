package commands

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/routing"
)

func newMigrateCmd() *cobra.Command {
	var storeFlag string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations per store",
		Long:  `Migrations run against each store for the entities the routing policy places there. Use --store to restrict to one store.`,
	}
	cmd.PersistentFlags().StringVar(&storeFlag, "store", "all", "primary, secondary or all")

	run := func(op func(context.Context, io.Writer, application.MigrationManager, routing.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			stores, err := selectStores(storeFlag)
			if err != nil {
				return err
			}
			return withApplication(cmd.Context(), func(ctx context.Context, app application.Application) error {
				for _, store := range stores {
					if err := op(ctx, cmd.OutOrStdout(), app.Migrations(), store); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE:  run(MigrateUp),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration of each entity",
			RunE:  run(MigrateDown),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE:  run(MigrateStatus),
		},
	)
	return cmd
}

func selectStores(raw string) ([]routing.Store, error) {
	if raw == "" || raw == "all" {
		return routing.Stores(), nil
	}
	store, err := routing.ParseStore(raw)
	if err != nil {
		return nil, err
	}
	return []routing.Store{store}, nil
}

func MigrateUp(ctx context.Context, out io.Writer, m application.MigrationManager, store routing.Store) error {
	results, err := m.Run(ctx, store)
	printResults(out, store, results)
	return err
}

func MigrateDown(ctx context.Context, out io.Writer, m application.MigrationManager, store routing.Store) error {
	results, err := m.Rollback(ctx, store)
	printResults(out, store, results)
	return err
}

func MigrateStatus(ctx context.Context, out io.Writer, m application.MigrationManager, store routing.Store) error {
	status, err := m.Status(ctx, store)
	if err != nil {
		return err
	}
	entities := make([]string, 0, len(status))
	for e := range status {
		entities = append(entities, string(e))
	}
	sort.Strings(entities)
	for _, e := range entities {
		for _, st := range status[routing.Entity(e)] {
			applied := "pending"
			if st.State == goose.StateApplied {
				applied = st.AppliedAt.Format("2006-01-02 15:04:05")
			}
			_, _ = fmt.Fprintf(out, "%-9s %-14s %5d  %s\n", store, e, st.Source.Version, applied)
		}
	}
	return nil
}

func printResults(out io.Writer, store routing.Store, results []*goose.MigrationResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintf(out, "%s: nothing to do\n", store)
		return
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		_, _ = fmt.Fprintf(out, "%-9s %-5s %5d  %s\n", store, r.Direction, r.Source.Version, r.Duration)
	}
}
