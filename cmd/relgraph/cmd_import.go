package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/leaselock"
	"github.com/kitchenlens/relgraph/pkg/source"
	pgxsource "github.com/kitchenlens/relgraph/pkg/source/pgx"
	"github.com/kitchenlens/relgraph/pkg/source/sqlite"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a payload file into a sqlite or postgres snapshot",
		Long: `Import the full collections of a payload under one scope.

Examples:
  relgraph import --sqlite relgraph.db --input payload.json --scope north
  relgraph import --postgres postgres://localhost/relgraph --input payload.json --replace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			dbPath, _ := cmd.Flags().GetString("sqlite")
			dbURL, _ := cmd.Flags().GetString("postgres")
			scope, _ := cmd.Flags().GetString("scope")
			replace, _ := cmd.Flags().GetBool("replace")

			if input == "" {
				return errors.New("--input is required")
			}
			if !source.ValidScope(scope) {
				return fmt.Errorf("invalid scope %q", scope)
			}

			ctx := cmd.Context()
			raw, err := loadCollections(ctx, cmd, common.ModeFull)
			if err != nil {
				return err
			}

			switch {
			case dbPath != "":
				db, err := sqlite.Open(ctx, dbPath)
				if err != nil {
					return fmt.Errorf("failed to open sqlite snapshot: %w", err)
				}
				defer db.Close()

				stats, err := db.Import(ctx, scope, raw, replace)
				if err != nil {
					return err
				}
				printImport(cmd, stats.Records, stats.Relations, stats.SkippedPairs)
			case dbURL != "":
				if err := pgxsource.Migrate(dbURL); err != nil {
					return err
				}
				pool, err := pgxpool.New(ctx, dbURL)
				if err != nil {
					return fmt.Errorf("unable to connect to database: %w", err)
				}
				defer pool.Close()

				pg := pgxsource.NewPostgresSource(pool)
				locks := leaselock.New(pool)
				opts := leaselock.Options{TTL: time.Minute, Wait: true, WaitJitter: 100 * time.Millisecond, Owner: "relgraph-import"}
				return locks.WithLease(ctx, leaselock.ImportKey(scope), opts, func(ctx context.Context) error {
					if replace {
						if err := pg.DeleteScope(ctx, scope); err != nil {
							return err
						}
					}
					stats, err := pg.Import(ctx, scope, raw)
					if err != nil {
						return err
					}
					printImport(cmd, stats.Records, stats.Relations, stats.SkippedPairs)
					return nil
				})
			default:
				return errors.New("one of --sqlite or --postgres is required")
			}
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Payload file, - for stdin")
	cmd.Flags().String("sqlite", "", "Target sqlite snapshot")
	cmd.Flags().String("postgres", "", "Target postgres database URL")
	cmd.Flags().String("scope", "", "Scope to import under")
	cmd.Flags().Bool("replace", false, "Clear the scope before importing")
	cmd.MarkFlagsMutuallyExclusive("sqlite", "postgres")
	return cmd
}

func printImport(cmd *cobra.Command, records, relations, skipped int) {
	ok := color.New(color.FgGreen)
	ok.Fprintf(cmd.OutOrStdout(), "imported %d records and %d relation pairs\n", records, relations)
	if skipped > 0 {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "skipped %d relation pairs without endpoints\n", skipped)
	}
}
