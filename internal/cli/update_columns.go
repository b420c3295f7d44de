package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/gotable"
	"github.com/Alp4ka/gotable/internal/demo"
)

const updateColumnsExamples = `  # Rename the "created" column of the events table in every saved profile:
  gotable update-columns --name events --column created:happened_at`

type UpdateColumnsArgs struct {
	*RootArgs

	Name    string
	Columns []string
}

func NewUpdateColumnsArgs(rootArgs *RootArgs) *UpdateColumnsArgs {
	return &UpdateColumnsArgs{RootArgs: rootArgs}
}

func (ua *UpdateColumnsArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ua.Name, "name", "", "Table instance id the profiles belong to")
	cmd.Flags().StringArrayVar(&ua.Columns, "column", nil, "Column rename as old:new, repeatable")

	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
}

func NewUpdateColumnsCmd(ua *UpdateColumnsArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "update-columns",
		Short:   "Rename column keys in the saved table profiles",
		Example: updateColumnsExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renames, err := parseRenames(ua.Columns)
			if err != nil {
				return err
			}

			cfg, err := ua.Config()
			if err != nil {
				return err
			}

			db, err := demo.OpenDatabase(cfg.Database, slog.Default())
			if err != nil {
				return err
			}

			return updateColumns(cmd.Context(), gotable.NewGormProfileStore(db), ua.Name, renames, cmd.OutOrStdout())
		},
	}

	ua.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}

func parseRenames(columns []string) ([]gotable.ColumnRename, error) {
	if len(columns) == 0 {
		return nil, errors.New("at least one --column old:new is required")
	}

	renames := make([]gotable.ColumnRename, 0, len(columns))
	for _, column := range columns {
		rename, err := gotable.ParseColumnRename(column)
		if err != nil {
			return nil, err
		}
		renames = append(renames, rename)
	}

	return renames, nil
}

func updateColumns(ctx context.Context, store gotable.ProfileStore, name string, renames []gotable.ColumnRename, w io.Writer) error {
	updated, err := gotable.RenameProfileColumns(ctx, store, name, renames)
	for _, p := range updated {
		if _, werr := fmt.Fprintf(w, "updated profile %d (%s)\n", p.ID, p.GetLabel()); werr != nil {
			return werr
		}
	}

	if err != nil {
		return fmt.Errorf("rename columns of %s: %w", name, err)
	}

	_, err = fmt.Fprintf(w, "%d profile(s) updated\n", len(updated))

	return err
}
