package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coregx/fluentdb"
)

type maintenanceFunc func(ctx context.Context, db *fluentdb.DB) (*fluentdb.Result, error)

var maintenance = map[string]maintenanceFunc{
	"analyze": func(ctx context.Context, db *fluentdb.DB) (*fluentdb.Result, error) {
		return db.Analyze(ctx, fluentdb.ModeAssoc)
	},
	"check": func(ctx context.Context, db *fluentdb.DB) (*fluentdb.Result, error) {
		return db.Check(ctx, fluentdb.ModeAssoc)
	},
	"checksum": func(ctx context.Context, db *fluentdb.DB) (*fluentdb.Result, error) {
		return db.Checksum(ctx, fluentdb.ModeAssoc)
	},
	"optimize": func(ctx context.Context, db *fluentdb.DB) (*fluentdb.Result, error) {
		return db.Optimize(ctx, fluentdb.ModeAssoc)
	},
	"repair": func(ctx context.Context, db *fluentdb.DB) (*fluentdb.Result, error) {
		return db.Repair(ctx, fluentdb.ModeAssoc)
	},
}

func maintenanceActions() []string {
	actions := make([]string, 0, len(maintenance))
	for a := range maintenance {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

func newMaintainCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "maintain ACTION TABLE[,TABLE...]",
		Short: "Run a table maintenance statement.",
		Long: `Run ANALYZE, CHECK, CHECKSUM, OPTIMIZE or REPAIR TABLE and print the
report the server returns. These are MySQL statements.

Actions: ` + strings.Join(maintenanceActions(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, ok := maintenance[strings.ToLower(args[0])]
			if !ok {
				return fmt.Errorf("unknown maintenance action %q, want one of %s",
					args[0], strings.Join(maintenanceActions(), ", "))
			}

			ctx := cmd.Context()
			db, err := s.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := run(ctx, db.Table(args[1]))
			if err != nil {
				return err
			}
			return s.writeResult(res)
		},
	}
}
