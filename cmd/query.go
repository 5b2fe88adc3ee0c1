package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/coregx/fluentdb"
)

func newQueryCommand(s *session) *cobra.Command {
	var cacheTTL time.Duration

	qc := &cobra.Command{
		Use:   "query SQL",
		Short: "Run a raw statement and print what it returned.",
		Long: `Run one raw statement. Row-returning statements print their rows;
anything else prints the number of rows affected.

With --cache, a row-returning result is served from and stored in the
configured cache backend for the given duration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := s.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if cacheTTL > 0 {
				db.Cache(cacheTTL)
			}
			res, err := db.Query(ctx, args[0], fluentdb.ModeAssoc)
			if err != nil {
				return err
			}
			return s.writeResult(res)
		},
	}
	qc.Flags().DurationVar(&cacheTTL, "cache", 0, "Cache the result for this long, e.g. 30s or 5m.")
	return qc
}

func newExecCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "exec TEMPLATE [ARG...]",
		Short: "Prepare a statement template with escaped arguments and run it.",
		Long: `Each ? in TEMPLATE is replaced, left to right, with the next ARG
escaped as a string literal. Row-returning statements print their rows.

  fluentdb exec "UPDATE users SET name = ? WHERE id = ?" alice 7`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := s.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			params := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				params = append(params, a)
			}
			db.Prepare(args[0], params...)

			if fluentdb.DetectOperation(args[0]) == "SELECT" {
				res, err := db.FetchAll(ctx, fluentdb.ModeAssoc)
				if err != nil {
					return err
				}
				return s.writeResult(res)
			}
			n, err := db.Exec(ctx)
			if err != nil {
				return err
			}
			return s.writeResult(&fluentdb.Result{RowsAffected: n})
		},
	}
}
