package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coregx/fluentdb"
)

// buildOptions are the clauses the build command accumulates.
type buildOptions struct {
	table   string
	fields  string
	where   []string
	orWhere []string
	joins   []string
	groupBy string
	having  string
	orderBy string
	limit   int
	offset  int
	page    int
	kind    string
}

func newBuildCommand(s *session) *cobra.Command {
	o := &buildOptions{}
	bc := &cobra.Command{
		Use:   "build",
		Short: "Render a builder chain as SQL without running it.",
		Long: `Accumulate clauses from flags and print the statement they compile to.
Nothing is sent to the database.

  fluentdb build --table users --where "age > 18" --order "name" --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}
			defer db.Close()

			sql, err := o.render(db)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(s.stdout, sql)
			return err
		},
	}

	flags := bc.Flags()
	flags.StringVar(&o.table, "table", "", "Table to read or delete from. Comma-separated for several.")
	flags.StringVar(&o.fields, "select", "", "Comma-separated select list.")
	flags.StringArrayVar(&o.where, "where", nil, "AND predicate, as raw SQL. Repeatable.")
	flags.StringArrayVar(&o.orWhere, "or-where", nil, "OR predicate, as raw SQL. Repeatable.")
	flags.StringArrayVar(&o.joins, "join", nil, "TABLE:ON join, e.g. 'posts:posts.user_id = users.id'. Repeatable.")
	flags.StringVar(&o.groupBy, "group", "", "Comma-separated GROUP BY columns.")
	flags.StringVar(&o.having, "having", "", "HAVING predicate, as raw SQL.")
	flags.StringVar(&o.orderBy, "order", "", "ORDER BY column, optionally followed by ASC or DESC.")
	flags.IntVar(&o.limit, "limit", 0, "LIMIT. Zero for none.")
	flags.IntVar(&o.offset, "offset", 0, "OFFSET. Zero for none.")
	flags.IntVar(&o.page, "page", 0, "1-based page of --limit rows. Overrides --offset.")
	flags.StringVar(&o.kind, "kind", "all", "Statement to render: all, one or delete.")
	_ = bc.MarkFlagRequired("table")
	return bc
}

// render accumulates o onto db and compiles it.
func (o *buildOptions) render(db *fluentdb.DB) (string, error) {
	db.Table(o.table)
	if o.fields != "" {
		db.Select(splitList(o.fields)...)
	}
	for _, j := range o.joins {
		table, on, ok := strings.Cut(j, ":")
		if !ok {
			return "", fmt.Errorf("join %q: want TABLE:ON", j)
		}
		db.Join(strings.TrimSpace(table), strings.TrimSpace(on))
	}
	for _, w := range o.where {
		db.Where(fluentdb.Tpl(w))
	}
	for _, w := range o.orWhere {
		db.OrWhere(fluentdb.Tpl(w))
	}
	if o.groupBy != "" {
		db.GroupBy(splitList(o.groupBy)...)
	}
	if o.having != "" {
		db.Having(fluentdb.Tpl(o.having))
	}
	if o.orderBy != "" {
		column, dir, _ := strings.Cut(strings.TrimSpace(o.orderBy), " ")
		db.OrderBy(column, strings.TrimSpace(dir))
	}
	switch {
	case o.page > 0 && o.limit > 0:
		db.Pagination(o.limit, o.page)
	case o.limit > 0:
		db.Limit(o.limit)
		if o.offset > 0 {
			db.Offset(o.offset)
		}
	}

	switch o.kind {
	case "all", "":
		return db.GetAllSQL(), nil
	case "one":
		return db.GetSQL(), nil
	case "delete":
		return db.DeleteSQL(), nil
	}
	return "", fmt.Errorf("unknown statement kind %q", o.kind)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
