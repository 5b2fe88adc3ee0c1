package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"

	"github.com/coregx/fluentdb"
)

// nullValue stands in for NULL columns; go-pretty does not render nil.
const nullValue = "NULL"

// writeResult prints res as a table, or as JSON with --json. Statements
// that return no columns print their affected row count.
func (s *session) writeResult(res *fluentdb.Result) error {
	if s.asJSON {
		return s.writeJSON(res)
	}
	if len(res.Columns) == 0 {
		_, err := fmt.Fprintf(s.stdout, "%d rows affected\n", res.RowsAffected)
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(s.stdout)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, m := range res.Maps {
		row := make(table.Row, len(res.Columns))
		for i, c := range res.Columns {
			row[i] = m[c]
			if row[i] == nil {
				row[i] = nullValue
			}
		}
		t.AppendRow(row)
	}
	t.Render()

	footer := fmt.Sprintf("(%d rows)", res.Len())
	if res.Cached {
		footer += " cached"
	}
	_, err := fmt.Fprintln(s.stdout, footer)
	return err
}

type jsonResult struct {
	Columns      []string         `json:"columns,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowsAffected int64            `json:"rows_affected"`
	Cached       bool             `json:"cached"`
}

func (s *session) writeJSON(res *fluentdb.Result) error {
	enc := json.NewEncoder(s.stdout)
	if err := enc.Encode(jsonResult{
		Columns:      res.Columns,
		Rows:         res.Maps,
		RowsAffected: res.RowsAffected,
		Cached:       res.Cached,
	}); err != nil {
		return errors.Wrap(err, "encoding result")
	}
	return nil
}

// writeMetrics prints every gathered counter and histogram count to stderr.
func (s *session) writeMetrics() error {
	families, err := s.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}

	t := table.NewWriter()
	t.SetOutputMirror(s.stderr)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"metric", "labels", "value"})
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			var value any
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				value = m.GetHistogram().GetSampleCount()
			default:
				continue
			}
			t.AppendRow(table.Row{mf.GetName(), strings.Join(labels, ","), value})
		}
	}
	t.Render()
	return nil
}
