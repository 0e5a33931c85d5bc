package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kr/pretty"
)

// Output formats.
const (
	formatTable  = "table"
	formatJSON   = "json"
	formatPretty = "pretty"
)

// printer writes command results in the selected format. Table output is
// built from a header and rows; the other formats print the raw value.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: strings.ToLower(format)}
}

// print writes v, or the table built from header and rows.
func (p *printer) print(v any, header []string, rows [][]string) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatPretty:
		_, err := pretty.Fprintf(p.w, "%# v\n", v)
		return err
	case formatTable, "":
		tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", p.format)
	}
}

// message writes a status line. JSON output stays machine-readable, so
// messages are dropped there.
func (p *printer) message(format string, args ...any) {
	if p.format == formatJSON {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

// value formats a property or datapoint value for a table cell.
func value(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// progressBar reports transfer progress on w.
func progressBar(w io.Writer, label string) func(done, total int64) bool {
	return func(done, total int64) bool {
		if total > 0 {
			fmt.Fprintf(w, "\r%s: %3d%% (%d/%d bytes)", label, done*100/total, done, total)
		} else {
			fmt.Fprintf(w, "\r%s: %d bytes", label, done)
		}
		if total > 0 && done >= total {
			fmt.Fprintln(w)
		}
		return true
	}
}
