// Command mysteryquery runs SQL against a mysteryd gRPC endpoint.
//
//	mysteryquery -addr localhost:9090 "SELECT * FROM crimes"
//	echo "SELECT * FROM victim" | mysteryquery -mode csv
//	mysteryquery -check Southwest
//	mysteryquery -schema
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/SimonWaldherr/sqlmystery/internal/exporter"
	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/rpc"
)

var (
	flagAddr    = flag.String("addr", "localhost:9090", "mysteryd gRPC address")
	flagMode    = flag.String("mode", "column", "output mode: column, csv, json, xml")
	flagCheck   = flag.String("check", "", "submit an answer instead of a query")
	flagSchema  = flag.Bool("schema", false, "list tables, columns and row counts")
	flagTimeout = flag.Duration("timeout", 30*time.Second, "request timeout")
)

func main() {
	flag.Parse()
	if err := run(os.Stdout, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "mysteryquery:", err)
		os.Exit(1)
	}
}

func run(out io.Writer, in io.Reader) error {
	c, err := rpc.Dial(*flagAddr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	switch {
	case *flagCheck != "":
		ok, err := c.Check(ctx, *flagCheck)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "incorrect")
			return errors.New("answer does not match")
		}
		fmt.Fprintln(out, "correct")
		return nil
	case *flagSchema:
		tables, err := c.Schema(ctx)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Fprintf(out, "%s (%d rows)\n", t.Name, t.Rows)
			for _, col := range t.Columns {
				fmt.Fprintf(out, "  %-24s %s\n", col.Name, col.Type)
			}
		}
		return nil
	}

	sql := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(sql) == "" {
		b, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		sql = string(b)
	}
	if strings.TrimSpace(sql) == "" {
		return errors.New("no SQL given")
	}

	res, err := c.Query(ctx, sql)
	if err != nil {
		return err
	}
	return render(out, res, *flagMode)
}

func render(out io.Writer, res query.Outcome, mode string) error {
	switch res.Kind {
	case query.Failed:
		return fmt.Errorf("query failed: %s", res.Reason)
	case query.Empty:
		if mode == "column" {
			fmt.Fprintln(out, "(no rows)")
			return nil
		}
	}
	if mode == "column" {
		renderColumn(out, res)
		return nil
	}
	return exporter.Write(out, mode, res, exporter.Options{PrettyJSON: true})
}

func renderColumn(out io.Writer, res query.Outcome) {
	cell := func(v any) string {
		if v == nil {
			return "NULL"
		}
		return exporter.ValueToString(v)
	}
	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = len(c)
	}
	for _, row := range res.Rows {
		for i := range res.Columns {
			if i < len(row) && len(cell(row[i])) > widths[i] {
				widths[i] = len(cell(row[i]))
			}
		}
	}
	for i, c := range res.Columns {
		fmt.Fprintf(out, "%s  ", padRight(c, widths[i]))
	}
	fmt.Fprintln(out)
	for i := range res.Columns {
		fmt.Fprintf(out, "%s  ", strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(out)
	for _, row := range res.Rows {
		for i := range res.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			fmt.Fprintf(out, "%s  ", padRight(cell(v), widths[i]))
		}
		fmt.Fprintln(out)
	}
	if res.Truncated {
		fmt.Fprintf(out, "(first %d rows)\n", len(res.Rows))
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
