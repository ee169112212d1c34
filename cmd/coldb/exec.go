package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"colDB/internal/engine"
	"colDB/internal/sql"
	"colDB/internal/storage"

	"github.com/spf13/cobra"
)

var (
	execBinds     []string
	execPrincipal string
	execReadOnly  bool
)

var execCmd = &cobra.Command{
	Use:   "exec [statement...]",
	Short: "Execute SQL statements (reads one per line from stdin when none are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := openEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		sec := storage.AllowAll(execPrincipal)
		if execReadOnly {
			sec = storage.ReadOnly(execPrincipal)
		}
		ec := engine.NewExecutionContext(sec)
		if err := applyBinds(ec, execBinds); err != nil {
			return err
		}

		if len(args) > 0 {
			for _, q := range args {
				if err := runStatement(cmd, eng, ec, q); err != nil {
					return err
				}
			}
			return nil
		}
		return runLines(cmd, eng, ec, cmd.InOrStdin())
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables and their structure versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := openEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		out := cmd.OutOrStdout()
		for _, name := range eng.Store().ListTables() {
			meta, err := eng.Store().Metadata(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s v%d (%s)\n", name, meta.StructureVersion, strings.Join(meta.ColumnNames(), ", "))
		}
		return nil
	},
}

func init() {
	execCmd.Flags().StringArrayVar(&execBinds, "bind", nil, "bind variable as N=literal, e.g. --bind 1=42 --bind 2='abc'")
	execCmd.Flags().StringVar(&execPrincipal, "principal", os.Getenv("USER"), "principal recorded on writer checkouts")
	execCmd.Flags().BoolVar(&execReadOnly, "read-only", false, "deny every write")
}

// applyBinds parses N=literal pairs into ec.
func applyBinds(ec *engine.SessionContext, binds []string) error {
	for _, b := range binds {
		idx, lit, ok := strings.Cut(b, "=")
		if !ok {
			return fmt.Errorf("bind %q: expected N=literal", b)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(idx), "$"))
		if err != nil || n < 1 {
			return fmt.Errorf("bind %q: invalid index", b)
		}
		v, err := sql.ParseLiteral(lit)
		if err != nil {
			return fmt.Errorf("bind %q: %w", b, err)
		}
		ec.SetBindVariable(n, v)
	}
	return nil
}

func runLines(cmd *cobra.Command, eng *engine.DBEngine, ec engine.ExecutionContext, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if err := runStatement(cmd, eng, ec, line); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "ERROR:", err)
		}
	}
	return sc.Err()
}

func runStatement(cmd *cobra.Command, eng *engine.DBEngine, ec engine.ExecutionContext, query string) error {
	res, err := eng.ExecuteSQL(cmd.Context(), ec, query)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(out io.Writer, res *engine.Result) {
	if res.Columns == nil {
		if res.Affected > 0 {
			fmt.Fprintf(out, "OK, %d row(s) affected\n", res.Affected)
		} else {
			fmt.Fprintln(out, "OK")
		}
		return
	}

	fmt.Fprintln(out, strings.Join(res.Columns, " | "))
	for _, row := range res.Rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = v.String()
		}
		fmt.Fprintln(out, strings.Join(parts, " | "))
	}
	fmt.Fprintf(out, "(%d row(s))\n", len(res.Rows))
}
