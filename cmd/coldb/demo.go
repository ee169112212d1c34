package main

import (
	"errors"
	"fmt"
	"math"

	"colDB/internal/engine"
	"colDB/internal/function"
	"colDB/internal/sql"
	"colDB/internal/storage"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var demoReaders int

// demoCmd walks through a compiled insert that goes stale after a schema
// change, then reads the table from several goroutines.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the compiled-insert / schema-change walkthrough",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := openEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		if demoReaders < 1 {
			return fmt.Errorf("demo: --readers must be at least 1")
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		ec := engine.NewExecutionContext(storage.AllowAll("demo"))

		// 1. Table and a compiled three-row insert.
		table := "trades"
		if _, err := eng.Store().Metadata(table); errors.Is(err, storage.ErrTableNotFound) {
			if _, err := eng.ExecuteSQL(ctx, ec, "CREATE TABLE trades (id INT, price DOUBLE)"); err != nil {
				return err
			}
		}
		stmt, err := sql.Parse("INSERT INTO trades (id, price) VALUES (1, 10.5), (2, 11.25), ($1, $2)")
		if err != nil {
			return err
		}
		op, err := eng.CompileInsert(stmt.(*sql.InsertStmt))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "compiled:", op)

		// 2. Execute at the compiled version.
		ec.SetBindVariable(1, sql.IntValue(3)).SetBindVariable(2, sql.DoubleValue(12))
		future, err := op.Execute(ctx, ec)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "executed:", future)

		// 3. Schema change, then the same compiled insert again.
		meta, err := eng.Store().Metadata(table)
		if err != nil {
			return err
		}
		col := sql.Column{Name: fmt.Sprintf("note_v%d", meta.StructureVersion+1), Type: sql.TypeString}
		if err := eng.AddColumn(ctx, ec.SecurityContext(), table, col); err != nil {
			return err
		}
		fmt.Fprintf(out, "altered: added %s\n", col.Name)

		if _, err := op.Execute(ctx, ec); errors.Is(err, engine.ErrStaleSchema) {
			fmt.Fprintln(out, "rejected:", err)
		} else if err != nil {
			return err
		} else {
			return fmt.Errorf("demo: stale insert was not rejected")
		}

		// 4. Recompile and run again.
		op, err = eng.CompileInsert(stmt.(*sql.InsertStmt))
		if err != nil {
			return err
		}
		if future, err = op.Execute(ctx, ec); err != nil {
			return err
		}
		fmt.Fprintln(out, "recompiled and executed:", future)

		// 5. Parallel readers share one pooled accessor.
		price := function.NewDoubleColumn(meta.ColumnIndex("price"))
		sums := make([]float64, demoReaders)
		var g errgroup.Group
		for r := 0; r < demoReaders; r++ {
			r := r
			g.Go(func() error {
				_, cur, err := eng.Store().Reader(table)
				if err != nil {
					return err
				}
				for cur.Next() {
					if v := price.Double(cur.Record()); !math.IsNaN(v) {
						sums[r] += v
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d readers via %s, sum(price) = %g\n", demoReaders, price, sums[0])

		res, err := eng.ExecuteSQL(ctx, ec, "SELECT * FROM trades")
		if err != nil {
			return err
		}
		printResult(out, res)
		return nil
	},
}

func init() {
	demoCmd.Flags().IntVar(&demoReaders, "readers", 4, "number of concurrent readers")
}
