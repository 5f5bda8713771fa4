package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lemonberrylabs/nonbool/pkg/expr"
	"github.com/lemonberrylabs/nonbool/pkg/types"
	"github.com/spf13/cobra"
)

var exprCmd = &cobra.Command{
	Use:   "expr EXPRESSION...",
	Short: "Convert bare conditions",
	Example: `  nonbool expr --model model.yaml '(A & 2) > 0'
  nonbool expr --mode plain 'X == 3 || !Y'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExpr,
}

var lineCmd = &cobra.Command{
	Use:   "line [LINE...]",
	Short: "Convert #if/#elif lines given as arguments or on stdin",
	RunE:  runLine,
}

func init() {
	exprCmd.Flags().String("mode", "cpp", "Output mode: cpp or plain")
	exprCmd.Flags().Bool("formula", false, "Print the logic formula instead of the rendered condition")
	exprCmd.Flags().Bool("tree", false, "Print the parse tree before the result")
}

func runExpr(cmd *cobra.Command, args []string) error {
	vars, consts, err := loadTables(cmd)
	if err != nil {
		return err
	}
	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := expr.ParseMode(modeName)
	if err != nil {
		return err
	}
	asFormula, _ := cmd.Flags().GetBool("formula")
	showTree, _ := cmd.Flags().GetBool("tree")

	r := expr.NewReplacer(vars, consts, nil)
	r.Mode = mode
	out := cmd.OutOrStdout()

	var failed error
	for _, e := range args {
		if showTree {
			if node, err := expr.Parse(e); err == nil {
				fmt.Fprintf(out, "# %s\n", node)
			}
		}
		res, err := r.Convert(e)
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			failed = err
			continue
		}
		if asFormula {
			fmt.Fprintln(out, expr.ToFormula(res))
		} else {
			fmt.Fprintln(out, expr.ToString(res, mode))
		}
	}
	return failed
}

func runLine(cmd *cobra.Command, args []string) error {
	vars, consts, err := loadTables(cmd)
	if err != nil {
		return err
	}
	cache, err := expr.NewCache(0)
	if err != nil {
		return err
	}
	r := expr.NewReplacer(vars, consts, cache)
	out := cmd.OutOrStdout()

	var failed error
	convert := func(line string) {
		res, err := r.ReplaceLine(line)
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			failed = err
			fmt.Fprintln(out, line)
			return
		}
		fmt.Fprintln(out, res)
	}

	if len(args) > 0 {
		for _, l := range args {
			convert(l)
		}
		return failed
	}

	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		convert(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return failed
}

// printError writes err and, for expression errors, the expression with a
// caret marker under the offending positions.
func printError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "error: %v\n", err)
	var ee *types.ExpressionError
	if errors.As(err, &ee) && ee.Expression != "" && len(ee.Positions) > 0 {
		fmt.Fprintf(w, "  %s\n  %s\n", ee.Expression, ee.Marker())
	}
}
