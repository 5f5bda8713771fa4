package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/lemonberrylabs/nonbool/pkg/expr"
	"github.com/lemonberrylabs/nonbool/pkg/model"
	"github.com/lemonberrylabs/nonbool/pkg/rewrite"
	"github.com/spf13/cobra"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite SRC [DST]",
	Short: "Rewrite the conditions of a source file or directory tree",
	Long: `Rewrite the #if and #elif conditions of SRC.

If SRC is a file the result goes to DST, or to stdout when DST is omitted.
If SRC is a directory the tree is copied to DST with the selected files
rewritten; --in-place rewrites the selected files of SRC instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRewrite,
}

var inferCmd = &cobra.Command{
	Use:   "infer PATH...",
	Short: "Infer a variability model from the comparisons in source files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfer,
}

func init() {
	for _, c := range []*cobra.Command{rewriteCmd, inferCmd} {
		c.Flags().StringArray("include", nil, "Glob of files to process, relative to the tree root (repeatable)")
	}

	rewriteCmd.Flags().Bool("strict", false, "Fail on the first condition that cannot be converted")
	rewriteCmd.Flags().Bool("strip-errors", false, "Blank the body of sections containing #error")
	rewriteCmd.Flags().Bool("in-place", false, "Rewrite the files of a directory in place")
	rewriteCmd.Flags().Int("workers", 0, "Files processed in parallel (default 8, env NONBOOL_WORKERS)")

	inferCmd.Flags().StringP("output", "o", "", "Write the model to this file instead of stdout")
}

func newRewriter(cmd *cobra.Command) (*rewrite.Rewriter, error) {
	vars, consts, err := loadTables(cmd)
	if err != nil {
		return nil, err
	}
	cache, err := expr.NewCache(0)
	if err != nil {
		return nil, err
	}

	workers, err := strconv.Atoi(envOrDefault("NONBOOL_WORKERS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid NONBOOL_WORKERS: %w", err)
	}
	if v, _ := cmd.Flags().GetInt("workers"); v != 0 {
		workers = v
	}
	includes, _ := cmd.Flags().GetStringArray("include")
	opts := rewrite.Options{Includes: includes, Workers: workers}
	if cmd.Flags().Lookup("strict") != nil {
		opts.Strict, _ = cmd.Flags().GetBool("strict")
		opts.StripErrors, _ = cmd.Flags().GetBool("strip-errors")
	}

	return rewrite.New(expr.NewReplacer(vars, consts, cache), opts)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	rw, err := newRewriter(cmd)
	if err != nil {
		return err
	}
	src := args[0]
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	inPlace, _ := cmd.Flags().GetBool("in-place")

	if !info.IsDir() {
		dst := ""
		if len(args) == 2 {
			dst = args[1]
		}
		if inPlace {
			dst = src
		}
		if dst == "" {
			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}
			out, _, err := rw.RewriteSource(src, data)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		stats, err := rw.RewriteFile(src, dst)
		if err != nil {
			return err
		}
		log.Printf("Rewrote %s: %s", src, stats)
		return nil
	}

	dst := src
	switch {
	case inPlace && len(args) == 2:
		return fmt.Errorf("--in-place takes no destination")
	case !inPlace && len(args) == 1:
		return fmt.Errorf("a destination directory is required (or --in-place)")
	case !inPlace:
		dst = args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := rw.RewriteTree(ctx, src, dst)
	if err != nil {
		return err
	}
	log.Printf("Rewrote %s -> %s: %s", src, dst, stats)
	return nil
}

func runInfer(cmd *cobra.Command, args []string) error {
	base, err := loadModel(cmd)
	if err != nil {
		return err
	}
	rw, err := newRewriter(cmd)
	if err != nil {
		return err
	}

	in := model.NewInferrer(base.ConstantTable())
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		files := []string{path}
		if info.IsDir() {
			if files, err = rw.Files(path); err != nil {
				return err
			}
		}
		for _, f := range files {
			if err := in.ScanFile(f); err != nil {
				return fmt.Errorf("scanning %s: %w", f, err)
			}
		}
	}

	m := in.Model()
	log.Printf("Inferred %d variable(s)", len(m.Variables))
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return m.Save(out)
	}
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
