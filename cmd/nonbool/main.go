// Package main is the entry point for the nonbool command.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/nonbool/pkg/model"
	"github.com/lemonberrylabs/nonbool/pkg/types"
	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "nonbool",
	Short: "Rewrite non-boolean preprocessor conditions into boolean ones",
	Long: `nonbool rewrites #if and #elif conditions that compare or compute with
configuration macros into plain boolean combinations of defined(...) flags,
using a variability model that lists the values each macro can take.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("nonbool version {{.Version}}\n")

	rootCmd.PersistentFlags().String("model", "", "Variability model YAML/JSON file (env NONBOOL_MODEL)")
	rootCmd.PersistentFlags().StringArrayP("define", "D", nil, "Constant NAME=VALUE, overrides the model (repeatable)")

	log.SetFlags(0)
	log.SetPrefix("nonbool: ")

	rootCmd.AddCommand(exprCmd, lineCmd, rewriteCmd, inferCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadModel reads the model named by --model or NONBOOL_MODEL. Without one
// an empty model is returned and every macro is treated as unknown.
func loadModel(cmd *cobra.Command) (*model.Model, error) {
	path := os.Getenv("NONBOOL_MODEL")
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		path = v
	}

	m := &model.Model{}
	if path != "" {
		var err error
		if m, err = model.Load(path); err != nil {
			return nil, err
		}
	}

	defines, _ := cmd.Flags().GetStringArray("define")
	for _, d := range defines {
		name, value, err := parseDefine(d)
		if err != nil {
			return nil, err
		}
		if m.Constants == nil {
			m.Constants = make(map[string]int64)
		}
		m.Constants[name] = value
	}
	return m, nil
}

// loadTables returns the lookup tables of the configured model.
func loadTables(cmd *cobra.Command) (types.VariableTable, types.ConstantTable, error) {
	m, err := loadModel(cmd)
	if err != nil {
		return nil, nil, err
	}
	return m.VariableTable(), m.ConstantTable(), nil
}

// parseDefine parses NAME=VALUE. A bare NAME defines the constant 1, as
// the compiler's -D does.
func parseDefine(s string) (string, int64, error) {
	name, value, found := strings.Cut(s, "=")
	if name == "" {
		return "", 0, fmt.Errorf("invalid define %q: missing name", s)
	}
	if !found {
		return name, 1, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid define %q: %w", s, err)
	}
	return name, v, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
