// Command gridcheck validates grid files. Each argument may be a grid file or a
// directory of .json and .hcl grids; with no arguments it checks ./grids.
//
// For every grid it reports dimensions, obstacle and free cell counts, and
// whether the free cells form a single region a rover can fully explore.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/rover-grid/fleet/config"
)

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "gridcheck",
		Usage:     "Validate rover grid files",
		ArgsUsage: "[file or directory ...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "Treat warnings such as disconnected free space as errors"},
			&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = []string{"grids"}
			}

			results, err := collect(paths)
			if err != nil {
				return err
			}

			strict := cmd.Bool("strict")
			var ok bool
			if cmd.Bool("json") {
				ok, err = writeJSON(out, results, strict)
				if err != nil {
					return err
				}
			} else {
				ok = config.WriteReport(out, results, strict)
			}

			if !ok {
				return errors.New("grid validation failed")
			}
			return nil
		},
	}
}

// collect validates every path, expanding directories
func collect(paths []string) ([]config.ValidationResult, error) {
	var results []config.ValidationResult
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			results = append(results, config.ValidateGridFile(path))
			continue
		}

		dirResults, err := config.ValidateGridDir(path)
		if err != nil {
			return nil, err
		}
		results = append(results, dirResults...)
	}
	return results, nil
}

func writeJSON(w io.Writer, results []config.ValidationResult, strict bool) (bool, error) {
	ok := true
	for _, r := range results {
		if !r.Valid || (strict && len(r.Warnings) > 0) {
			ok = false
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return false, err
	}
	return ok, nil
}
