package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		out     string
		filters map[string]string
	)

	cmd := &cobra.Command{
		Use:       "export <articles|threads>",
		Short:     "Export every page of a collection as JSON",
		Long:      `Fetch all pages of a collection concurrently and write the items as one JSON array.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"articles", "threads"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collection := args[0]
			if collection != "articles" && collection != "threads" {
				return fmt.Errorf("unknown collection %q (want articles or threads)", collection)
			}

			c, release, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			query := pagination.Filters{}
			for k, v := range filters {
				query[k] = pagination.Value(v)
			}

			batchCfg := opts.cfg.BatchConfig()
			n, err := writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) (int, error) {
				switch collection {
				case "articles":
					return exportAll[client.Article](ctx, c.Articles(), batchCfg, query, w)
				default:
					return exportAll[client.Thread](ctx, c.Threads(), batchCfg, query, w)
				}
			})
			if err != nil {
				return fmt.Errorf("export %s: %w", collection, err)
			}

			opts.logger.Info().
				Str("collection", collection).
				Int("items", n).
				Msg("Export complete")

			if out != "" {
				green := color.New(color.FgGreen).SprintFunc()
				fmt.Fprintf(cmd.ErrOrStderr(), "%s Exported %d %s to %s\n", green("✓"), n, collection, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "Filter as key=value (repeatable), e.g. --filter tag=go")

	return cmd
}

// createOutput opens the --out file.
var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeOutput runs write against stdout, or against the file at path when
// one is given. A failed close of the file is reported.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) (int, error)) (n int, err error) {
	if path == "" {
		return write(stdout)
	}

	f, err := createOutput(path)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()

	return write(f)
}

// exportAll fetches every page through a BatchFetcher and writes the items
// as an indented JSON array. It returns the number of items written.
func exportAll[T any](ctx context.Context, fetcher pagination.PageFetcher[T], cfg pagination.Config, filters pagination.Filters, w io.Writer) (int, error) {
	items, err := pagination.NewBatchFetcher(fetcher, cfg).FetchAll(ctx, filters)
	if err != nil {
		return 0, err
	}
	if items == nil {
		items = []T{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return 0, fmt.Errorf("encode items: %w", err)
	}
	return len(items), nil
}
