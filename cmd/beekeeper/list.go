package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/Sternrassler/beekeeper-client/pkg/listfetch"
	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
	"github.com/spf13/cobra"
)

// listCommand describes one paginated collection command.
type listCommand[T any] struct {
	use     string
	short   string
	list    string
	args    cobra.PositionalArgs
	filters map[string]string // flag name -> usage
	fetcher func(c *client.Client, args []string) (pagination.PageFetcher[T], error)
	render  func(w io.Writer, items []T)
}

func newArticlesCmd(opts *rootOptions) *cobra.Command {
	return newListCmd(opts, listCommand[client.Article]{
		use:   "articles",
		short: "List blog articles",
		list:  "articles",
		filters: map[string]string{
			"tag":    "Only articles with this tag slug",
			"author": "Only articles by this username",
			"search": "Full text search",
		},
		fetcher: func(c *client.Client, _ []string) (pagination.PageFetcher[client.Article], error) {
			return c.Articles(), nil
		},
		render: renderArticles,
	})
}

func newThreadsCmd(opts *rootOptions) *cobra.Command {
	return newListCmd(opts, listCommand[client.Thread]{
		use:   "threads",
		short: "List forum threads",
		list:  "threads",
		filters: map[string]string{
			"category": "Only threads in this category",
			"author":   "Only threads by this username",
			"search":   "Full text search",
		},
		fetcher: func(c *client.Client, _ []string) (pagination.PageFetcher[client.Thread], error) {
			return c.Threads(), nil
		},
		render: renderThreads,
	})
}

func newCommentsCmd(opts *rootOptions) *cobra.Command {
	return newListCmd(opts, listCommand[client.Comment]{
		use:   "comments <article-id>",
		short: "List the comments of an article",
		list:  "comments",
		args:  cobra.ExactArgs(1),
		fetcher: func(c *client.Client, args []string) (pagination.PageFetcher[client.Comment], error) {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid article id %q", args[0])
			}
			return c.Comments(id), nil
		},
		render: renderComments,
	})
}

func newTagsCmd(opts *rootOptions) *cobra.Command {
	return newListCmd(opts, listCommand[client.Tag]{
		use:   "tags",
		short: "List article tags",
		list:  "tags",
		filters: map[string]string{
			"search": "Only tags matching this name",
		},
		fetcher: func(c *client.Client, _ []string) (pagination.PageFetcher[client.Tag], error) {
			return c.Tags(), nil
		},
		render: renderTags,
	})
}

func newListCmd[T any](opts *rootOptions, lc listCommand[T]) *cobra.Command {
	var page, pageSize int

	if lc.args == nil {
		lc.args = cobra.NoArgs
	}

	cmd := &cobra.Command{
		Use:   lc.use,
		Short: lc.short,
		Args:  lc.args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, release, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			fetcher, err := lc.fetcher(c, args)
			if err != nil {
				return err
			}

			if pageSize <= 0 {
				pageSize = opts.cfg.List.PageSize
			}

			ctrl := listfetch.New(fetcher, listfetch.Config{
				List:            lc.list,
				PageSize:        pageSize,
				MaxVisiblePages: opts.cfg.List.MaxVisiblePages,
			})
			defer ctrl.Close()

			ctrl.SetParams(page, filtersFromFlags(cmd, lc.filters))
			if err := ctrl.Wait(ctx); err != nil {
				return err
			}

			snap := ctrl.State()
			if snap.Err != nil {
				return fmt.Errorf("list %s: %w", lc.list, snap.Err)
			}

			out := cmd.OutOrStdout()
			lc.render(out, snap.Items)
			renderPager(out, snap.Pagination)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number (clamped to the last page)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Items per page (default from config)")
	for name, usage := range lc.filters {
		cmd.Flags().String(name, "", usage)
	}

	return cmd
}

// filtersFromFlags returns the filters whose flags were set. Unset flags
// stay undefined rather than empty.
func filtersFromFlags(cmd *cobra.Command, names map[string]string) pagination.Filters {
	filters := pagination.Filters{}
	for name := range names {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, _ := cmd.Flags().GetString(name)
		filters[name] = pagination.Value(v)
	}
	return filters
}
