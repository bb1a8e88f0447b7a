package main

import (
	"fmt"

	"github.com/Sternrassler/beekeeper-client/pkg/settings"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show the site settings published by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, release, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			svc := settings.NewService(c, settings.Config{})
			defer svc.Close()

			s, err := svc.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n%s\n\n", cyan("=== "+s.SiteTitle+" ==="))
			fmt.Fprintf(w, "  Posts per page:    %d\n", s.PostsPerPage)
			fmt.Fprintf(w, "  Max visible pages: %d\n", s.MaxVisiblePages)
			fmt.Fprintf(w, "  Forum:             %s\n", enabled(s.ForumEnabled))
			fmt.Fprintf(w, "  Comments:          %s\n", enabled(s.CommentsEnabled))
			return nil
		},
	}
}

func enabled(on bool) string {
	if on {
		return color.New(color.FgGreen).Sprint("enabled")
	}
	return gray("disabled")
}
