package main

import (
	"fmt"
	"strconv"

	"github.com/Sternrassler/beekeeper-client/pkg/like"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLikeCmd(opts *rootOptions) *cobra.Command {
	var unlike bool

	cmd := &cobra.Command{
		Use:   "like <article-id>",
		Short: "Like or unlike an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid article id %q", args[0])
			}

			ctx := cmd.Context()
			c, release, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			// The toggle starts on the opposite state so one Toggle sends
			// the requested one. The backend's answer replaces the count.
			toggle := like.New(id, unlike, 0, c)
			state, err := toggle.Toggle(ctx)
			if err != nil {
				return fmt.Errorf("like article %d: %w", id, err)
			}

			verb := "Liked"
			if !state.Liked {
				verb = "Unliked"
			}
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s article %d (%d likes)\n", green("✓"), verb, id, state.Count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&unlike, "unlike", false, "Remove the like instead")
	return cmd
}
