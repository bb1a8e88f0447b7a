package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
	"github.com/fatih/color"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func renderArticles(w io.Writer, items []client.Article) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No articles"))
		return
	}

	for _, a := range items {
		tags := make([]string, 0, len(a.Tags))
		for _, t := range a.Tags {
			tags = append(tags, "#"+t.Slug)
		}

		fmt.Fprintf(w, "%s %s\n", yellow(fmt.Sprintf("%5d", a.ID)), bold(a.Title))
		fmt.Fprintf(w, "      by %s  %d likes", a.Author.Username, a.LikeCount)
		if a.Liked {
			fmt.Fprint(w, red(" (liked)"))
		}
		if len(tags) > 0 {
			fmt.Fprintf(w, "  %s", gray(strings.Join(tags, " ")))
		}
		fmt.Fprintln(w)
	}
}

func renderThreads(w io.Writer, items []client.Thread) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No threads"))
		return
	}

	for _, t := range items {
		title := bold(t.Title)
		switch {
		case t.Pinned:
			title = yellow("[pinned] ") + title
		case t.Locked:
			title = gray("[locked] ") + title
		}
		fmt.Fprintf(w, "%s %s\n", yellow(fmt.Sprintf("%5d", t.ID)), title)
		fmt.Fprintf(w, "      by %s  %d replies", t.Author.Username, t.ReplyCount)
		if t.Category != "" {
			fmt.Fprintf(w, "  %s", gray("["+t.Category+"]"))
		}
		fmt.Fprintln(w)
	}
}

func renderComments(w io.Writer, items []client.Comment) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No comments"))
		return
	}

	for _, c := range items {
		indent := strings.Repeat("  ", max(c.Depth, 0))
		fmt.Fprintf(w, "%s%s %s\n", indent, yellow(fmt.Sprintf("%5d", c.ID)), bold(c.Author.Username))
		fmt.Fprintf(w, "%s      %s\n", indent, c.Content)
	}
}

func renderTags(w io.Writer, items []client.Tag) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No tags"))
		return
	}

	for _, t := range items {
		fmt.Fprintf(w, "  %s %s %s\n", cyan("#"+t.Slug), t.Name, gray(fmt.Sprintf("(%d)", t.Count)))
	}
}

// renderPager prints the page controls, e.g. "< 1 ... 4 [5] 6 ... 12 >".
func renderPager(w io.Writer, state pagination.State) {
	win := state.Window()

	parts := make([]string, 0, len(win.VisiblePages)+4)
	if win.HasPreviousPage {
		parts = append(parts, "<")
	}
	for _, item := range win.Controls() {
		switch {
		case item.Ellipsis:
			parts = append(parts, gray(item.String()))
		case item.Number == win.CurrentPage:
			parts = append(parts, cyan(fmt.Sprintf("[%d]", item.Number)))
		default:
			parts = append(parts, item.String())
		}
	}
	if win.HasNextPage {
		parts = append(parts, ">")
	}

	fmt.Fprintf(w, "\n%s  %s\n", strings.Join(parts, " "),
		gray(fmt.Sprintf("page %d of %d, %d items", win.CurrentPage, win.TotalPages, state.TotalItems)))
}
