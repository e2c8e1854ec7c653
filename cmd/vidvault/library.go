package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vmunix/vidvault/internal/history"
	"github.com/vmunix/vidvault/internal/library"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Browse the video library",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library entries",
	RunE:  runLibraryList,
}

var libraryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one library entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryShow,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show acquisition history",
	RunE:  runHistory,
}

func init() {
	libraryListCmd.Flags().StringP("search", "s", "", "Search title, description and tags")
	libraryListCmd.Flags().String("tag", "", "Filter by tag")
	libraryListCmd.Flags().String("category", "", "Filter by category")
	libraryListCmd.Flags().String("uploader", "", "Filter by uploader")
	libraryListCmd.Flags().String("sort", library.SortSavedAt, "Sort by: saved_at, title, view_count, like_count, duration")
	libraryListCmd.Flags().String("order", library.OrderDesc, "Order: asc, desc")

	historyCmd.Flags().String("run", "", "Filter by run token")
	historyCmd.Flags().String("event", "", "Filter by event (acquired, merged, merge_failed, failed, saved)")
	historyCmd.Flags().IntP("limit", "n", 20, "Max entries")

	libraryCmd.AddCommand(libraryListCmd, libraryShowCmd)
	rootCmd.AddCommand(libraryCmd, historyCmd)
}

func runLibraryList(cmd *cobra.Command, _ []string) error {
	var q library.Query
	q.Search, _ = cmd.Flags().GetString("search")
	q.Tag, _ = cmd.Flags().GetString("tag")
	q.Category, _ = cmd.Flags().GetString("category")
	q.Uploader, _ = cmd.Flags().GetString("uploader")
	q.SortBy, _ = cmd.Flags().GetString("sort")
	q.Order, _ = cmd.Flags().GetString("order")

	return withApp(func(a *app) error {
		res, err := a.library.List(q)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, res)
		}
		if len(res.Entries) == 0 {
			_, _ = fmt.Fprintf(out, "No videos found (%d in library).\n", res.Total)
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tTITLE\tUPLOADER\tDURATION\tVIEWS\tSIZE\tSAVED")
		for _, e := range res.Entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(e.ID, 12),
				truncate(e.Title, 40),
				truncate(orDash(e.Uploader), 20),
				formatDuration(e.Duration),
				formatCount(e.ViewCount),
				formatSize(e.FileSize),
				e.SavedAt.Time.Format("2006-01-02 15:04"))
		}
		_ = tw.Flush()
		_, _ = fmt.Fprintf(out, "\n%d of %d videos\n", len(res.Entries), res.Total)
		return nil
	})
}

func runLibraryShow(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		e, err := a.library.Get(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, e)
		}
		_, _ = fmt.Fprintf(out, "ID:          %s\n", e.ID)
		_, _ = fmt.Fprintf(out, "Title:       %s\n", e.Title)
		_, _ = fmt.Fprintf(out, "Source:      %s\n", e.VideoURL)
		_, _ = fmt.Fprintf(out, "File:        %s (%s)\n", a.library.MediaPath(e), formatSize(e.FileSize))
		if e.ThumbnailFileName != "" {
			_, _ = fmt.Fprintf(out, "Thumbnail:   %s\n", e.ThumbnailFileName)
		}
		_, _ = fmt.Fprintf(out, "Saved:       %s\n", e.SavedAt.Time.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(out, "Uploader:    %s\n", orDash(e.Uploader))
		_, _ = fmt.Fprintf(out, "Duration:    %s\n", formatDuration(e.Duration))
		_, _ = fmt.Fprintf(out, "Views:       %s\n", formatCount(e.ViewCount))
		_, _ = fmt.Fprintf(out, "Category:    %s\n", orDash(e.Category))
		_, _ = fmt.Fprintf(out, "Tags:        %s\n", joinOrDash(e.Tags))
		if e.Description != "" {
			_, _ = fmt.Fprintf(out, "\n%s\n", e.Description)
		}
		return nil
	})
}

func runHistory(cmd *cobra.Command, _ []string) error {
	var f history.Filter
	if run, _ := cmd.Flags().GetString("run"); run != "" {
		f.Run = &run
	}
	if event, _ := cmd.Flags().GetString("event"); event != "" {
		f.Event = &event
	}
	f.Limit, _ = cmd.Flags().GetInt("limit")

	return withApp(func(a *app) error {
		entries, err := a.history.List(f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, entries)
		}
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, "No history.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "TIME\tRUN\tEVENT\tURL")
		for _, h := range entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				h.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(h.Run, 16),
				h.Event,
				truncate(h.URL, 60))
		}
		return tw.Flush()
	})
}
