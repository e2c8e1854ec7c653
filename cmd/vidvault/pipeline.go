package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vmunix/vidvault/internal/acquire"
	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/internal/library"
	"github.com/vmunix/vidvault/internal/saver"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "List the downloadable formats of a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <url>",
	Short: "Show descriptive metadata for a video",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetadata,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download one format into the staging directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

var saveCmd = &cobra.Command{
	Use:   "save <url> <staged-file>",
	Short: "File a staged download into the library",
	Args:  cobra.ExactArgs(2),
	RunE:  runSave,
}

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Fetch a format and save it into the library",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	fetchCmd.Flags().StringP("format", "f", "", "Format id from 'vidvault analyze' (required)")
	_ = fetchCmd.MarkFlagRequired("format")

	getCmd.Flags().StringP("format", "f", "", "Format id from 'vidvault analyze' (required)")
	_ = getCmd.MarkFlagRequired("format")

	for _, cmd := range []*cobra.Command{saveCmd, getCmd} {
		cmd.Flags().String("title", "", "Title (default: from the source)")
		cmd.Flags().String("description", "", "Description")
		cmd.Flags().String("category", "", "Category")
		cmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")
		cmd.Flags().Bool("refresh", false, "Ignore cached analysis and query the source again")
	}

	rootCmd.AddCommand(analyzeCmd, metadataCmd, fetchCmd, saveCmd, getCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		infos, err := a.extractor.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a.remember(cmd.Context(), args[0], infos)
		videos := a.formats.BuildAll(infos)

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, map[string]any{"videos": videos})
		}

		for _, v := range videos {
			_, _ = fmt.Fprintf(out, "%s\n  %s  duration %s  uploader %s\n\n",
				v.Title, v.URL, formatDuration(v.Duration), orDash(v.Uploader))
			if len(v.Formats) == 0 {
				_, _ = fmt.Fprintln(out, "  (no video formats)")
				continue
			}
			_, _ = fmt.Fprintf(out, "  %-10s %-6s %-12s %-8s %-10s %s\n", "FORMAT", "EXT", "RESOLUTION", "QUALITY", "SIZE", "NOTE")
			for _, f := range v.Formats {
				size := "-"
				if f.Filesize != nil {
					size = formatSize(*f.Filesize)
				}
				_, _ = fmt.Fprintf(out, "  %-10s %-6s %-12s %-8s %-10s %s\n",
					f.FormatID, f.Ext, f.Resolution, f.Quality, size, f.FormatNote)
			}
			_, _ = fmt.Fprintln(out)
		}
		return nil
	})
}

func runMetadata(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		info, err := a.extractor.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a.remember(cmd.Context(), args[0], []*extractor.Info{info})

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, info)
		}
		_, _ = fmt.Fprintf(out, "Title:      %s\n", info.Title)
		_, _ = fmt.Fprintf(out, "Uploader:   %s\n", orDash(info.Uploader))
		_, _ = fmt.Fprintf(out, "Duration:   %s\n", formatDuration(info.Duration))
		_, _ = fmt.Fprintf(out, "Views:      %s\n", formatCount(info.ViewCount))
		_, _ = fmt.Fprintf(out, "Likes:      %s\n", formatCount(info.LikeCount))
		_, _ = fmt.Fprintf(out, "Categories: %s\n", joinOrDash(info.Categories))
		_, _ = fmt.Fprintf(out, "Tags:       %s\n", joinOrDash(info.Tags))
		return nil
	})
}

func runFetch(cmd *cobra.Command, args []string) error {
	formatID, _ := cmd.Flags().GetString("format")
	return withApp(func(a *app) error {
		res, err := a.acquirer.Acquire(cmd.Context(), acquire.Request{URL: args[0], FormatID: formatID})
		if err != nil {
			return err
		}
		return printAcquired(cmd, res)
	})
}

func runSave(cmd *cobra.Command, args []string) error {
	fields, title := saveFields(cmd)
	return withApp(func(a *app) error {
		if err := a.refresh(cmd, args[0]); err != nil {
			return err
		}
		res, err := a.saver.Save(cmd.Context(), saver.Request{
			URL:      args[0],
			FileName: args[1],
			Title:    title,
			Fields:   fields,
		})
		if err != nil {
			return err
		}
		return printSaved(cmd, res)
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	formatID, _ := cmd.Flags().GetString("format")
	fields, title := saveFields(cmd)
	return withApp(func(a *app) error {
		if err := a.refresh(cmd, args[0]); err != nil {
			return err
		}
		res, err := a.acquirer.Acquire(cmd.Context(), acquire.Request{URL: args[0], FormatID: formatID})
		if err != nil {
			return err
		}
		if !jsonOutput {
			_ = printAcquired(cmd, res)
		}

		saved, err := a.saver.Save(cmd.Context(), saver.Request{
			URL:      args[0],
			FileName: res.FileName,
			Title:    title,
			Fields:   fields,
			Staged: &acquire.Staged{
				Token:         res.Token,
				MediaPath:     res.MediaPath,
				ThumbnailPath: res.ThumbnailPath,
			},
		})
		if err != nil {
			return err
		}
		return printSaved(cmd, saved)
	})
}

func saveFields(cmd *cobra.Command) (library.Metadata, string) {
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	category, _ := cmd.Flags().GetString("category")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	return library.Metadata{
		Description: description,
		Category:    category,
		Tags:        tags,
	}, title
}

// refresh drops cached analysis for url when --refresh is set.
func (a *app) refresh(cmd *cobra.Command, url string) error {
	if ok, _ := cmd.Flags().GetBool("refresh"); !ok {
		return nil
	}
	return a.cache.Forget(cmd.Context(), url)
}

// remember caches analyzed documents so a later save can skip the probe.
func (a *app) remember(ctx context.Context, url string, infos []*extractor.Info) {
	if len(infos) != 1 {
		return
	}
	if err := a.cache.PutInfo(ctx, url, infos[0], a.cfg.Metadata.CacheTTL); err != nil {
		a.log.Warn("failed to cache analysis", "url", url, "error", err)
	}
}

func printAcquired(cmd *cobra.Command, res *acquire.Result) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	merged := ""
	if res.Merged {
		merged = " (merged)"
	}
	_, _ = fmt.Fprintf(out, "Downloaded %s (%s)%s\n", res.FileName, formatSize(res.Size), merged)
	if res.ThumbnailFileName != "" {
		_, _ = fmt.Fprintf(out, "Thumbnail  %s\n", res.ThumbnailFileName)
	}
	return nil
}

func printSaved(cmd *cobra.Command, res *saver.Result) error {
	out := cmd.OutOrStdout()
	e := res.Entry
	if jsonOutput {
		return printJSON(out, e)
	}
	verb := "Saved"
	if res.Existing {
		verb = "Already saved"
	}
	_, _ = fmt.Fprintf(out, "%s %q as %s\n", verb, e.Title, filepath.Base(e.FilePath))
	_, _ = fmt.Fprintf(out, "  id:   %s\n", e.ID)
	_, _ = fmt.Fprintf(out, "  size: %s\n", formatSize(e.FileSize))
	if len(res.Synced) > 0 {
		_, _ = fmt.Fprintf(out, "  synced from source: %s\n", joinOrDash(res.Synced))
	}
	if res.MetadataWarning != nil {
		_, _ = fmt.Fprintf(out, "  warning: %v\n", res.MetadataWarning)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
