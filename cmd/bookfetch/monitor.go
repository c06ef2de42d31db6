package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/handiism/bookfetch/internal/monitor"
)

var flagStorePath string

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"mon"},
	Short:   "Watch books for new chapters",
}

var monitorAddCmd = &cobra.Command{
	Use:   "add <book-url>",
	Short: "Start watching a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		mgr, err := newManager()
		if err != nil {
			return err
		}
		store, err := monitor.OpenStore(flagStorePath)
		if err != nil {
			return err
		}
		defer store.Close()

		// Fetch once so the baseline is the current latest chapter.
		checker := monitor.NewChecker(store, mgr.Client(), logger)
		status, err := checker.FetchStatus(ctx, args[0])
		if err != nil {
			return err
		}
		if err := store.Add(args[0], status.Title, status.LatestChapter, status.UpdateTime); err != nil {
			return err
		}
		fmt.Printf("Watching %q (latest: %s)\n", status.Title, status.LatestChapter)
		return nil
	},
}

var monitorRemoveCmd = &cobra.Command{
	Use:     "remove <book-url>",
	Aliases: []string{"rm"},
	Short:   "Stop watching a book",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := monitor.OpenStore(flagStorePath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Remove(args[0]); err != nil {
			return err
		}
		fmt.Println("Removed.")
		return nil
	},
}

var monitorListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List watched books",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := monitor.OpenStore(flagStorePath)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No books are being watched.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Title", "Latest Chapter", "Updated", "Checked"})
		for i, e := range entries {
			t.AppendRow(table.Row{i + 1, e.Title, e.LatestChapter, e.UpdateTime, e.CheckedAt.Format("2006-01-02 15:04")})
		}
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

var monitorCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check all watched books for new chapters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		mgr, err := newManager()
		if err != nil {
			return err
		}
		ensureSession(ctx, mgr)

		store, err := monitor.OpenStore(flagStorePath)
		if err != nil {
			return err
		}
		defer store.Close()

		checker := monitor.NewChecker(store, mgr.Client(), logger)
		results, err := checker.CheckAll(ctx)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No books are being watched.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Title", "Status", "Latest Chapter"})
		updates := 0
		for _, r := range results {
			switch {
			case r.Err != nil:
				t.AppendRow(table.Row{r.Entry.Title, text.FgRed.Sprint("error"), r.Err.Error()})
			case r.HasUpdate:
				updates++
				t.AppendRow(table.Row{r.Entry.Title, text.FgGreen.Sprint("update"), r.NewChapter})
			default:
				t.AppendRow(table.Row{r.Entry.Title, "up to date", r.Entry.LatestChapter})
			}
		}
		t.SetStyle(table.StyleLight)
		t.Render()

		if updates == 0 {
			return nil
		}
		if !flagFetchUpdates {
			fmt.Printf("\n%d book(s) have updates. Rerun with --fetch to download them.\n", updates)
			return nil
		}

		for _, r := range results {
			if r.Err != nil || !r.HasUpdate {
				continue
			}
			fmt.Printf("\n📥 Downloading updates for %q...\n", r.Entry.Title)
			path, _, err := mgr.DownloadUpdates(ctx, r.Entry.URL, r.Entry.LatestChapter, "")
			if err != nil {
				logger.Error("update download failed", "title", r.Entry.Title, "error", err)
				continue
			}
			if err := store.MarkSeen(r.Entry.URL, r.NewChapter, r.UpdateTime); err != nil {
				logger.Warn("could not record downloaded update", "error", err)
			}
			fmt.Printf("   Saved to %s\n", path)
		}
		return nil
	},
}

var flagFetchUpdates bool

func init() {
	monitorCmd.PersistentFlags().StringVar(&flagStorePath, "store", "watchlist.db", "path to the watch-list database")
	monitorCheckCmd.Flags().BoolVar(&flagFetchUpdates, "fetch", false, "download new chapters as update EPUBs")
	monitorCmd.AddCommand(monitorAddCmd, monitorRemoveCmd, monitorListCmd, monitorCheckCmd)
}
