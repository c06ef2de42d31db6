package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/handiism/bookfetch/internal/cookies"
	"github.com/handiism/bookfetch/internal/download"
	"github.com/handiism/bookfetch/internal/engine"
	"github.com/handiism/bookfetch/internal/esjzone"
)

var (
	flagTxt      bool
	flagNoImages bool
	flagSince    string
	flagUntil    string
)

var downloadCmd = &cobra.Command{
	Use:     "download <book-url>",
	Aliases: []string{"dl"},
	Short:   "Download a book",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if flagTxt {
			settings.Download.Format = "txt"
		}
		if flagNoImages {
			settings.Download.Images = false
		}

		mgr, err := newManager()
		if err != nil {
			return err
		}
		ensureSession(ctx, mgr)
		mgr.OnProgress = printProgress
		mgr.OnRateUpdate = printRate

		var (
			path  string
			stats engine.Stats
		)
		if flagSince != "" || flagUntil != "" {
			path, stats, err = mgr.DownloadUpdates(ctx, args[0], flagSince, flagUntil)
		} else {
			path, stats, err = mgr.Download(ctx, args[0])
		}
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("✨ Complete! Chapters %d/%d, images %d/%d",
			stats.ChaptersSucceeded, stats.ChaptersTotal,
			stats.ImagesSucceeded, stats.ImagesTotal)
		if failed := stats.FailedTasks(); failed > 0 {
			fmt.Printf(" (%d failed)", failed)
		}
		fmt.Printf("\n   Saved to %s\n", path)
		return nil
	},
}

func init() {
	downloadCmd.Flags().BoolVar(&flagTxt, "txt", false, "write plain text instead of EPUB")
	downloadCmd.Flags().BoolVar(&flagNoImages, "no-images", false, "skip chapter images and cover")
	downloadCmd.Flags().StringVar(&flagSince, "since", "", "download only chapters after this title (exclusive)")
	downloadCmd.Flags().StringVar(&flagUntil, "until", "", "stop after this chapter title (inclusive)")
}

// printProgress writes a single overwritten progress line per update.
func printProgress(class engine.Class, resolved, total int) {
	fmt.Printf("\r%-8s %d/%d          ", class.String()+"s:", resolved, total)
}

func printRate(rate string, active int) {
	fmt.Printf("\r[%s, %d workers]          ", rate, active)
}

// ensureSession validates the saved cookie and logs in with the
// configured account when the session is stale. Both failures are
// non-fatal: unrestricted books download without a session.
func ensureSession(ctx context.Context, mgr *download.Manager) {
	sess := esjzone.NewSession(mgr.Client(), logger)

	username, err := sess.ValidateCookie(ctx)
	if err == nil && username != "" {
		logger.Info("session restored", "user", username)
		return
	}

	if settings.Account.Username == "" {
		logger.Warn("no valid session and no account configured, restricted chapters may fail")
		return
	}

	username, err = sess.Login(ctx, settings.Account.Username, settings.Account.Password)
	if err != nil {
		logger.Warn("login failed, restricted chapters may fail", "error", err)
		return
	}
	logger.Info("logged in", "user", username)

	base, _ := url.Parse(esjzone.BaseURL)
	store := cookies.NewStore(settings.Cookie.Path)
	if err := store.Save(cookies.FromHTTP(mgr.Client().Cookies(base))); err != nil {
		logger.Warn("could not persist cookies", "error", err)
	}
}
