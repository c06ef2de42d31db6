package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/handiism/bookfetch/internal/config"
	"github.com/handiism/bookfetch/internal/cookies"
	"github.com/handiism/bookfetch/internal/download"
	"github.com/handiism/bookfetch/internal/esjzone"
	"github.com/handiism/bookfetch/internal/logging"
)

var (
	cfgPath  string
	settings *config.Settings
	vip      *viper.Viper
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bookfetch",
	Short: "Download books from esjzone as EPUB or plain text",
	Long: `bookfetch downloads books from esjzone: it logs in, fetches the book
page, downloads every chapter and embedded image concurrently, and
assembles the result into an EPUB or plain-text file.

For interactive mode, use: bookfetch-tui`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, vip, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger = logging.Setup(settings.Log.Level, settings.Log.Format, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to config file")
	rootCmd.AddCommand(downloadCmd, loginCmd, monitorCmd, configCmd)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newManager builds a download manager with saved cookies applied.
func newManager() (*download.Manager, error) {
	mgr := download.NewManager(settings, logger)

	store := cookies.NewStore(settings.Cookie.Path)
	saved, err := store.Load()
	if err != nil {
		return nil, err
	}
	if len(saved) > 0 {
		base, _ := url.Parse(esjzone.BaseURL)
		mgr.Client().SetCookies(base, cookies.ToHTTP(saved))
		logger.Debug("cookies loaded", "count", len(saved))
	}
	return mgr, nil
}
