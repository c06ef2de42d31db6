package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/bookfetch/internal/cookies"
	"github.com/handiism/bookfetch/internal/esjzone"
)

var loginCmd = &cobra.Command{
	Use:   "login [email] [password]",
	Short: "Log in to esjzone and save the session cookie",
	Long: `Log in to esjzone and save the session cookie for later downloads.
Credentials come from the arguments, the config file, or an interactive
prompt, in that order.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		email := settings.Account.Username
		password := settings.Account.Password
		if len(args) > 0 {
			email = args[0]
		}
		if len(args) > 1 {
			password = args[1]
		}

		reader := bufio.NewReader(os.Stdin)
		if email == "" {
			fmt.Print("Email: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			email = strings.TrimSpace(line)
		}
		if password == "" {
			fmt.Print("Password: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			password = strings.TrimSpace(line)
		}

		mgr, err := newManager()
		if err != nil {
			return err
		}

		sess := esjzone.NewSession(mgr.Client(), logger)
		username, err := sess.Login(ctx, email, password)
		if err != nil {
			return err
		}

		base, _ := url.Parse(esjzone.BaseURL)
		store := cookies.NewStore(settings.Cookie.Path)
		if err := store.Save(cookies.FromHTTP(mgr.Client().Cookies(base))); err != nil {
			return fmt.Errorf("save cookies: %w", err)
		}

		fmt.Printf("✅ Logged in as %s, session saved to %s\n", username, settings.Cookie.Path)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the saved session cookie",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cookies.NewStore(settings.Cookie.Path)
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Println("Session deleted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
