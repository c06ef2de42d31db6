package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/handiism/bookfetch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := vip.AllKeys()
		sort.Strings(keys)
		for _, k := range keys {
			v := vip.Get(k)
			if k == "account.password" && v != "" {
				v = "********"
			}
			fmt.Printf("%-28s %v\n", k, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value and save the file",
	Long: `Set a configuration value and save the file, e.g.

  bookfetch config set download.format txt
  bookfetch config set download.max_threads 8`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !vip.IsSet(key) {
			return fmt.Errorf("unknown configuration key %q", key)
		}
		vip.Set(key, value)

		// Reject values the rest of the program would choke on.
		var updated config.Settings
		if err := vip.Unmarshal(&updated); err != nil {
			return err
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		if err := config.Save(vip); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
