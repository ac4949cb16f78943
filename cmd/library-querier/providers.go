// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/library-querier/internal/provider"
	"github.com/pdiddy/library-querier/internal/secrets"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the supported providers and whether a key is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := apiKeys(viper.GetStringMapString("api_keys"))

		fmt.Fprintf(os.Stdout, "%-18s  %-4s  %s\n", "Provider", "Key", "Key file / environment variable")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
		for _, name := range provider.Names() {
			status := "-"
			if keys[name] != "" {
				status = "yes"
			}
			fmt.Fprintf(os.Stdout, "%-18s  %-4s  %s / %s\n", name, status, secrets.KeyFile(name), secrets.EnvVar(name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
