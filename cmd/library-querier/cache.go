// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/library-querier/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached provider responses",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached responses older than the TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		n, err := c.Prune()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d expired entries from %s\n", n, c.Root())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		n, err := c.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d entries from %s\n", n, c.Root())
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path [url]",
	Short: "Print the cache directory, or the entry file for a request URL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Println(c.Path(cache.Key(args[0])))
			return nil
		}
		fmt.Println(c.Root())
		return nil
	},
}

func openCache(cmd *cobra.Command) (*cache.Cache, error) {
	cfg, err := loadCacheConfig(viper.GetViper(), cmd)
	if err != nil {
		return nil, err
	}
	return cache.New(cfg.Dir, cfg.TTL), nil
}

func init() {
	cacheCmd.PersistentFlags().String("cache-dir", "", "response cache directory (default system temp dir)")
	cacheCmd.PersistentFlags().Duration("cache-ttl", cache.DefaultTTL, "how long cached responses stay valid")

	cacheCmd.AddCommand(cachePruneCmd, cacheClearCmd, cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}
