package main

import (
	"fmt"

	"github.com/perrrseus/OpenSaga/internal/cache"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the bucket result cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached bucket result",
	Long: `Remove every cached month result from the configured cache (bolt or redis)
so the next evolve run recomputes all months.`,
	RunE: runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if c == nil {
		return errors.ConfigError("cache is disabled; set cache.type to bolt or redis")
	}
	defer c.Close()

	p, ok := c.(cache.Purger)
	if !ok {
		return errors.ConfigErrorf("cache type %q cannot be purged", cfg.Cache.Type)
	}
	n, err := p.Purge(ctx)
	if err != nil {
		return err
	}

	logger.WithField("entries", n).Debug("Cache purged")
	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached bucket results\n", n)
	return nil
}
