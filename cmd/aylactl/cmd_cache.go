package main

import (
	"context"

	"github.com/spf13/cobra"
)

// cacheCmd is the parent command for the local SDK cache
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local SDK cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry of the session",
	Args:  cobra.NoArgs,
	RunE:  local(runCacheClear),
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(ctx context.Context, a *app, _ []string) error {
	if err := a.cache.ClearAll(ctx); err != nil {
		return err
	}
	a.out.message("cleared cache for session %q", a.cfg.Ayla.SessionName)
	return nil
}
