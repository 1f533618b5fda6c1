package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload and repair the index when the data files change on disk",
	Long: `Watch follows notes.json, tags.json and users.json. Whenever one of them is
replaced by another program (an editor, a git checkout, a sync tool), the
collection is reloaded and the tag index reconciled. Runs until interrupted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		src, err := v.Watch(ctx)
		if err != nil {
			fatal("Failed to start watcher", err)
		}
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start watcher", err)
		}
		slog.Info("watching vault", "dir", v.Dir)

		for e := range src.Events() {
			fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), e)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
