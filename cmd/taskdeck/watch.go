package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskdeck/internal/cache"
	"github.com/BuzzLyutic/taskdeck/internal/model"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		status, sortBy string
		interval       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the task list periodically, revalidating in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("invalid interval %s", interval)
			}
			f, err := model.ParseFilter(status)
			if err != nil {
				return err
			}
			s, err := model.ParseSort(sortBy)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			pool := cache.NewPool(a.cache, a.logger, a.cfg.RevalidateWorkers, interval/2)
			pool.Start(ctx)
			defer pool.Stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			out := cmd.OutOrStdout()
			for {
				tasks, err := a.cache.Tasks(ctx, userID, f, s)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "-- %s --\n", time.Now().Format(time.TimeOnly))
				if err := printTasks(out, tasks); err != nil {
					return err
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "filter: all, pending or completed")
	cmd.Flags().StringVar(&sortBy, "sort", "created", "sort: created, updated or title")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "refresh interval")
	return cmd
}
