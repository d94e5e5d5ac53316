package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qs3c/cafe_sub_server/internal/client"
	"github.com/qs3c/cafe_sub_server/internal/pkg/notify"
)

func notificationsCmd() *cobra.Command {
	var (
		watch bool
		limit int
		since int64
	)

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications, or watch for new ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg := newClient()

			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				// 未指定 --since 时不提醒已有的通知
				start := notify.PrimeOnFirst()
				if since > 0 {
					start = notify.StartAt(since)
				}

				fmt.Println("Watching notifications (Ctrl+C to stop)...")
				w := client.NewNotificationWatcher(c, cfg.Client.PollInterval, func(e notify.Event) {
					fmt.Printf("#%d [%s] %s: %s\n", e.ID, e.Type, e.Title, e.Body)
				}, start)
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}

			list, err := c.Notifications(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(list)
			}

			fmt.Printf("%d unread\n", list.Unread)
			for _, n := range list.Items {
				fmt.Printf("#%d %s [%s] %s: %s\n", n.NotificationID, n.CreatedAt, n.Status, n.Title, n.Body)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll and print new notifications")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results")
	cmd.Flags().Int64Var(&since, "since", 0, "With --watch, alert on notifications newer than this id")

	return cmd
}
