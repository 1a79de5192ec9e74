package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/campuseats-dev/campuseats/pkg/notify"
)

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Stream realtime notifications until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			if err := c.requireLogin(); err != nil {
				return err
			}

			var feed *notify.Feed
			feed = notify.NewFeed(notify.OnChange(func() {
				if messages := feed.Messages(); len(messages) > 0 {
					msg := messages[0]
					fmt.Printf("[%s] %s: %s\n",
						time.Now().Format("15:04:05"), msg.Title, msg.Message)
				}
			}))

			socket, err := notify.Dial(cmd.Context(), c.wsURL, c.session.Token(), feed,
				notify.OnStatus(func(connected bool) {
					if connected {
						fmt.Fprintln(os.Stderr, "connected")
					} else {
						fmt.Fprintln(os.Stderr, "disconnected")
					}
				}),
			)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", c.wsURL, err)
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt)
			<-stop
			return socket.Close()
		},
	}
}
