package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/campuseats-dev/campuseats/internal/mockapi"
	"github.com/campuseats-dev/campuseats/pkg/notify"
)

func mockapiCmd() *cobra.Command {
	var (
		addr     string
		demoPush bool
	)

	cmd := &cobra.Command{
		Use:   "mockapi",
		Short: "Serve a mock backend for development",
		Long: `Serve an in-memory stand-in for the CampusEats backend on the
/api/v1 prefix, with one seeded account:

  phone 0912345678, password secret123 (student)

With --push, a demo notification is broadcast to the seeded account
every few seconds so "campuseats listen" has something to show.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := mockapi.New()
			userID := server.Seed(mockapi.Account{
				Phone:     "0912345678",
				Password:  "secret123",
				Role:      "student",
				FirstName: "Demo",
				LastName:  "Student",
				Email:     "demo@campus.edu",
			})

			if demoPush {
				go func() {
					ticker := time.NewTicker(5 * time.Second)
					defer ticker.Stop()
					n := 0
					for range ticker.C {
						n++
						server.Notify(userID, notify.Message{
							ID:        int64(n),
							Type:      "order_update",
							Title:     "Order update",
							Message:   fmt.Sprintf("Demo event #%d", n),
							Timestamp: time.Now().Unix(),
						})
					}
				}()
			}

			mux := http.NewServeMux()
			mux.Handle("/api/v1/", http.StripPrefix("/api/v1", server.Router()))

			fmt.Printf("mock backend listening on %s (API base /api/v1)\n", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":18090", "Listen address")
	cmd.Flags().BoolVar(&demoPush, "push", false, "Broadcast demo notifications")

	return cmd
}
