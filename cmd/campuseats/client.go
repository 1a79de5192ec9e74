package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/campuseats-dev/campuseats/pkg/api"
	"github.com/campuseats-dev/campuseats/pkg/cart"
	"github.com/campuseats-dev/campuseats/pkg/session"
	"github.com/campuseats-dev/campuseats/pkg/storage"
)

const (
	defaultAPIURL = "http://localhost:18090/api/v1"
	defaultWSURL  = "ws://localhost:18090/api/v1/ws"
)

// client bundles the wired client core for one CLI invocation.
type client struct {
	storage storage.Store
	api     *api.Client
	session *session.Store
	cart    *cart.Store
	wsURL   string
}

func (c *client) close() {
	c.cart.Close()
	c.session.Close()
	c.storage.Close()
}

// newClient wires storage, API client, session, and cart the way a
// dashboard shell would, with the token source and 401 hook late-bound to
// the session store.
func newClient() (*client, error) {
	dir := os.Getenv("CAMPUSEATS_STATE_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		dir = filepath.Join(home, ".campuseats")
	}

	st, err := storage.NewDiskStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open state dir %s: %w", dir, err)
	}

	apiURL := os.Getenv("CAMPUSEATS_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	wsURL := os.Getenv("CAMPUSEATS_WS_URL")
	if wsURL == "" {
		wsURL = defaultWSURL
	}

	var sess *session.Store
	apiClient := api.New(apiURL,
		api.WithTokenSource(func() string {
			if sess == nil {
				return ""
			}
			return sess.Token()
		}),
		api.WithOnUnauthorized(func() {
			if sess != nil {
				sess.ForceLogout()
			}
			fmt.Fprintln(os.Stderr, "session expired, please log in again")
		}),
	)
	sess = session.New(apiClient, st)

	return &client{
		storage: st,
		api:     apiClient,
		session: sess,
		cart:    cart.New(st),
		wsURL:   wsURL,
	}, nil
}

// requireLogin fails fast when no usable session is held.
func (c *client) requireLogin() error {
	if !c.session.IsAuthenticated() {
		return fmt.Errorf("not logged in (run: campuseats login)")
	}
	if c.session.TokenExpired() {
		return fmt.Errorf("session expired, please log in again")
	}
	return nil
}
