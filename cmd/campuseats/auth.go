package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuseats-dev/campuseats/pkg/session"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <phone> <password>",
		Short: "Log in and persist the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			payload, err := c.session.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s %s (%s)\n", payload.FirstName, payload.LastName, payload.Role)
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	var (
		firstName string
		lastName  string
		studentID string
		email     string
	)

	cmd := &cobra.Command{
		Use:   "register <phone> <password>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			payload, err := c.session.Register(cmd.Context(), session.RegisterProfile{
				FirstName: firstName,
				LastName:  lastName,
				StudentID: studentID,
				Phone:     args[0],
				Email:     email,
				Password:  args[1],
			})
			if err != nil {
				return err
			}
			fmt.Printf("Registered as %s %s (%s)\n", payload.FirstName, payload.LastName, payload.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&studentID, "student-id", "", "Campus student ID")
	cmd.Flags().StringVar(&email, "email", "", "Email address")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear persisted session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			c.session.Logout(cmd.Context())
			fmt.Println("Logged out")
			return nil
		},
	}
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current user",
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
			if err := c.session.LoadCurrentUser(cmd.Context()); err != nil {
				return err
			}

			user, ok := c.session.User()
			if !ok {
				return fmt.Errorf("no user record")
			}
			fmt.Printf("%s %s\n", user.FirstName, user.LastName)
			fmt.Printf("  ID:    %d\n", user.ID)
			fmt.Printf("  Role:  %s\n", user.Role)
			fmt.Printf("  Phone: %s\n", user.Phone)
			if user.Email != "" {
				fmt.Printf("  Email: %s\n", user.Email)
			}
			return nil
		},
	}
}

func passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <old-password> <new-password>",
		Short: "Change the account password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			if err := c.requireLogin(); err != nil {
				return err
			}
			if err := c.session.ChangePassword(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Password changed")
			return nil
		},
	}
}
