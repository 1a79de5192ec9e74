package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuseats-dev/campuseats/pkg/pref"
	"github.com/campuseats-dev/campuseats/pkg/storage"
)

func themeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme [light|dark]",
		Short: "Show or set the UI theme preference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			theme := pref.New[string](c.storage, storage.KeyTheme, "light")
			defer theme.Close()

			if len(args) == 0 {
				fmt.Println(theme.Get())
				return nil
			}

			switch args[0] {
			case "light", "dark":
				theme.Set(args[0])
				fmt.Printf("Theme set to %s\n", args[0])
				return nil
			default:
				return fmt.Errorf("unknown theme %q (want light or dark)", args[0])
			}
		},
	}
	return cmd
}
