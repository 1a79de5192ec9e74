package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/campuseats-dev/campuseats/pkg/cart"
)

func cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and edit the persisted cart",
	}

	cmd.AddCommand(
		cartListCmd(),
		cartAddCmd(),
		cartRemoveCmd(),
		cartQuantityCmd(),
		cartClearCmd(),
	)

	return cmd
}

func cartListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the cart contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			items := c.cart.Items()
			if len(items) == 0 {
				fmt.Println("Cart is empty")
				return nil
			}

			vendorID, _ := c.cart.VendorID()
			fmt.Printf("Vendor %d:\n", vendorID)
			for _, item := range items {
				fmt.Printf("  %dx %-24s %8.2f  (#%d)\n",
					item.Quantity, item.Name, item.UnitPrice*float64(item.Quantity), item.MenuItemID)
			}
			fmt.Printf("Items: %d  Total: %.2f\n", c.cart.ItemCount(), c.cart.Total())
			return nil
		},
	}
}

func cartAddCmd() *cobra.Command {
	var (
		name     string
		vendor   string
		quantity int
		replace  bool
	)

	cmd := &cobra.Command{
		Use:   "add <menu-item-id> <vendor-id> <unit-price>",
		Short: "Add a menu item to the cart",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			menuItemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid menu item id %q", args[0])
			}
			vendorID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid vendor id %q", args[1])
			}
			price, err := strconv.ParseFloat(args[2], 64)
			if err != nil || price < 0 {
				return fmt.Errorf("invalid unit price %q", args[2])
			}
			if quantity < 1 {
				return fmt.Errorf("quantity must be at least 1")
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			item := cart.Item{
				MenuItemID: menuItemID,
				Name:       name,
				UnitPrice:  price,
				Quantity:   quantity,
				VendorID:   vendorID,
				VendorName: vendor,
			}

			result := c.cart.AddItem(item)
			if result.Conflict {
				if !replace {
					currentVendor, _ := c.cart.VendorID()
					return fmt.Errorf(
						"cart holds items from vendor %d; rerun with --replace to clear it and add this item",
						currentVendor)
				}
				c.cart.ReplaceWithItem(result.Pending)
			}

			fmt.Printf("Cart: %d items, total %.2f\n", c.cart.ItemCount(), c.cart.Total())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Menu item name")
	cmd.Flags().StringVar(&vendor, "vendor-name", "", "Vendor name")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Quantity to add")
	cmd.Flags().BoolVar(&replace, "replace", false, "On vendor conflict, clear the cart and add this item")

	return cmd
}

func cartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <menu-item-id>",
		Short: "Remove a line item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			menuItemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid menu item id %q", args[0])
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			c.cart.RemoveItem(menuItemID)
			fmt.Printf("Cart: %d items, total %.2f\n", c.cart.ItemCount(), c.cart.Total())
			return nil
		},
	}
}

func cartQuantityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qty <menu-item-id> <quantity>",
		Short: "Set a line item's quantity (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			menuItemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid menu item id %q", args[0])
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			c.cart.UpdateQuantity(menuItemID, quantity)
			fmt.Printf("Cart: %d items, total %.2f\n", c.cart.ItemCount(), c.cart.Total())
			return nil
		},
	}
}

func cartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.close()

			c.cart.Clear()
			fmt.Println("Cart cleared")
			return nil
		},
	}
}
