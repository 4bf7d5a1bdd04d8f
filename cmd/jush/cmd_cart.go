package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/config"
	"github.com/jushkitchen/jush/pkg/cart"
	"github.com/jushkitchen/jush/pkg/client"
)

var cartFlags struct {
	file     string
	url      string
	name     string
	phone    string
	address  string
	payment  string
	taxRate  float64
	delivery float64
	notes    string
	category string
}

// cartCmd is a terminal storefront for demos and smoke tests.
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage a local cart and place it as an order",
}

var cartAddCmd = &cobra.Command{
	Use:   "add <id> <name> <price> [quantity]",
	Short: "Add an item, or increase its quantity",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		qty := 1
		if len(args) == 4 {
			if qty, err = strconv.Atoi(args[3]); err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
		}
		c, err := openCart()
		if err != nil {
			return err
		}
		if err := c.Add(cart.Item{ID: args[0], Name: args[1], Price: price, Quantity: qty, Category: cartFlags.category}); err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a line from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCart()
		if err != nil {
			return err
		}
		if err := c.Remove(args[0]); err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCart()
		if err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place the cart as an order and clear it",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCart()
		if err != nil {
			return err
		}
		req, err := c.Checkout(
			cart.Customer{Name: cartFlags.name, Phone: cartFlags.phone, Address: cartFlags.address},
			cart.CheckoutOptions{
				TaxRate:       cartFlags.taxRate,
				DeliveryFee:   cartFlags.delivery,
				PaymentMethod: models.PaymentMethod(cartFlags.payment),
				Notes:         cartFlags.notes,
			},
		)
		if err != nil {
			return err
		}

		placed, err := client.New(cartFlags.url).CreateOrder(context.Background(), req)
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Order %s placed, total %.2f (%s)\n", placed.OrderID, placed.Total, placed.Status)
		return nil
	},
}

func init() {
	defaultCart := "cart.json"
	if dir, err := os.UserConfigDir(); err == nil {
		defaultCart = filepath.Join(dir, "jush", "cart.json")
	}
	cartCmd.PersistentFlags().StringVar(&cartFlags.file, "file", defaultCart, "cart file")

	cartAddCmd.Flags().StringVar(&cartFlags.category, "category", "", "menu category")

	f := cartCheckoutCmd.Flags()
	f.StringVar(&cartFlags.url, "url", "http://localhost:"+config.AppPort(), "JUSH API base URL")
	f.StringVar(&cartFlags.name, "name", "", "customer name")
	f.StringVar(&cartFlags.phone, "phone", "", "customer phone")
	f.StringVar(&cartFlags.address, "address", "", "delivery address")
	f.StringVar(&cartFlags.payment, "payment", "cash", "cash, card or online")
	f.Float64Var(&cartFlags.taxRate, "tax-rate", 0, "tax rate, e.g. 0.16")
	f.Float64Var(&cartFlags.delivery, "delivery-fee", 0, "delivery fee")
	f.StringVar(&cartFlags.notes, "notes", "", "order notes")

	cartCmd.AddCommand(cartAddCmd, cartRemoveCmd, cartShowCmd, cartCheckoutCmd)
	rootCmd.AddCommand(cartCmd)
}

func openCart() (*cart.Cart, error) {
	return cart.Load(cart.NewFilePersister(cartFlags.file))
}

func printCart(out io.Writer, c *cart.Cart) error {
	if c.IsEmpty() {
		fmt.Fprintln(out, "Cart is empty.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tITEM\tQTY\tPRICE")
	for _, it := range c.Items() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", it.ID, it.Name, it.Quantity, it.Price)
	}
	fmt.Fprintf(w, "\t%d item(s)\tTOTAL\t%.2f\n", c.ItemCount(), c.Total())
	return w.Flush()
}
