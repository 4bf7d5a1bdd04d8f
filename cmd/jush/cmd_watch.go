package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/config"
	"github.com/jushkitchen/jush/pkg/client"
)

var watchFlags struct {
	url      string
	email    string
	password string
	interval time.Duration
	remember bool
}

// jush orders:watch
var ordersWatchCmd = &cobra.Command{
	Use:   "orders:watch",
	Short: "Print incoming orders as they arrive",
	Long: "Follows the admin room over the realtime socket. When the socket is\n" +
		"unavailable it falls back to polling /api/orders/latest.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var opts []client.Option
		if watchFlags.remember {
			store, err := tokenStore()
			if err != nil {
				return err
			}
			opts = append(opts, client.WithTokenStore(store))
		}
		c := client.New(watchFlags.url, append(opts, client.WithRetry(3, time.Second))...)

		if err := ensureLogin(ctx, c); err != nil {
			return err
		}
		return watch(ctx, c, cmd.OutOrStdout())
	},
}

func init() {
	f := ordersWatchCmd.Flags()
	f.StringVar(&watchFlags.url, "url", "http://localhost:"+config.AppPort(), "JUSH API base URL")
	f.StringVar(&watchFlags.email, "email", "", "admin email")
	f.StringVar(&watchFlags.password, "password", "", "admin password")
	f.DurationVar(&watchFlags.interval, "interval", 30*time.Second, "polling interval when the socket is down")
	f.BoolVar(&watchFlags.remember, "remember", false, "keep the token, encrypted, for the next run")
}

func tokenStore() (*client.FileTokenStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return client.NewFileTokenStore(filepath.Join(dir, "jush", "token"), config.AppKey())
}

func ensureLogin(ctx context.Context, c *client.Client) error {
	if c.Authenticated() {
		if _, err := c.VerifyToken(ctx); err == nil {
			return nil
		}
	}
	if watchFlags.email == "" || watchFlags.password == "" {
		return errors.New("not logged in: pass --email and --password")
	}
	admin, err := c.Login(ctx, watchFlags.email, watchFlags.password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s)\n", admin.Name, admin.Role)
	return nil
}

// watch prefers the socket and polls while it is down, retrying the socket
// after each polling round.
func watch(ctx context.Context, c *client.Client, out io.Writer) error {
	for ctx.Err() == nil {
		closed := make(chan error, 1)
		err := c.ConnectSocket(ctx, client.SocketHandlers{
			OnJoined:       func() { fmt.Fprintln(out, "🔔 Listening for orders…") },
			OnNewOrder:     func(o models.Order) { printOrder(out, "NEW", o) },
			OnOrderUpdated: func(o models.Order) { printOrder(out, "UPDATED", o) },
			OnOrderDeleted: func(id string) { fmt.Fprintf(out, "DELETED  %s\n", id) },
			OnClose:        func(err error) { closed <- err },
		})
		if errors.Is(err, client.ErrUnauthorized) {
			return err
		}

		if err == nil {
			select {
			case <-ctx.Done():
				c.DisconnectSocket()
				return nil
			case err = <-closed:
			}
		}
		fmt.Fprintf(out, "socket unavailable (%v), polling every %s\n", err, watchFlags.interval)

		pollCtx, cancel := context.WithTimeout(ctx, 5*watchFlags.interval)
		err = c.WatchOrders(pollCtx, watchFlags.interval, func(latest time.Time) {
			fmt.Fprintf(out, "NEW      order placed at %s\n", latest.Local().Format(time.Kitchen))
		})
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func printOrder(out io.Writer, kind string, o models.Order) {
	fmt.Fprintf(out, "%-8s %s  %-10s  %-20s  %8.2f  %d item(s)\n",
		kind, o.OrderID, o.Status, o.CustomerName, o.Total, len(o.Items))
}
