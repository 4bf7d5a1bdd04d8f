package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jushkitchen/jush/config"
	"github.com/jushkitchen/jush/internal/server"
	"github.com/jushkitchen/jush/pkg/logger"
)

// jush serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP API and realtime server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := server.New(ctx, server.FromEnv())
		if err != nil {
			return err
		}
		return s.Run(ctx)
	},
}

// jush route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Discard()

		cfg := server.FromEnv()
		cfg.StoreDriver = "memory"
		cfg.RedisAddr, cfg.KafkaBrokers, cfg.OTLPEndpoint = "", nil, ""

		s, err := server.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range s.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

var (
	bootstrapEmail    string
	bootstrapPassword string
)

// jush admin:bootstrap
var adminBootstrapCmd = &cobra.Command{
	Use:   "admin:bootstrap",
	Short: "Create the default admin if no admin exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		cfg := server.FromEnv()
		if bootstrapEmail != "" {
			cfg.AdminEmail = bootstrapEmail
		}
		if bootstrapPassword != "" {
			cfg.AdminPassword = bootstrapPassword
		}

		created, err := server.Bootstrap(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("✅ Admin %s created. Change the password after first login.\n", cfg.AdminEmail)
		} else {
			fmt.Println("Admins already exist, nothing to do.")
		}
		return nil
	},
}

func init() {
	adminBootstrapCmd.Flags().StringVar(&bootstrapEmail, "email", "", "admin email (default DEFAULT_ADMIN_EMAIL)")
	adminBootstrapCmd.Flags().StringVar(&bootstrapPassword, "password", "", "admin password (default DEFAULT_ADMIN_PASSWORD)")
}
