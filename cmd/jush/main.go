package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jush",
	Short: "JUSH restaurant ordering backend",
	Long:  "jush runs the ordering API and provides operator tools for the kitchen dashboard.",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)
	rootCmd.AddCommand(adminBootstrapCmd)
	rootCmd.AddCommand(ordersWatchCmd)
}
