// solana-news serves a cached feed of Solana news and opportunities.
//
// Usage:
//
//	solana-news serve     # HTTP server with periodic refresh
//	solana-news refresh   # one refresh cycle, then exit
//	solana-news show      # print the cached records
//	solana-news history   # list archived snapshots
//	solana-news version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/solana-news/internal/config"
)

var version = "dev"

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "solana-news",
		Short:         "Solana news cache server",
		Long:          "solana-news fetches Solana news from SerpAPI and/or an LLM, caches it on disk and serves it over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "config file (optional)")

	rootCmd.AddCommand(serveCmd(&cfgPath))
	rootCmd.AddCommand(refreshCmd(&cfgPath))
	rootCmd.AddCommand(showCmd(&cfgPath))
	rootCmd.AddCommand(historyCmd(&cfgPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "solana-news %s\n", version)
		},
	}
}
