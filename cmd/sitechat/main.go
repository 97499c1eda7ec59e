package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sitechat",
	Short: "sitechat - chat with any website from your terminal",
	Long:  `sitechat crawls a website through the webchat service and lets you ask questions about its content, either interactively (tui) or one shot (crawl, ask).`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "", "Service URL (overrides SITECHAT_API_URL)")

	// Add subcommands
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
