package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [url]",
	Short: "Ask the service to index a website",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed website",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Show which website is currently indexed",
	RunE:  runKnowledge,
}

var askURL string

func init() {
	askCmd.Flags().StringVar(&askURL, "url", "", "Website to ask about (defaults to the indexed one)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.gateway.Crawl(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", resp.Message)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	target := askURL
	if target == "" {
		kb, err := a.gateway.Knowledge(context.Background())
		if err != nil {
			return err
		}
		target = kb.KnowledgeBase.URL
	}
	if target == "" {
		return fmt.Errorf("no website indexed yet; run 'sitechat crawl <url>' or pass --url")
	}

	resp, err := a.gateway.Query(context.Background(), target, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(resp.Response)
	return nil
}

func runKnowledge(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	kb, err := a.gateway.Knowledge(context.Background())
	if err != nil {
		return err
	}
	if kb.KnowledgeBase.URL == "" {
		fmt.Println("Nothing indexed yet. Use 'sitechat crawl <url>' first.")
		return nil
	}
	fmt.Println(kb.KnowledgeBase.URL)
	return nil
}
