package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/sitechat/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive chat UI",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	app := tui.New(a.gateway, a.session, a.chat, a.toasts)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
