package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/sitechat/internal/chat"
	"github.com/fentz26/sitechat/internal/session"
)

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.renderHeader() + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	if toasts := a.renderToasts(); toasts != "" {
		b.WriteString(toasts + "\n")
	}

	if a.mode == "auth" {
		b.WriteString(a.renderAuth())
	} else {
		b.WriteString(a.renderChat())
	}

	b.WriteString("\n")
	b.WriteString(statusBarStyle.Width(a.width).Render(a.statusLine()))
	return b.String()
}

func (a *App) renderHeader() string {
	header := titleStyle.Render("🌐 sitechat")

	sess := a.session.Current()
	switch {
	case sess.Status == session.StatusChecking:
		header += "  " + signedOutStyle.Render("◌ checking session...")
	case sess.Identity != nil:
		header += "  " + signedInStyle.Render("● "+sess.Identity.Email)
	default:
		header += "  " + signedOutStyle.Render("○ not signed in")
	}
	return header
}

func (a *App) renderToasts() string {
	items := a.toasts.List()
	if len(items) == 0 {
		return ""
	}

	var lines []string
	for _, n := range items {
		text := n.Message
		if n.Title != "" {
			text = n.Title + ": " + text
		}
		lines = append(lines, toastStyle(string(n.Kind)).Render(text))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderAuth() string {
	var b strings.Builder

	mode := "Sign in"
	action := "log in"
	if a.authMode == "signup" {
		mode = "Create an account"
		action = "sign up"
	}

	b.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Render(mode) + "\n\n")
	b.WriteString("  Email\n")
	b.WriteString("  " + a.boxFor(0, a.emailInput.View()) + "\n")
	b.WriteString("  Password\n")
	b.WriteString("  " + a.boxFor(1, a.passInput.View()) + "\n")

	if a.fieldErr != "" {
		b.WriteString("  " + fieldErrorStyle.Render(a.fieldErr) + "\n")
	}
	if sess := a.session.Current(); sess.LastError != "" {
		b.WriteString("  " + fieldErrorStyle.Render(sess.LastError) + "\n")
	}

	b.WriteString("\n  " + helpStyle.Render(fmt.Sprintf("Enter:%s | Tab:switch field | Ctrl+S:toggle login/signup | Ctrl+C:quit", action)) + "\n")
	return b.String()
}

func (a *App) renderChat() string {
	var b strings.Builder

	b.WriteString(a.boxFor(0, a.urlInput.View()) + "\n")
	b.WriteString(a.viewport.View() + "\n")
	if a.fieldErr != "" {
		b.WriteString(fieldErrorStyle.Render(a.fieldErr) + "\n")
	}
	b.WriteString(a.boxFor(1, a.queryInput.View()))
	return b.String()
}

// boxFor renders an input box, highlighting the focused one.
func (a *App) boxFor(focus int, inner string) string {
	style := blurredBoxStyle
	if a.focusIndex() == focus {
		style = inputBoxStyle
	}
	return style.Render(inner)
}

func (a *App) focusIndex() int {
	if a.mode == "auth" {
		return a.authFocus
	}
	return a.chatFocus
}

// refreshConversation rebuilds the viewport content from the conversation
// snapshot and keeps the newest entry visible.
func (a *App) refreshConversation() {
	entries := a.chat.Entries()
	if len(entries) == 0 {
		a.viewport.SetContent(helpStyle.Render("\n  Crawl a website above, then ask questions about its content.\n"))
		return
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(a.renderEntry(e))
		b.WriteString("\n")
	}
	a.viewport.SetContent(b.String())
	a.viewport.GotoBottom()
}

func (a *App) renderEntry(e chat.Entry) string {
	stamp := timeStyle.Render(e.CreatedAt.Format("15:04"))

	if e.Role == chat.RoleUser {
		return fmt.Sprintf("  %s %s\n  %s\n", userLabelStyle.Render("You"), stamp, e.Content)
	}

	label := agentLabelStyle.Render("Bot")
	switch e.State {
	case chat.StatePending:
		return fmt.Sprintf("  %s %s\n  %s thinking...\n", label, stamp, a.spin.View())
	case chat.StateFailed:
		return fmt.Sprintf("  %s %s\n  %s\n", label, stamp, failedStyle.Render(e.Content))
	default:
		return fmt.Sprintf("  %s %s\n  %s\n", label, stamp, e.Content)
	}
}

func (a *App) statusLine() string {
	if a.mode == "auth" {
		return " Enter:submit | Ctrl+S:login/signup | Ctrl+C:quit"
	}

	busy := ""
	if a.chat.Crawling() {
		busy += " | crawling..."
	}
	if a.chat.Asking() {
		busy += " | waiting for answer..."
	}
	return fmt.Sprintf(" Entries: %d | Tab:url/question | Enter:submit | PgUp/PgDn:scroll | Ctrl+L:logout | Ctrl+C:quit%s", len(a.chat.Entries()), busy)
}
