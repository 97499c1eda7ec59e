// Package tui provides the interactive terminal UI for sitechat.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/sitechat/internal/api"
	"github.com/fentz26/sitechat/internal/chat"
	"github.com/fentz26/sitechat/internal/notify"
	"github.com/fentz26/sitechat/internal/session"
)

// App is the main TUI application model.
type App struct {
	gateway *api.Client
	session *session.Manager
	chat    *chat.Orchestrator
	toasts  *notify.Queue

	mode string // "auth", "chat"

	// auth view
	authMode   string // "login", "signup"
	emailInput textinput.Model
	passInput  textinput.Model
	authFocus  int
	fieldErr   string

	// chat view
	urlInput   textinput.Model
	queryInput textinput.Model
	chatFocus  int
	viewport   viewport.Model
	spin       spinner.Model

	width  int
	height int
}

// New creates a new TUI application.
func New(gateway *api.Client, sess *session.Manager, orch *chat.Orchestrator, toasts *notify.Queue) *App {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 128
	email.Width = 40
	email.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.CharLimit = 128
	pass.Width = 40

	url := textinput.New()
	url.Placeholder = "Enter website URL, then press Enter to crawl it"
	url.CharLimit = 512
	url.Width = 80

	query := textinput.New()
	query.Placeholder = "Type your question..."
	query.CharLimit = 512
	query.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &App{
		gateway:    gateway,
		session:    sess,
		chat:       orch,
		toasts:     toasts,
		mode:       "auth",
		authMode:   "login",
		emailInput: email,
		passInput:  pass,
		urlInput:   url,
		queryInput: query,
		viewport:   viewport.New(80, 20),
		spin:       sp,
	}
}

// Run starts the TUI application and subscribes the session to forced
// de-authentication events from the gateway.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	a.gateway.SetAuthRejectedHook(func() {
		a.session.HandleAuthRejected()
		p.Send(authRejectedMsg{})
	})
	_, err := p.Run()
	return err
}

type sessionStatusMsg struct {
	status session.Status
}

type authRejectedMsg struct{}

type chatChangedMsg struct{}

type toastsChangedMsg struct{}

type workDoneMsg struct{}

type knowledgeMsg struct {
	url string
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.spin.Tick,
		a.checkSession(),
		a.waitChat(),
		a.waitToasts(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		}
		if a.mode == "auth" {
			return a.updateAuthKeys(msg)
		}
		return a.updateChatKeys(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.urlInput.Width = msg.Width - 8
		a.queryInput.Width = msg.Width - 8
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-12, 5)
		a.refreshConversation()

	case sessionStatusMsg:
		if msg.status == session.StatusAuthenticated {
			a.enterChat()
			return a, a.loadKnowledge()
		}
		a.mode = "auth"

	case authRejectedMsg:
		a.mode = "auth"
		a.authMode = "login"

	case knowledgeMsg:
		if a.urlInput.Value() == "" && msg.url != "" {
			a.urlInput.SetValue(msg.url)
		}

	case chatChangedMsg:
		a.refreshConversation()
		cmds = append(cmds, a.waitChat())

	case toastsChangedMsg:
		cmds = append(cmds, a.waitToasts())

	case workDoneMsg:
		a.refreshConversation()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		if a.hasPendingEntry() {
			a.refreshConversation()
		}
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, a.updateInputs(msg)...)
	return a, tea.Batch(cmds...)
}

func (a *App) updateAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		a.authFocus = (a.authFocus + 1) % 2
		if a.authFocus == 0 {
			a.emailInput.Focus()
			a.passInput.Blur()
		} else {
			a.passInput.Focus()
			a.emailInput.Blur()
		}
		return a, nil

	case "ctrl+s":
		if a.authMode == "login" {
			a.authMode = "signup"
		} else {
			a.authMode = "login"
		}
		a.fieldErr = ""
		return a, nil

	case "enter":
		email := strings.TrimSpace(a.emailInput.Value())
		password := a.passInput.Value()
		if email == "" {
			a.fieldErr = "Email is required"
			return a, nil
		}
		if password == "" {
			a.fieldErr = "Password is required"
			return a, nil
		}
		a.fieldErr = ""
		return a, a.authenticate(email, password)
	}

	var cmds []tea.Cmd
	cmds = append(cmds, a.updateInputs(msg)...)
	return a, tea.Batch(cmds...)
}

func (a *App) updateChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		a.chatFocus = (a.chatFocus + 1) % 2
		if a.chatFocus == 0 {
			a.urlInput.Focus()
			a.queryInput.Blur()
		} else {
			a.queryInput.Focus()
			a.urlInput.Blur()
		}
		return a, nil

	case "ctrl+l":
		a.session.Logout()
		a.mode = "auth"
		a.authMode = "login"
		a.emailInput.Focus()
		a.passInput.Blur()
		return a, nil

	case "pgup":
		a.viewport.LineUp(5)
		return a, nil

	case "pgdown":
		a.viewport.LineDown(5)
		return a, nil

	case "enter":
		if a.chatFocus == 0 {
			return a, a.crawl(a.urlInput.Value())
		}
		question := strings.TrimSpace(a.queryInput.Value())
		if question == "" {
			a.fieldErr = "Please enter a question"
			return a, nil
		}
		a.fieldErr = ""
		a.queryInput.SetValue("")
		a.chat.SetTargetURL(a.urlInput.Value())
		return a, a.ask(question)
	}

	var cmds []tea.Cmd
	cmds = append(cmds, a.updateInputs(msg)...)
	return a, tea.Batch(cmds...)
}

func (a *App) updateInputs(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if a.mode == "auth" {
		a.emailInput, cmd = a.emailInput.Update(msg)
		cmds = append(cmds, cmd)
		a.passInput, cmd = a.passInput.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		a.urlInput, cmd = a.urlInput.Update(msg)
		cmds = append(cmds, cmd)
		a.queryInput, cmd = a.queryInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (a *App) enterChat() {
	a.mode = "chat"
	a.passInput.SetValue("")
	a.fieldErr = ""
	a.chatFocus = 1
	a.queryInput.Focus()
	a.urlInput.Blur()
	if a.urlInput.Value() == "" {
		a.urlInput.SetValue(a.chat.TargetURL())
	}
	a.refreshConversation()
}

func (a *App) hasPendingEntry() bool {
	for _, e := range a.chat.Entries() {
		if e.State == chat.StatePending {
			return true
		}
	}
	return false
}

// --- Commands ---

func (a *App) checkSession() tea.Cmd {
	return func() tea.Msg {
		return sessionStatusMsg{a.session.Check(context.Background())}
	}
}

func (a *App) authenticate(email, password string) tea.Cmd {
	mode := a.authMode
	return func() tea.Msg {
		if mode == "signup" {
			return sessionStatusMsg{a.session.Signup(context.Background(), email, password)}
		}
		return sessionStatusMsg{a.session.Login(context.Background(), email, password)}
	}
}

func (a *App) crawl(url string) tea.Cmd {
	return func() tea.Msg {
		a.chat.Crawl(context.Background(), url)
		return workDoneMsg{}
	}
}

func (a *App) ask(question string) tea.Cmd {
	return func() tea.Msg {
		a.chat.Ask(context.Background(), question)
		return workDoneMsg{}
	}
}

func (a *App) loadKnowledge() tea.Cmd {
	return func() tea.Msg {
		// Best effort: a fresh account has nothing indexed yet.
		url, err := a.chat.LoadKnowledge(context.Background())
		if err != nil {
			return workDoneMsg{}
		}
		return knowledgeMsg{url: url}
	}
}

func (a *App) waitChat() tea.Cmd {
	return func() tea.Msg {
		<-a.chat.Changed()
		return chatChangedMsg{}
	}
}

func (a *App) waitToasts() tea.Cmd {
	return func() tea.Msg {
		<-a.toasts.Changed()
		return toastsChangedMsg{}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
