package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/fentz26/sitechat/internal/api"
	"github.com/fentz26/sitechat/internal/chat"
	"github.com/fentz26/sitechat/internal/config"
	"github.com/fentz26/sitechat/internal/notify"
	"github.com/fentz26/sitechat/internal/session"
	"github.com/fentz26/sitechat/internal/store"
)

// app wires configuration, the credential store, the gateway, and the core
// components for one command invocation.
type app struct {
	cfg     *config.Config
	creds   *store.Store
	gateway *api.Client
	session *session.Manager
	chat    *chat.Orchestrator
	toasts  *notify.Queue
	log     zerolog.Logger
	logFile *os.File
}

// newApp builds the client stack. In tuiMode the log goes to a file so it
// does not write over the alternate screen; otherwise it goes to stderr.
func newApp(tuiMode bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiAddr != "" {
		cfg.APIURL = apiAddr
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg}

	var logger zerolog.Logger
	if tuiMode {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		logger = zerolog.New(f).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.log = logger.Level(level)

	creds, err := store.Open(cfg.DBPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.creds = creds

	a.gateway = api.NewClient(cfg.APIURL, creds, cfg.Timeout(), a.log)
	a.session = session.NewManager(a.gateway, creds, a.log)
	a.toasts = notify.NewQueue(cfg.ToastTTL())
	a.chat = chat.New(a.gateway, a.toasts, a.log)

	return a, nil
}

func (a *app) Close() {
	if a.toasts != nil {
		a.toasts.Close()
	}
	if a.creds != nil {
		a.creds.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
