package main

import (
	"context"
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rubamahdi10-eng/youruni-chat-client/internal/api"
	"github.com/rubamahdi10-eng/youruni-chat-client/internal/chat"
	"github.com/rubamahdi10-eng/youruni-chat-client/internal/config"
	"github.com/rubamahdi10-eng/youruni-chat-client/internal/logger"
	"github.com/rubamahdi10-eng/youruni-chat-client/internal/socket"
	"github.com/rubamahdi10-eng/youruni-chat-client/internal/ui"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	lg, err := logger.New(logger.Config{Development: cfg.App.Development})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer lg.Sync()

	apiClient, err := api.New(api.Config{
		BaseURL:         cfg.API.BaseURL,
		Token:           cfg.Auth.Token,
		Timeout:         cfg.APITimeout,
		RetryMaxElapsed: cfg.RetryMaxElapsed,
	}, lg)
	if err != nil {
		lg.Fatalw("api client init", "error", err)
	}

	sock := socket.New(socket.Config{
		URL:            cfg.Socket.URL,
		Token:          cfg.Auth.Token,
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		MaxMessageSize: cfg.Socket.MaxMessageSizeBytes,
		SendBuffer:     cfg.Socket.SendBuffer,
	}, lg)

	// program is assigned before any session callback can fire: the socket
	// pump and the UI start below, after the wiring is complete.
	var program *tea.Program

	sess := chat.NewSession(chat.SessionConfig{
		Viewer: chat.Viewer{
			UserID:   cfg.Auth.UserID,
			FullName: cfg.Auth.FullName,
			Role:     cfg.Auth.Role,
		},
		API:                 apiClient,
		Emitter:             sock,
		Logger:              lg,
		TypingDebounce:      cfg.TypingDebounce,
		SummaryRefreshDelay: cfg.SummaryRefreshDelay,
		RequestTimeout:      cfg.APITimeout,
		OnChange: func() {
			program.Send(ui.RefreshMsg{})
		},
		OnNotice: func(n chat.Notice) {
			program.Send(ui.NoticeMsg(n))
		},
	})

	program = tea.NewProgram(ui.New(sess, apiClient, lg), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sock.Run(ctx)
	go func() {
		for ev := range sock.Events() {
			sess.HandleEvent(ev)
		}
	}()

	if _, err := program.Run(); err != nil {
		lg.Fatalw("ui error", "error", err)
	}
}
