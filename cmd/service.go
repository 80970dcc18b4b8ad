package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"sync"
	"time"

	"github.com/alexeynau/rdev/internal/api"
	"github.com/alexeynau/rdev/internal/config"
	"github.com/alexeynau/rdev/internal/hotkey"
	"github.com/alexeynau/rdev/internal/input"
	"github.com/alexeynau/rdev/internal/network"
	"github.com/alexeynau/rdev/internal/osutils"
	"github.com/alexeynau/rdev/internal/tray"
	"github.com/alexeynau/rdev/internal/ui"

	"github.com/google/uuid"
)

const shutdownTimeout = 3 * time.Second

// service owns one listening session at a time and restarts it when the
// listener settings change.
type service struct {
	cfgMgr  *config.Manager
	logger  *slog.Logger
	printer *printer

	feed   *api.Server
	sender *network.UDPSender
	hkMgr  *hotkey.Manager

	mu            sync.Mutex
	listener      config.ListenerConfig
	cancelSession context.CancelFunc
	restart       bool

	onSession func(id string, active bool)
}

func runService(ctx context.Context, quit context.CancelFunc, cfgMgr *config.Manager, logger *slog.Logger, p *printer) error {
	cfg := cfgMgr.Get()
	logger.Info("rdev starting", "version", version, "config", cfgMgr.Path())

	if runtime.GOOS == "windows" && !osutils.IsAdmin() {
		logger.Info("not elevated: input to elevated windows will not be observed")
	}

	s := &service{
		cfgMgr:   cfgMgr,
		logger:   logger,
		printer:  p,
		hkMgr:    hotkey.NewManager(logger),
		listener: cfg.Listener,
	}

	if cfg.Feed.Enabled {
		if cfg.Feed.OpenFirewall && cfg.Feed.Token == "" {
			logger.Warn("feed has no token and only accepts local connections; firewall rule skipped")
		} else if cfg.Feed.OpenFirewall {
			go func() {
				rule := osutils.FirewallRule{Name: "rdev event feed", Port: cfg.Feed.Port, Protocol: "TCP"}
				if err := osutils.EnsureFirewallRule(rule, logger); err != nil {
					logger.Warn("firewall", "error", err)
				}
			}()
		}
		s.feed = api.NewServer(api.Options{
			Token:   cfg.Feed.Token,
			Version: version,
			Logger:  logger,
			UI:      ui.NewServer(cfgMgr, version, logger),
		})
		if err := s.feed.Start(api.ListenAddr(cfg.Feed.Port, cfg.Feed.Token)); err != nil {
			logger.Warn("event feed disabled", "error", err)
			s.feed.Shutdown(context.Background())
			s.feed = nil
		}
	}

	if cfg.Forward.Enabled {
		if cfg.Feed.OpenFirewall {
			go func() {
				rule := osutils.FirewallRule{Name: "rdev event forward", Port: cfg.Forward.Port, Protocol: "UDP"}
				if err := osutils.EnsureFirewallRule(rule, logger); err != nil {
					logger.Warn("firewall", "error", err)
				}
			}()
		}
		s.sender = network.NewUDPSender(cfg.Forward.Port, logger)
		if err := s.sender.Start(); err != nil {
			logger.Warn("UDP forwarding disabled", "error", err)
			s.sender = nil
		}
	}

	defer s.shutdown()

	s.registerHotkeys(cfg, quit)

	cfgMgr.RegisterChangeCallback(func() { s.applyConfig(quit) })
	if err := cfgMgr.Watch(ctx, logger); err != nil {
		logger.Warn("config watch disabled", "error", err)
	}

	if !*withTray {
		return s.run(ctx)
	}

	t := s.buildTray(quit)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.run(ctx)
		t.Stop()
	}()
	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	// systray needs the main thread on macOS
	t.Run()
	quit()
	return <-errCh
}

// run starts sessions until ctx ends, a session ends without a restart
// request, or a session fails to start.
func (s *service) run(ctx context.Context) error {
	for {
		s.mu.Lock()
		sessionCtx, cancel := context.WithCancel(ctx)
		s.cancelSession = cancel
		s.restart = false
		listener := s.listener
		s.mu.Unlock()

		id := uuid.NewString()
		input.SetKeyboardOnly(listener.KeyboardOnly)
		s.announce(id, true, listener.KeyboardOnly)

		err := input.Listen(sessionCtx, s.handle,
			input.WithLogger(s.logger),
			input.WithSessionID(id),
			input.WithIgnoreInjected(listener.IgnoreInjected),
		)
		cancel()
		s.announce(id, false, listener.KeyboardOnly)

		if err != nil {
			return err
		}

		s.mu.Lock()
		again := s.restart
		s.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !again {
			return nil
		}
		s.logger.Info("restarting listener", "keyboard_only", s.listenerSettings().KeyboardOnly)
	}
}

// handle runs on the hook thread; every consumer must return quickly.
func (s *service) handle(ev input.Event) {
	s.hkMgr.Observe(ev)
	if s.feed != nil {
		s.feed.BroadcastEvent(ev)
	}
	if s.sender != nil {
		s.sender.SendEvent(ev)
	}
	if s.printer != nil {
		s.printer.enqueue(ev)
	}
}

func (s *service) announce(id string, active, keyboardOnly bool) {
	if s.feed != nil {
		s.feed.SetSession(id, active, keyboardOnly)
	}
	if s.onSession != nil {
		s.onSession(id, active)
	}
}

func (s *service) listenerSettings() config.ListenerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// applyConfig restarts the session when the listener settings changed and
// re-registers hotkeys.
func (s *service) applyConfig(quit context.CancelFunc) {
	cfg := s.cfgMgr.Get()
	s.registerHotkeys(cfg, quit)

	s.mu.Lock()
	changed := cfg.Listener != s.listener
	s.listener = cfg.Listener
	if changed {
		s.restart = true
	}
	cancel := s.cancelSession
	s.mu.Unlock()

	if changed && cancel != nil {
		s.logger.Info("listener settings changed", "keyboard_only", cfg.Listener.KeyboardOnly, "ignore_injected", cfg.Listener.IgnoreInjected)
		cancel()
	}
}

func (s *service) registerHotkeys(cfg config.Config, quit context.CancelFunc) {
	s.hkMgr.Clear()
	if cfg.StopHotkey == "" {
		return
	}
	if _, err := s.hkMgr.Register(cfg.StopHotkey, func() {
		s.logger.Info("stop hotkey pressed", "hotkey", cfg.StopHotkey)
		quit()
	}); err != nil {
		s.logger.Warn("failed to register stop hotkey", "hotkey", cfg.StopHotkey, "error", err)
	}
}

func (s *service) buildTray(quit context.CancelFunc) *tray.Tray {
	t := tray.New("rdev - input listener")
	status := t.AddStatusItem("Starting...")
	t.AddSeparator()

	var kbItem int
	kbItem = t.AddCheckboxItem("Keyboard only", s.listenerSettings().KeyboardOnly, func() {
		if s.cfgMgr.KeyboardOnlyForced() {
			t.SetItemChecked(kbItem, true)
			return
		}
		cfg := s.cfgMgr.Get()
		cfg.Listener.KeyboardOnly = !cfg.Listener.KeyboardOnly
		if err := s.cfgMgr.Set(cfg); err != nil {
			s.logger.Warn("failed to update config", "error", err)
			return
		}
		if err := s.cfgMgr.Save(); err != nil {
			s.logger.Warn("failed to save config", "error", err)
		}
		t.SetItemChecked(kbItem, cfg.Listener.KeyboardOnly)
	})
	if s.feed != nil {
		t.AddMenuItem("Open event viewer", func() {
			cfg := s.cfgMgr.Get()
			u := url.URL{Scheme: "http", Host: fmt.Sprintf("127.0.0.1:%d", cfg.Feed.Port), Path: "/"}
			if cfg.Feed.Token != "" {
				u.RawQuery = url.Values{"token": {cfg.Feed.Token}}.Encode()
			}
			if err := ui.OpenBrowser(u.String()); err != nil {
				s.logger.Warn("failed to open browser", "error", err)
			}
		})
	}
	t.AddSeparator()
	t.AddMenuItem("Quit", quit)

	s.onSession = func(id string, active bool) {
		t.SetListening(active)
		if active {
			t.SetItemTitle(status, "Listening ("+id[:8]+")")
		} else {
			t.SetItemTitle(status, "Idle")
		}
	}
	return t
}

func (s *service) shutdown() {
	if s.printer != nil {
		s.printer.close()
	}
	if s.sender != nil {
		s.sender.Stop()
	}
	if s.feed != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.feed.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("feed shutdown", "error", err)
		}
	}
}
