// rdev - global keyboard and mouse listener
// Prints every key, button, move and wheel event the OS reports and can
// publish them over WebSocket and UDP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexeynau/rdev/internal/autostart"
	"github.com/alexeynau/rdev/internal/config"
	"github.com/alexeynau/rdev/internal/logging"
)

var (
	version      = "0.1.0"
	configPath   = flag.String("config", "", "Path to the configuration file")
	keyboardOnly = flag.Bool("keyboard-only", false, "Capture the keyboard only")
	jsonOutput   = flag.Bool("json", false, "Print events as JSON lines")
	quiet        = flag.Bool("quiet", false, "Do not print events")
	watchAddr    = flag.String("watch", "", "Follow the WebSocket feed at host:port instead of listening")
	watchUDP     = flag.String("watch-udp", "", "Follow the UDP forwarder at host:port instead of listening")
	withTray     = flag.Bool("tray", false, "Show a system tray icon")
	autoStart    = flag.String("autostart", "", "Start on login: on or off")
	showVer      = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("rdev version %s\n", version)
		return
	}

	cfgMgr, err := openConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	loadErr := cfgMgr.Load()

	cfg := cfgMgr.Get()
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)
	if loadErr != nil {
		logger.Warn("failed to load config, using defaults", "path", cfgMgr.Path(), "error", loadErr)
	}

	if *autoStart != "" {
		if err := setAutostart(cfgMgr, *autoStart); err != nil {
			logger.Error("autostart", "error", err)
			os.Exit(1)
		}
		logger.Info("autostart updated", "enabled", autostart.IsEnabled())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *watchAddr != "":
		err = watchFeed(ctx, logger, *watchAddr, cfg.Feed.Token, newPrinter(os.Stdout, *jsonOutput))
	case *watchUDP != "":
		err = watchForwarder(ctx, logger, *watchUDP, newPrinter(os.Stdout, *jsonOutput))
	default:
		if *keyboardOnly {
			cfgMgr.ForceKeyboardOnly()
		}
		var out *printer
		if !*quiet {
			out = newPrinter(os.Stdout, *jsonOutput)
		}
		err = runService(ctx, stop, cfgMgr, logger, out)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func openConfig(path string) (*config.Manager, error) {
	if path != "" {
		return config.NewManagerAt(path), nil
	}
	return config.NewManager()
}

func setAutostart(cfgMgr *config.Manager, mode string) error {
	var enable bool
	switch mode {
	case "on":
		enable = true
	case "off":
	default:
		return fmt.Errorf("invalid -autostart value %q, want on or off", mode)
	}

	if enable {
		args := []string{"-tray"}
		if *configPath != "" {
			args = append(args, "-config", *configPath)
		}
		if err := autostart.Enable(args...); err != nil {
			return err
		}
	} else if err := autostart.Disable(); err != nil {
		return err
	}

	cfg := cfgMgr.Get()
	cfg.StartOnLogin = enable
	if err := cfgMgr.Set(cfg); err != nil {
		return err
	}
	return cfgMgr.Save()
}
