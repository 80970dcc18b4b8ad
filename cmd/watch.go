package main

import (
	"context"
	"log/slog"

	"github.com/alexeynau/rdev/internal/input"
	"github.com/alexeynau/rdev/internal/network"
	"github.com/alexeynau/rdev/internal/protocol"
)

// watchFeed prints the events published by a remote event feed.
func watchFeed(ctx context.Context, logger *slog.Logger, addr, token string, p *printer) error {
	defer p.close()

	status, err := network.FetchStatus(ctx, addr, token)
	if err != nil {
		return err
	}
	logger.Info("remote listener", "addr", addr, "version", status.Version,
		"listening", status.Listening, "session", status.Session, "keyboard_only", status.KeyboardOnly)

	c := network.NewWSClient(addr, token, logger)
	c.OnEvent = func(payload protocol.EventPayload) {
		p.enqueue(payload.Event)
	}
	c.Start()
	defer c.Close()

	<-ctx.Done()
	return ctx.Err()
}

// watchForwarder prints the events sent by a remote UDP forwarder.
func watchForwarder(ctx context.Context, logger *slog.Logger, addr string, p *printer) error {
	defer p.close()

	r := network.NewUDPReceiver(addr, logger)
	if !r.Probe() {
		logger.Warn("no reply from forwarder, listening anyway", "addr", addr)
	}
	r.OnEvent = input.Handler(p.enqueue)
	if err := r.Start(); err != nil {
		return err
	}
	defer r.Stop()

	<-ctx.Done()
	return ctx.Err()
}
