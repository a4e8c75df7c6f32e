package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"tailscale.com/tsnet"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/config"
)

// RunWithTsnet serves the same routes on the tailnet and on the local bind
// address. Appliances are still polled over the host network.
func (srv *Server) RunWithTsnet(ctx context.Context) error {
	stateDir := config.SetupTsnetStateDir(srv.cfg.TsnetStateDir)

	ts := &tsnet.Server{
		Hostname: srv.cfg.TsnetHostname,
		Dir:      stateDir,
		UserLogf: func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...), "component", "tsnet")
		},
	}

	if srv.cfg.TsnetAuthKey != "" {
		ts.AuthKey = srv.cfg.TsnetAuthKey
		slog.Info("Tailscale authentication configured", "mode", "auth_key")
	} else {
		slog.Info("Tailscale authentication pending", "note", "log in via the URL printed by tsnet")
	}

	sm := NewShutdownManager(shutdownTimeout)
	sm.RegisterHook(ShutdownHook{
		Name:     "tsnet",
		Priority: 1,
		Handler: func(context.Context) error {
			return ts.Close()
		},
	})

	tsListener, err := ts.Listen("tcp", ":"+srv.cfg.Port)
	if err != nil {
		_ = ts.Close()
		return fmt.Errorf("tsnet listen failed: %w", err)
	}

	localAddr := net.JoinHostPort(getLocalBindHost(), srv.cfg.Port)
	localListener, err := net.Listen("tcp", localAddr)
	if err != nil {
		_ = tsListener.Close()
		_ = ts.Close()
		return fmt.Errorf("listen on %s: %w", localAddr, err)
	}

	return srv.serve(ctx, sm,
		namedListener{"tailscale", tsListener},
		namedListener{"local", localListener},
	)
}
