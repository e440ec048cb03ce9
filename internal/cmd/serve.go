package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/server"
	"github.com/xdg/cmdgate/internal/term"
)

// SecretEnvVar holds the shared secret clients must present.
const SecretEnvVar = "CMDGATE_SECRET"

var serveSocket string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gate on a unix socket",
	Long: `Serve execute, validate and whitelist requests on a unix socket until
interrupted (SIGINT/SIGTERM).

The socket is created with 0600 permissions. If CMDGATE_SECRET is set, every
request must carry it. The config file is watched; when it changes, the policy
is rebuilt and new requests use it. An invalid edit keeps the previous policy.
Policy overlays (.cmdgate.yaml) are not applied by the server.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "socket path (default from config, then $XDG_RUNTIME_DIR/cmdgate/cmdgate.sock)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Logs go to file (and journal) only.
	if err := setupLogging(cfg, true); err != nil {
		return err
	}

	sinks, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			clog.Warn("failed to close audit log: %v", err)
		}
	}()

	g, err := newGate(cfg, sinks, "")
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithSecret(os.Getenv(SecretEnvVar)),
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst),
	}
	if socket := firstNonEmpty(serveSocket, cfg.Server.Socket); socket != "" {
		opts = append(opts, server.WithSocketPath(socket))
	}
	srv := server.New(g, opts...)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	term.Printf("Listening on %s\n", srv.SocketPath())

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := configFilePath()
	if err := config.Watch(ctx, path, func() { reloadGate(srv, path, sinks) }); err != nil {
		clog.Warn("config reload disabled: %v", err)
	}

	<-ctx.Done()
	clog.Info("shutting down server")

	if err := srv.Stop(); err != nil {
		clog.Error("error during shutdown: %v", err)
	}
	term.Println("Server stopped")
	return nil
}

// reloadGate rebuilds the gate from the config file at path and swaps it
// into srv. Audit sinks are kept; changes to the audit section need a restart.
func reloadGate(srv *server.Server, path string, sinks audit.Multi) {
	cfg, err := config.LoadGlobalConfigFrom(path)
	if err != nil {
		clog.Warn("config reload failed, keeping previous policy: %v", err)
		return
	}
	g, err := newGate(cfg, sinks, "")
	if err != nil {
		clog.Warn("config reload failed, keeping previous policy: %v", err)
		return
	}
	srv.SetGate(g)
	clog.Info("policy reloaded from %s", path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
