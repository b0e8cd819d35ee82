package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chronicle/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/chronicle/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control plane",
	Long: `Start an HTTP server to drive dumps remotely.

Routes:
  POST /api/dump            start a dump in the background
  POST /api/dump/stop       request cancellation
  GET  /api/dump/progress   live progress
  GET  /api/dump/report     last report
  GET  /api/servers         reachable servers
  GET  /api/categories      message categories
  POST /api/archive/open    open the dump folder
  GET  /api/runs            run history
  GET  /metrics             Prometheus metrics

The listen address defaults to server.addr from settings.`,
	Annotations: map[string]string{annotationQuiet: "true"},
	RunE:        runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if dumpService == nil {
		return errors.New("dump service not configured")
	}

	addr := serveAddr
	if addr == "" && settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			addr = s.Server.Addr
		}
	}
	if addr == "" {
		return errors.New("no listen address: pass --addr or set server.addr")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	startConfigWatch(ctx)

	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Dump:    dumpService,
		Metrics: metricsHandler,
	})

	cmd.Printf("Listening on http://%s\n", addr)
	logger.Info("http control plane on %s", addr)
	return httpapi.Serve(ctx, addr, router)
}
