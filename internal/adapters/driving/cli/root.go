// Package cli provides the cobra command tree for chronicle.
package cli

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// annotationQuiet marks commands whose stdout must stay free of run
// reports, such as the MCP stdio server.
const annotationQuiet = "chronicle/quiet"

// annotationNoBootstrap marks commands that need no services.
const annotationNoBootstrap = "chronicle/no-bootstrap"

var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
)

// Services configured by SetServices or the bootstrap hook.
var (
	dumpService      driving.DumpService
	collectorService driving.CollectorService
	settingsService  driving.SettingsService
	archiveRoots     []ArchiveRoot
	metricsHandler   http.Handler
	watchConfig      func(ctx context.Context) error
	tokenSource      func() string
)

// ArchiveRoot names one archive destination for the stats command.
type ArchiveRoot struct {
	Name    string
	Storage interface {
		Stats(ctx context.Context) (domain.ArchiveStats, error)
	}
}

// Services bundles everything the commands use.
type Services struct {
	Dump      driving.DumpService
	Collector driving.CollectorService
	Settings  driving.SettingsService

	// Archives are reported by the stats command, in order.
	Archives []ArchiveRoot

	// Metrics is served at /metrics by the serve command.
	Metrics http.Handler

	// WatchConfig blocks watching the config file until ctx is done.
	WatchConfig func(ctx context.Context) error

	// TokenSource names where the active token comes from.
	TokenSource func() string
}

// BootstrapOptions are passed to the bootstrap hook.
type BootstrapOptions struct {
	// ConfigDir is the --config-dir flag value, empty for the default.
	ConfigDir string

	// Out receives run reports. Nil for commands whose stdout is reserved.
	Out io.Writer
}

// BootstrapFunc builds the services once flags are parsed.
type BootstrapFunc func(opts BootstrapOptions) (*Services, error)

var bootstrapFn BootstrapFunc

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Archive Discord servers into categorised text files",
	Long: `chronicle walks every server and channel your Discord account can see,
classifies each message into one of eight categories and writes it to a
folder tree you can browse, grep or back up.

Get started:
  chronicle auth login
  chronicle dump check
  chronicle dump run`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default ~/.chronicle, or $CHRONICLE_HOME)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the hook that builds services after flag parsing.
func SetBootstrap(fn BootstrapFunc) {
	bootstrapFn = fn
}

// SetServices installs the services used by every command.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	dumpService = s.Dump
	collectorService = s.Collector
	settingsService = s.Settings
	archiveRoots = s.Archives
	metricsHandler = s.Metrics
	watchConfig = s.WatchConfig
	tokenSource = s.TokenSource
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrapFn == nil || cmd.Annotations[annotationNoBootstrap] != "" {
		return nil
	}

	opts := BootstrapOptions{ConfigDir: configDir, Out: cmd.OutOrStdout()}
	if quiet(cmd) {
		opts.Out = nil
	}
	svc, err := bootstrapFn(opts)
	if err != nil {
		return err
	}
	SetServices(svc)
	return nil
}

// quiet reports whether cmd keeps stdout to itself.
func quiet(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationQuiet] != "" {
		return true
	}
	if f := cmd.Flags().Lookup("tui"); f != nil && f.Value.String() == "true" {
		return true
	}
	return false
}

// startConfigWatch follows config edits in the background until ctx ends.
func startConfigWatch(ctx context.Context) {
	if watchConfig == nil {
		return
	}
	go func() {
		if err := watchConfig(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watch stopped: %v", err)
		}
	}()
}
