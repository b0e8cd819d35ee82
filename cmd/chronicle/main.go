// Command chronicle archives Discord servers into categorised text files.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/custodia-labs/chronicle/internal/adapters/driven/ai"
	archivefs "github.com/custodia-labs/chronicle/internal/adapters/driven/archive/fs"
	archives3 "github.com/custodia-labs/chronicle/internal/adapters/driven/archive/s3"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/auth"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/discord"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/metrics"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/report"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/reveal"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chronicle/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/chronicle/internal/adapters/driving/cli"
	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/core/services"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// closers release resources opened by the bootstrap hook.
var closers []func() error

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	// Commands install their own signal handling: dump run treats the
	// first interrupt as a stop request.
	err := cli.Execute(context.Background())
	for _, c := range closers {
		if cerr := c(); cerr != nil {
			logger.Warn("close: %v", cerr)
		}
	}
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap builds every service from the config directory.
func bootstrap(opts cli.BootstrapOptions) (*cli.Services, error) {
	dir := opts.ConfigDir
	if dir == "" {
		d, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		dir = d
	}

	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	settingsService := services.NewSettingsService(store)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	logger.Debug("config: %s", store.Path())

	tokens := auth.NewConfigTokenProvider(store)

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("failed to open prompts: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewCollector(registry)

	llm, err := ai.CreateLLMService(&settings.Classifier)
	if err != nil {
		logger.Warn("remote classifier disabled: %v", err)
		llm = nil
	}
	var remote driven.TextClassifier
	if llm != nil {
		remote = services.NewLLMClassifier(llm, prompts, settings.Classifier)
		closers = append(closers, llm.Close)
	}
	classifier := services.NewClassifier(remote, pipelineMetrics)

	dumpStorage, err := archiveStorage(settings.Archive, settings.Archive.DumpRoot, "dump")
	if err != nil {
		return nil, err
	}
	collectStorage, err := archiveStorage(settings.Archive, settings.Archive.CollectRoot, "collect")
	if err != nil {
		return nil, err
	}

	var runs driven.RunStore
	db, err := sqlite.NewStore(dir)
	if err != nil {
		logger.Warn("run history disabled: %v", err)
		runs = memory.NewRunStore()
	} else {
		runs = db.RunStore()
		closers = append(closers, db.Close)
	}

	var reporter driven.Reporter = report.Log{}
	if opts.Out != nil {
		reporter = report.NewConsole(opts.Out)
	}

	client := discord.NewClient(discord.Config{
		APIBase:   settings.Discord.APIBase,
		TokenType: settings.Discord.TokenType,
	})

	dump := services.NewDumpService(services.DumpDeps{
		Directory:     client,
		Source:        client,
		Tokens:        tokens,
		Storage:       dumpStorage,
		Classifier:    classifier,
		Settings:      settingsService,
		LLM:           llm,
		Reporter:      reporter,
		Revealer:      reveal.New(),
		Runs:          runs,
		Metrics:       pipelineMetrics,
		DryRunStorage: func() driven.ArchiveStorage { return memory.NewArchiveStore() },
	})

	collector := services.NewCollectorService(services.CollectorDeps{
		Stream:     discord.NewGateway(settings.Discord.TokenType),
		Directory:  client,
		Tokens:     tokens,
		Storage:    collectStorage,
		Classifier: classifier,
		Settings:   settingsService,
		Metrics:    pipelineMetrics,
	})

	return &cli.Services{
		Dump:      dump,
		Collector: collector,
		Settings:  settingsService,
		Archives: []cli.ArchiveRoot{
			{Name: "Dump", Storage: dumpStorage},
			{Name: "Collect", Storage: collectStorage},
		},
		Metrics: metrics.Handler(registry),
		WatchConfig: func(ctx context.Context) error {
			return store.Watch(ctx, func() {
				logger.Info("config changed, reloading prompts")
				prompts.Reload()
			})
		},
		TokenSource: tokens.Source,
	}, nil
}

// archiveStorage opens the configured backend for one archive root.
func archiveStorage(cfg domain.ArchiveSettings, root, prefix string) (driven.ArchiveStorage, error) {
	if cfg.Backend != domain.ArchiveBackendS3 {
		return archivefs.New(root), nil
	}
	s, err := archives3.New(cfg.S3, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s archive: %w", prefix, err)
	}
	return s, nil
}
