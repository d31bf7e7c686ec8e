package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forma-dev/bridge-core/catalog"
	"github.com/forma-dev/bridge-core/config"
	"github.com/forma-dev/bridge-core/estimator"
	"github.com/forma-dev/bridge-core/notify"
	"github.com/forma-dev/bridge-core/quote"
	"github.com/forma-dev/bridge-core/registry"
	"github.com/forma-dev/bridge-core/relayquery"
	"github.com/forma-dev/bridge-core/router"
	"github.com/forma-dev/bridge-core/rpc"
	"github.com/forma-dev/bridge-core/transfer"
	"github.com/forma-dev/bridge-core/wallet"
	"github.com/forma-dev/bridge-core/warpquery"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	rpc.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "./bridge-config.toml", "config file for the bridge service")
	fetchRegistry := flag.Bool("fetch-registry", false, "download the route registry before starting")
	flag.Parse()

	log.Info().Str("config", *configPath).Msg("Starting bridge core")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	tokens := cfg.CatalogTokens()
	if *fetchRegistry {
		dir := cfg.Registry.Dir
		if dir == "" {
			dir = "./route-registry"
		}
		if err := registry.Download(cfg.Registry.Source, dir); err != nil {
			log.Fatal().Err(err).Msg("Failed to download route registry")
		}
		registryTokens, err := registry.Process(dir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to process route registry")
		}
		log.Info().Int("count", len(registryTokens)).Msg("Loaded registry tokens")
		tokens = append(tokens, registryTokens...)
	}

	aggregator, err := relayquery.NewClientWithFailover(
		cfg.Aggregator.PrimaryURL,
		cfg.Aggregator.BackupURLs,
		relayquery.DefaultFailoverConfig(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create aggregator client")
	}
	defer aggregator.Close()

	cat, err := catalog.New(cfg.CatalogChains(), tokens, aggregator)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build catalog")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First refresh is best-effort; the refresher below retries on its tick.
	refreshCtx, refreshCancel := context.WithTimeout(ctx, 30*time.Second)
	_ = cat.Refresh(refreshCtx)
	refreshCancel()

	refreshInterval := cfg.Aggregator.RefreshInterval.Or(5 * time.Minute)
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = cat.Refresh(ctx)
			}
		}
	}()

	bridge, err := warpquery.NewClient(cat, warpquery.Config{
		APIURL:      cfg.Bridge.APIURL,
		ExplorerURL: cfg.Bridge.ExplorerURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bridge client")
	}

	var walletProvider wallet.Provider
	if cfg.Wallet.PrivateKeyEnv != "" {
		key := os.Getenv(cfg.Wallet.PrivateKeyEnv)
		if key == "" {
			log.Fatal().Str("env", cfg.Wallet.PrivateKeyEnv).Msg("Signing key environment variable is empty")
		}
		signer, err := wallet.NewEVMSigner(wallet.EVMSignerConfig{
			PrivateKeyHex: key,
			RPCURLs:       cfg.Wallet.RPCURLs,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create EVM signer")
		}
		bridge.RegisterSender(catalog.FamilyEVM, signer)
		walletProvider = signer
		log.Info().Msg("EVM signer configured")
	} else {
		log.Warn().Msg("No signing key configured, transfers will fail at signing")
	}

	selector := router.NewSelector(cfg.HomeChains, cat)
	notifier := notify.NewLogNotifier()
	metrics := transfer.NewMetrics()
	transferLog := transfer.NewLog()

	quotes := quote.NewService(cat, bridge, aggregator)
	est := estimator.New(bridge, notifier)
	orchestrator := transfer.NewOrchestrator(
		cat, selector, bridge, aggregator, quotes, walletProvider, notifier, transferLog, metrics,
	)

	watcher := transfer.NewDeliveryWatcher(
		transferLog, bridge, aggregator, metrics,
		cfg.Bridge.PollInterval.Or(15*time.Second),
	)
	go watcher.Run(ctx)

	handlers := rpc.NewHandlers(cat, selector, est, quotes, orchestrator, transferLog, metrics)

	serverConfig := rpc.DefaultServerConfig()
	serverConfig.Address = cfg.Server.ListenAddr
	if len(cfg.Server.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	if cfg.Server.RateLimit > 0 {
		serverConfig.RatePerMinute = &cfg.Server.RateLimit
	}

	server, err := rpc.NewServer(ctx, serverConfig, handlers)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
