package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"stakevault/config"
	"stakevault/custody"
	"stakevault/events"
	"stakevault/observability/logging"
	"stakevault/rewards"
	"stakevault/rpc"
	"stakevault/state"
	"stakevault/storage"
)

const (
	poolName      = "default"
	flushInterval = 30 * time.Second
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Listen address override")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if strings.TrimSpace(*listenFlag) != "" {
		cfg.ListenAddress = *listenFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("stakevaultd", cfg.Env, cfg.LogFile)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	keeper := state.NewKeeper(db)
	emitter := events.MultiEmitter{
		events.NewLogEmitter(logger),
		events.NewJournal(db, logger),
	}

	stakeLedger := custody.NewLedger(cfg.StakeAssetAddress())
	if _, err := keeper.LoadVault(stakeLedger); err != nil {
		logger.Error("Failed to restore stake vault", slog.Any("error", err))
		os.Exit(1)
	}

	directory := custody.NewDirectory()
	ledgers := []*custody.Ledger{stakeLedger}
	for _, reward := range cfg.RewardAssets {
		ledger := custody.NewLedger(common.HexToAddress(reward.Asset))
		if _, err := keeper.LoadVault(ledger); err != nil {
			logger.Error("Failed to restore reward vault", slog.String("asset", reward.Asset), slog.Any("error", err))
			os.Exit(1)
		}
		directory.Register(ledger.Asset(), ledger)
		ledgers = append(ledgers, ledger)
	}

	pool, err := rewards.NewMultiPool(rewards.MultiPoolConfig{
		Admin:      cfg.AdminAddress(),
		StakeAsset: cfg.StakeAssetAddress(),
		StakeVault: stakeLedger,
		Vaults:     directory,
		Emitter:    emitter,
	})
	if err != nil {
		logger.Error("Failed to construct pool", slog.Any("error", err))
		os.Exit(1)
	}

	if snap, ok, err := keeper.LoadMultiPool(poolName); err != nil {
		logger.Error("Failed to load pool snapshot", slog.Any("error", err))
		os.Exit(1)
	} else if ok {
		if err := pool.Restore(snap); err != nil {
			logger.Error("Failed to restore pool snapshot", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Restored pool state", slog.Int("assets", len(pool.RewardAssets())))
	}

	registered := make(map[common.Address]struct{})
	for _, asset := range pool.RewardAssets() {
		registered[asset] = struct{}{}
	}
	for _, reward := range cfg.RewardAssets {
		asset := common.HexToAddress(reward.Asset)
		if _, ok := registered[asset]; ok {
			continue
		}
		if err := pool.AddReward(cfg.AdminAddress(), asset, reward.Duration); err != nil {
			logger.Error("Failed to register reward asset", slog.String("asset", reward.Asset), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Registered reward asset", slog.String("asset", asset.Hex()), slog.Uint64("duration", reward.Duration))
	}

	server, err := rpc.NewServer(rpc.ServerConfig{
		Pool:     pool,
		Keeper:   keeper,
		PoolName: poolName,
		Auth: rpc.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("Failed to construct RPC server", slog.Any("error", err))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flushVaults := func() {
		for _, ledger := range ledgers {
			if err := keeper.SaveVault(ledger); err != nil {
				logger.Error("Failed to persist vault", slog.String("asset", ledger.Asset().Hex()), slog.Any("error", err))
			}
		}
	}

	go func() {
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				flushVaults()
			}
		}
	}()

	go func() {
		logger.Info("Starting JSON-RPC server", slog.String("addr", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("RPC server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}

	if err := keeper.SaveMultiPool(poolName, pool.Snapshot()); err != nil {
		logger.Error("Failed to persist pool snapshot", slog.Any("error", err))
	}
	flushVaults()
	logger.Info("Shutdown complete")
}
