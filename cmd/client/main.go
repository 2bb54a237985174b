package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peerdex/gop2p/internal/aggregate"
	"github.com/peerdex/gop2p/internal/ledger"
	"github.com/peerdex/gop2p/internal/lifecycle"
	"github.com/peerdex/gop2p/internal/services"
	"github.com/peerdex/gop2p/pkg/config"
	"github.com/peerdex/gop2p/pkg/logger"
	"github.com/peerdex/gop2p/pkg/prefstore"
	"github.com/peerdex/gop2p/pkg/sdk/api"
	"github.com/peerdex/gop2p/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "", "config file path (.yaml or .yml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	log := logrus.WithField("component", "main")

	prefs, err := prefstore.Open(cfg.DataDir + "/prefs")
	if err != nil {
		log.WithError(err).Fatal("open preference store")
	}

	client := api.NewClient(cfg.ServiceURL)

	wallet := ledger.New(client)
	trades := lifecycle.NewManager(client, lifecycle.Options{
		Administrator: cfg.Administrator,
		Ledger:        wallet,
	})

	prices := services.NewPriceFeed(client, wallet, cfg.PriceInterval)
	syncer := services.NewSyncer(trades, wallet, cfg.SyncInterval)
	view := aggregate.New(wallet, trades, prices)

	// Teardown runs last-registered first: pollers stop before the state
	// they feed closes, preferences flush at the very end.
	teardown := shutdown.NewManager()
	teardown.OnShutdown("prefstore", func(context.Context) error { return prefs.Close() })
	teardown.OnShutdown("final snapshot", func(context.Context) error {
		snap := view.Snapshot()
		log.Infof("final state: %d wallets, %d offers, %d active trades, $%.2f total",
			len(snap.Wallets), len(snap.Offers), snap.ActiveTrades, snap.TotalUsdValue)
		return nil
	})
	teardown.OnShutdown("lifecycle", func(context.Context) error { trades.Close(); return nil })
	teardown.OnShutdown("pricefeed", func(context.Context) error { prices.Stop(); return nil })
	teardown.OnShutdown("syncer", func(context.Context) error { syncer.Stop(); return nil })

	prices.Start()
	syncer.Start()

	log.Infof("p2p client up, service=%s, %d address book entries", cfg.ServiceURL, len(prefs.AddressBook()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	teardown.Shutdown(shutdownCtx)
}
