package main

/*
 * start.go
 * "bastion start" — run the server until shutdown
 */

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Arylite/Bastion/internal/auth"
	"github.com/Arylite/Bastion/internal/bastion"
	"github.com/Arylite/Bastion/internal/catalog"
	"github.com/Arylite/Bastion/internal/config"
	"github.com/Arylite/Bastion/internal/hostkey"
	"github.com/Arylite/Bastion/internal/logging"
	"github.com/Arylite/Bastion/internal/relay"
	"github.com/Arylite/Bastion/internal/router"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the bastion server (default action)",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if nil != err {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); nil != err {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, AlsoStdout: true})
	if nil != err {
		return fmt.Errorf("setting up logging: %w", err)
	}

	key, made, err := hostkey.GetOrMake(cfg.HostKeyFile, hostkey.DefaultBits)
	if nil != err {
		return fmt.Errorf("loading host key: %w", err)
	}
	if made {
		log.WithField("path", cfg.HostKeyFile).Info("generated new host key")
	}
	log.WithField("fingerprint", hostkey.Fingerprint(key)).Info("host key ready")

	store, err := catalog.OpenSQLiteStore(cfg.CatalogURL)
	if nil != err {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	authenticator := auth.New(store, log)
	rtr := router.New(store, cfg.RestrictedNetworks, log)
	relayEngine := relay.NewEngine(store, log)

	supervisor := bastion.New(
		cfg.Addr(),
		cfg.DeriveGlobalCap(),
		time.Duration(cfg.ConnectionTimeout)*time.Second,
		key,
		store,
		authenticator,
		rtr,
		relayEngine,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("received signal, shutting down")
		cancel()
	}()

	return supervisor.Run(ctx)
}
