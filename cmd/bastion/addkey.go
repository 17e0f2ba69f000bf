package main

/*
 * addkey.go
 * "bastion add-key" — insert a fingerprint→route binding
 */

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arylite/Bastion/internal/catalog"
	"github.com/Arylite/Bastion/internal/config"
)

var addKeyTargetPort int

var addKeyCmd = &cobra.Command{
	Use:   "add-key <fingerprint> <username> <target_host> <target_user>",
	Short: "Add an SSH key binding to the catalog",
	Args:  cobra.ExactArgs(4),
	RunE:  runAddKey,
}

func init() {
	addKeyCmd.Flags().IntVar(&addKeyTargetPort, "target-port", 22, "Target SSH port")
}

func runAddKey(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if nil != err {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := catalog.OpenSQLiteStore(cfg.CatalogURL)
	if nil != err {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	binding := catalog.KeyBinding{
		Fingerprint: args[0],
		Username:    args[1],
		TargetHost:  args[2],
		TargetUser:  args[3],
		TargetPort:  addKeyTargetPort,
		Enabled:     true,
	}

	ctx := context.Background()
	if err := store.Insert(ctx, binding); nil != err {
		if errors.Is(err, catalog.ErrConflict) {
			return fmt.Errorf("a binding for %s already exists", binding.Fingerprint)
		}
		return fmt.Errorf("adding key: %w", err)
	}

	fmt.Printf("added key binding for %s -> %s@%s:%d\n",
		binding.Fingerprint, binding.TargetUser, binding.TargetHost, binding.TargetPort)
	return nil
}
