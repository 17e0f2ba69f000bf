package main

/*
 * listkeys.go
 * "bastion list-keys" — print all catalog bindings
 */

import (
	"context"
	"fmt"
	"text/tabwriter"
	"os"

	"github.com/spf13/cobra"

	"github.com/Arylite/Bastion/internal/catalog"
	"github.com/Arylite/Bastion/internal/config"
)

var listKeysCmd = &cobra.Command{
	Use:   "list-keys",
	Short: "List SSH key bindings in the catalog",
	RunE:  runListKeys,
}

func runListKeys(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if nil != err {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := catalog.OpenSQLiteStore(cfg.CatalogURL)
	if nil != err {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	bindings, err := store.List(context.Background())
	if nil != err {
		return fmt.Errorf("listing keys: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FINGERPRINT\tUSERNAME\tTARGET\tENABLED")
	for _, b := range bindings {
		target := catalog.Target{Host: b.TargetHost, Port: b.TargetPort, User: b.TargetUser}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", b.Fingerprint, b.Username, target.String(), b.Enabled)
	}
	return w.Flush()
}
