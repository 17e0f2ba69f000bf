package main

/*
 * test.go
 * "bastion test" — validate config and catalog reachability
 */

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Arylite/Bastion/internal/catalog"
	"github.com/Arylite/Bastion/internal/config"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Validate configuration and catalog connectivity",
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if nil != err {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); nil != err {
		return fmt.Errorf("config validation failed: %w", err)
	}
	fmt.Println("configuration validation passed")

	store, err := catalog.OpenSQLiteStore(cfg.CatalogURL)
	if nil != err {
		return fmt.Errorf("catalog open failed: %w", err)
	}
	defer store.Close()

	if _, err := store.Find(context.Background(), "test-fingerprint"); nil != err {
		return fmt.Errorf("catalog connectivity test failed: %w", err)
	}
	fmt.Println("catalog connectivity test passed")

	if _, err := os.Stat(cfg.HostKeyFile); nil == err {
		fmt.Printf("host key file exists: %s\n", cfg.HostKeyFile)
	} else {
		fmt.Printf("host key file will be generated on first start: %s\n", cfg.HostKeyFile)
	}

	fmt.Println("configuration test completed successfully")
	return nil
}
