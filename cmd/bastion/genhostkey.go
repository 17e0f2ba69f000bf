package main

/*
 * genhostkey.go
 * "bastion gen-hostkey" — stand-alone host-key bootstrap
 *
 * Folded in from the original project's scripts/generate_hostkey.py: lets
 * an operator pre-provision the bastion's identity before the first
 * "bastion start", instead of relying on first-use generation.
 */

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Arylite/Bastion/internal/hostkey"
)

var (
	genHostKeyPath  string
	genHostKeyBits  int
	genHostKeyForce bool
)

var genHostKeyCmd = &cobra.Command{
	Use:   "gen-hostkey",
	Short: "Generate the bastion's RSA host key ahead of time",
	RunE:  runGenHostKey,
}

func init() {
	genHostKeyCmd.Flags().StringVar(&genHostKeyPath, "key-file", "bastion_host_key", "Output path for the private key")
	genHostKeyCmd.Flags().IntVar(&genHostKeyBits, "key-size", hostkey.DefaultBits, "RSA key size in bits")
	genHostKeyCmd.Flags().BoolVar(&genHostKeyForce, "force", false, "Overwrite an existing key file")
}

func runGenHostKey(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(genHostKeyPath); nil == err && !genHostKeyForce {
		return fmt.Errorf("key file %s already exists; use --force to overwrite", genHostKeyPath)
	}

	if genHostKeyForce {
		os.Remove(genHostKeyPath)
	}

	key, made, err := hostkey.GetOrMake(genHostKeyPath, genHostKeyBits)
	if nil != err {
		return fmt.Errorf("generating host key: %w", err)
	}
	if !made {
		fmt.Printf("key file %s already existed; loaded it instead of generating\n", genHostKeyPath)
	}

	fmt.Printf("host key saved to: %s\n", genHostKeyPath)
	fmt.Printf("public key saved to: %s.pub\n", genHostKeyPath)
	fmt.Printf("key fingerprint: %s\n", hostkey.Fingerprint(key))
	return nil
}
