// Program bastion is the identity-routing SSH bastion server and its
// administrative CLI.
package main

/*
 * main.go
 * Entry point: wires the cobra command tree
 */

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Identity-routing SSH bastion",
	Long: `bastion accepts SSH clients, authenticates them by public-key
fingerprint, and relays their session to the target bound to that
fingerprint in the catalog. There is no shell and no per-user config on
the wire — the key is both the credential and the route.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(addKeyCmd)
	rootCmd.AddCommand(listKeysCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(genHostKeyCmd)
}

func main() {
	if err := rootCmd.Execute(); nil != err {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
