package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amaydixit11/urlshare/internal/config"
	"github.com/amaydixit11/urlshare/internal/storage/dht"
)

var (
	initForce          bool
	initNoPassphrase   bool
	initBootstrapPeers []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with your identity and passphrase",
	Long: `Prompts for the identity and passphrase shared by your devices and
writes them to the config file (mode 0600).

Examples:
  urlshare init
  urlshare init --bootstrap /ip4/203.0.113.7/tcp/4001/p2p/12D3KooW...
  urlshare init --no-passphrase   # prompt for it on every run instead`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}

		cfg := Cfg

		identity, err := promptLine(fmt.Sprintf("Identity [%s]: ", cfg.Identity))
		if err != nil {
			return err
		}
		if identity != "" {
			cfg.Identity = identity
		}
		if cfg.Identity == "" {
			return errors.New("identity must not be empty")
		}

		cfg.Passphrase = ""
		if !initNoPassphrase {
			pw, err := promptPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if pw != confirm {
				return errors.New("passphrases do not match")
			}
			if pw == "" {
				return errors.New("passphrase must not be empty")
			}
			cfg.Passphrase = pw
		}

		if len(initBootstrapPeers) > 0 {
			if _, err := dht.ParseBootstrapPeers(initBootstrapPeers); err != nil {
				return err
			}
			cfg.DHT.Bootstrap = initBootstrapPeers
		}

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initNoPassphrase, "no-passphrase", false, "do not store the passphrase")
	initCmd.Flags().StringSliceVar(&initBootstrapPeers, "bootstrap", nil, "bootstrap peer multiaddrs")
	rootCmd.AddCommand(initCmd)
}
