package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amaydixit11/urlshare/internal/slot"
)

var slotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Print the slot key derived from the configured credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Cfg.Passphrase == "" {
			pw, err := promptPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
			Cfg.Passphrase = pw
		}

		k, err := slot.Derive(slot.Credential{Identity: Cfg.Identity, Passphrase: Cfg.Passphrase})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), k.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slotCmd)
}
