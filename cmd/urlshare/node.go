package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amaydixit11/urlshare/internal/storage/dht"
)

var (
	nodeListen   []string
	nodeIdentity string
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a long-lived DHT node",
	Long: `Runs a DHT server that stores slot values for other peers and can be
used as a bootstrap address. The node keeps the same peer ID across restarts.

Examples:
  urlshare node --listen /ip4/0.0.0.0/tcp/4001`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dcfg, err := Cfg.DHTStoreConfig()
		if err != nil {
			return err
		}
		if len(nodeListen) > 0 {
			dcfg.ListenAddrs = nodeListen
		}
		dcfg.Mode = dht.ModeServer
		dcfg.Logger = Logger

		idPath := Cfg.DHT.IdentityFile
		if nodeIdentity != "" {
			idPath = nodeIdentity
		}
		dcfg.PrivateKey, err = dht.LoadOrCreateIdentity(idPath)
		if err != nil {
			return err
		}

		node, err := dht.New(dcfg)
		if err != nil {
			return err
		}
		defer node.Close()

		if err := node.Start(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Node %s running. Bootstrap addresses:\n", node.ID())
		for _, a := range node.Addrs() {
			fmt.Fprintf(out, "  %s\n", a)
		}

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				Logger.Infof("Shutting down")
				return nil
			case <-ticker.C:
				Logger.Infof("Routing table: %d peers", node.Peers())
			}
		}
	},
}

func init() {
	nodeCmd.Flags().StringSliceVar(&nodeListen, "listen", nil, "multiaddrs to listen on (overrides config)")
	nodeCmd.Flags().StringVar(&nodeIdentity, "identity", "", "host key file (default from config)")
	rootCmd.AddCommand(nodeCmd)
}
