package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/amaydixit11/urlshare/internal/config"
	"github.com/amaydixit11/urlshare/internal/logging"
	"github.com/amaydixit11/urlshare/internal/qute"
	"github.com/amaydixit11/urlshare/internal/storage"
	"github.com/amaydixit11/urlshare/internal/storage/dht"
	"github.com/amaydixit11/urlshare/internal/storage/sqlite"
	"github.com/amaydixit11/urlshare/pkg/share"
)

var (
	configPath string
	verbose    bool
	debug      bool
	quteMode   bool
	storeFlag  string

	Logger = logging.Logger{}
	Cfg    config.Config
	Qute   qute.Notifier
)

var rootCmd = &cobra.Command{
	Use:   "urlshare",
	Short: "urlshare - share one URL between your machines over a DHT",
	Long: `urlshare keeps a single encrypted URL in a slot on a public DHT.
Everyone who knows the same identity and passphrase can publish a new URL
or fetch the current one. Values are encrypted before they leave the machine.

Examples:
  # Set up identity, passphrase and bootstrap peers
  urlshare init

  # Share a URL
  urlshare share https://example.com

  # Print the current URL (and show it as a QR code)
  urlshare get --qr

  # Run a long-lived node other peers can bootstrap from
  urlshare node --listen /ip4/0.0.0.0/tcp/4001

As a qutebrowser userscript, $QUTE_FIFO is detected and results are shown
in the browser.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		Logger = logging.Logger{Verbose: verbose, Debug: debug}
		Logger.Debugf("Initializing with verbose=%t, debug=%t", verbose, debug)

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if storeFlag != "" {
			cfg.Store = storeFlag
		}
		Cfg = cfg
		Logger.Debugf("Loaded config from %s (store=%s)", configPath, Cfg.Store)

		if !cmd.Flags().Changed("qute") {
			quteMode = qute.FromEnv().Enabled()
		}
		Qute = qute.Notifier{}
		if quteMode {
			Qute = qute.FromEnv()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&quteMode, "qute", false, "report to qutebrowser via $QUTE_FIFO (default: on when set)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "substrate to use: dht or sqlite (overrides config)")
}

// openStore opens the configured substrate. For the DHT it also bootstraps.
func openStore(ctx context.Context) (storage.Store, error) {
	switch Cfg.Store {
	case config.StoreSQLite:
		Logger.Debugf("Opening sqlite store at %s", Cfg.SQLite.Path)
		return sqlite.New(Cfg.SQLiteStoreConfig())
	case config.StoreDHT, "":
		dcfg, err := Cfg.DHTStoreConfig()
		if err != nil {
			return nil, err
		}
		dcfg.Logger = Logger
		return startDHT(ctx, dcfg)
	default:
		return nil, fmt.Errorf("unknown store %q", Cfg.Store)
	}
}

func startDHT(ctx context.Context, dcfg dht.Config) (*dht.Store, error) {
	if len(dcfg.BootstrapPeers) == 0 {
		Logger.Warnf("No bootstrap peers configured; add some with 'urlshare init' or run 'urlshare node'")
	}

	s, err := dht.New(dcfg)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// openSession opens the store and binds it to the configured credential,
// prompting for the passphrase when the config does not hold one.
func openSession(ctx context.Context) (*share.Session, error) {
	if Cfg.Identity == "" {
		return nil, fmt.Errorf("no identity configured; run 'urlshare init' or set %s", config.EnvIdentity)
	}
	if Cfg.Passphrase == "" {
		pw, err := promptPassphrase("Passphrase: ")
		if err != nil {
			return nil, err
		}
		Cfg.Passphrase = pw
	}

	kdf, err := Cfg.KDFParams()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	s, err := share.New(share.Config{
		Identity:        Cfg.Identity,
		Passphrase:      Cfg.Passphrase,
		KeyLength:       Cfg.KeyLength,
		KDF:             kdf,
		RejectPlaintext: Cfg.RejectPlaintext,
		Store:           store,
		Logger:          Logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// startSpinner shows progress on stderr unless verbose output is on.
func startSpinner(message string) func() {
	if verbose || debug {
		Logger.Infof("%s", message)
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(os.Stderr))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		Logger.Debugf("Failed to set spinner color: %v", err)
	}

	s.Start()
	return s.Stop
}

// quteReport logs a failed qutebrowser notification; the command result
// does not depend on it.
func quteReport(err error) {
	if err != nil {
		Logger.Debugf("qutebrowser: %v", err)
	}
}
