package main

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/amaydixit11/urlshare/internal/reconcile"
)

// errNoURL makes the process exit 1 without printing an error.
var errNoURL = errors.New("no url found")

var (
	getQR   bool
	getOpen bool
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current shared URL",
	Long: `Fetches every value stored in the slot and prints the one with the
highest version. Exits with status 1 when the slot holds nothing readable.

Examples:
  urlshare get
  urlshare get --qr
  urlshare get --open   # open in qutebrowser`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		stop := startSpinner("Looking up URL...")
		rec, ok, report, err := s.FetchReport(cmd.Context())
		stop()
		if err != nil {
			return fmt.Errorf("failed to fetch: %w", err)
		}

		if !ok {
			if report.State() == reconcile.Unreadable {
				Logger.Warnf("%d values found but none could be decrypted; check the passphrase", report.Candidates)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "No url found")
			quteReport(Qute.Message("No url found"))
			return errNoURL
		}

		url := string(rec.Payload)
		Logger.Infof("Version %d", rec.Version)
		fmt.Fprintln(cmd.OutOrStdout(), url)

		if getQR {
			qr, err := qrcode.New(url, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("failed to render QR code: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), qr.ToSmallString(false))
		}

		if getOpen || quteMode {
			quteReport(Qute.Open(url))
		}
		quteReport(Qute.Message("URL found: %s", url))
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&getQR, "qr", false, "also print the URL as a QR code")
	getCmd.Flags().BoolVar(&getOpen, "open", false, "open the URL in a new qutebrowser tab")
	rootCmd.AddCommand(getCmd)
}
