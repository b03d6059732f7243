package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var shareCmd = &cobra.Command{
	Use:   "share [url]",
	Short: "Publish a URL to the shared slot",
	Long: `Publishes url as the next version of the slot. Without a url this
does nothing.

Examples:
  urlshare share https://example.com
  urlshare share --store sqlite https://example.org`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			Logger.Debugf("No url given, nothing to share")
			return nil
		}
		url := args[0]

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		stop := startSpinner("Sharing URL...")
		rec, err := s.Publish(cmd.Context(), []byte(url))
		stop()
		if err != nil {
			quteReport(Qute.Message("failed to share URL"))
			return fmt.Errorf("failed to share: %w", err)
		}

		Logger.Infof("Stored version %d under slot %s", rec.Version, s.SlotKey().Short())
		fmt.Fprintln(cmd.OutOrStdout(), "URL shared")
		quteReport(Qute.Message("URL shared"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shareCmd)
}
