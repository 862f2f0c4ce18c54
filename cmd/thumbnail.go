package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	thumbEventID string
	thumbOutput  string
	thumbAnim    bool
)

// thumbnailCmd fetches an event thumbnail to a local file. Mostly a
// debugging aid for checking controller connectivity and event ids.
var thumbnailCmd = &cobra.Command{
	Use:     "thumbnail",
	Short:   "Download an event thumbnail",
	Example: `  discord-unifi thumbnail --event 66aa0c59002f1d03e70003e7 --output thumb.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newProtectClient()
		if client == nil {
			return fmt.Errorf("protect controller is not configured")
		}
		ctx := cmd.Context()

		sess, err := client.EnsureAuthenticated(ctx)
		if err != nil {
			return err
		}

		thumb, err := client.GetThumbnail(ctx, sess, thumbEventID, thumbAnim)
		if err != nil {
			return err
		}

		if err := os.WriteFile(thumbOutput, thumb.Data, 0o644); err != nil {
			return fmt.Errorf("write file: %w", err)
		}

		fmt.Printf("Thumbnail saved to %s (%d bytes, %s)\n", thumbOutput, len(thumb.Data), thumb.ContentType)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(thumbnailCmd)

	thumbnailCmd.Flags().StringVar(&thumbEventID, "event", "", "Protect event id")
	thumbnailCmd.Flags().StringVar(&thumbOutput, "output", "thumbnail.jpg", "Output filename")
	thumbnailCmd.Flags().BoolVar(&thumbAnim, "animated", false, "fetch the animated thumbnail")
	_ = thumbnailCmd.MarkFlagRequired("event")
}
