package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	notifyEventID string
	notifyPayload string
	notifyAnim    bool
)

// notifyCmd is the one-shot path: relay a single event and exit. Useful for
// cron-driven polling setups and for testing the Discord side without a
// controller sending webhooks.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Relay a single event to Discord",
	Example: `  discord-unifi notify --event 66aa0c59002f1d03e70003e7
  discord-unifi notify --payload alarm.json
  cat alarm.json | discord-unifi notify --payload -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (notifyEventID == "") == (notifyPayload == "") {
			return fmt.Errorf("provide exactly one of --event or --payload")
		}

		dispatcher, err := newDispatcher(notifyAnim)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if notifyEventID != "" {
			if err := dispatcher.DispatchEventID(ctx, notifyEventID); err != nil {
				return err
			}
			fmt.Printf("Event %s relayed to Discord.\n", notifyEventID)
			return nil
		}

		raw, err := readPayload(notifyPayload)
		if err != nil {
			return err
		}
		if err := dispatcher.Dispatch(ctx, raw); err != nil {
			return err
		}
		fmt.Println("Payload relayed to Discord.")
		return nil
	},
}

func readPayload(path string) (map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return raw, nil
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().StringVar(&notifyEventID, "event", "", "Protect event id to fetch and relay")
	notifyCmd.Flags().StringVar(&notifyPayload, "payload", "", "JSON payload file ('-' for stdin)")
	notifyCmd.Flags().BoolVar(&notifyAnim, "animated", false, "attach the animated thumbnail instead of the still")
}
