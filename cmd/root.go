package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/btholt/discord-unifi/internal/bridge"
	"github.com/btholt/discord-unifi/internal/config"
	"github.com/btholt/discord-unifi/internal/discord"
	"github.com/btholt/discord-unifi/internal/logger"
	"github.com/btholt/discord-unifi/internal/protect"
	"github.com/btholt/discord-unifi/internal/session"
)

var (
	cfgFile string
	cfg     *config.Config
	log     zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "discord-unifi",
	Short: "Relay UniFi Protect events to a Discord webhook",
	Long: `A bridge that receives UniFi Protect alarm webhooks (or fetches events
by id), normalizes them, optionally attaches the event thumbnail from the
Protect controller, and posts a formatted message to a Discord webhook.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		log = logger.New(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./discord-unifi.yaml and the user config dir)")
}

// newProtectClient builds the controller client, or nil when the controller
// is not configured at all.
func newProtectClient() bridge.PlatformClient {
	if !cfg.ProtectEnabled() {
		return nil
	}
	store := session.NewStore(cfg.Session.Path, logger.Component(log, "session"))
	return protect.New(cfg.Protect, store, logger.Component(log, "protect"))
}

// newDispatcher wires the full pipeline from the loaded config.
func newDispatcher(animated bool) (*bridge.Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hook := discord.NewWebhook(cfg.Discord.WebhookURL, cfg.Discord.Timeout, logger.Component(log, "discord"))
	return bridge.NewDispatcher(newProtectClient(), hook, animated, logger.Component(log, "bridge")), nil
}
