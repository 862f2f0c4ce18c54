package cmd

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/btholt/discord-unifi/internal/logger"
	"github.com/btholt/discord-unifi/internal/server"
)

var (
	serveAddr     string
	serveAnimated bool
	serviceAction string // "install", "uninstall", "start", "stop"
)

// program implements the kardianos/service interface around the receiver.
type program struct {
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(s service.Service) error {
	// Start must not block; run the receiver async.
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- runReceiver(ctx)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.cancel()
	return <-p.done
}

func runReceiver(ctx context.Context) error {
	dispatcher, err := newDispatcher(serveAnimated)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.New(cfg.Server, dispatcher, logger.Component(log, "server"))
	return srv.Run(ctx, addr)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook receiver",
	Long: `Starts the HTTP server that accepts UniFi Protect alarm webhooks and
relays them to Discord. Can be installed as a system service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcConfig := &service.Config{
			Name:        "discord-unifi",
			DisplayName: "UniFi Protect to Discord bridge",
			Description: "Relays UniFi Protect alarm webhooks to a Discord webhook",
			Arguments:   serviceArguments(),
		}

		prg := &program{}
		s, err := service.New(prg, svcConfig)
		if err != nil {
			return err
		}

		// Service control actions (install, start, stop, uninstall).
		if serviceAction != "" {
			if serviceAction == "install" {
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("refusing to install with incomplete config: %w", err)
				}
			}
			if err := service.Control(s, serviceAction); err != nil {
				return fmt.Errorf("failed to %s service: %w", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return nil
		}

		if service.Interactive() {
			// Foreground run: a signal cancels the context and the server
			// drains in-flight requests before exiting.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runReceiver(ctx)
		}

		// Under a service manager the Run loop drives Start/Stop.
		svcLogger, err := s.Logger(nil)
		if err != nil {
			return err
		}
		if err := s.Run(); err != nil {
			if lerr := svcLogger.Error(err); lerr != nil {
				stdlog.Print(err)
			}
			return err
		}
		return nil
	},
}

// serviceArguments reconstructs the command line a managed service should
// start with.
func serviceArguments() []string {
	args := []string{"serve"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if serveAddr != "" {
		args = append(args, "--addr", serveAddr)
	}
	if serveAnimated {
		args = append(args, "--animated")
	}
	return args
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config, default :8080)")
	serveCmd.Flags().BoolVar(&serveAnimated, "animated", false, "attach animated thumbnails instead of stills")
	serveCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
