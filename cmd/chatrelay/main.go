// Command chatrelay runs the websocket chat relay.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/chatrelay/core/auth"
	"github.com/dmitrymomot/chatrelay/core/config"
	"github.com/dmitrymomot/chatrelay/core/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatrelay",
		Short:         "Real-time websocket chat relay",
		Long:          "chatrelay accepts chat messages over websockets, broadcasts them to every connected client and replays recent history on connect.\n\nConfiguration is read from the environment and an optional .env file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newTokenCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay (default command)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := newLogger(cfg)
	log.Info("starting chatrelay",
		logger.Component("main"),
		slog.String("version", version),
		slog.String("store", cfg.StoreDriver))

	if err := serve(ctx, cfg, log); err != nil {
		log.Error("relay failed", logger.Component("main"), logger.Error(err))
		return err
	}
	log.Info("application stopped", logger.Component("main"))
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		subject  string
		username string
		role     string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed token for the first-frame handshake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg auth.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			if !cfg.Enabled() {
				return errAuthDisabled
			}
			if ttl > 0 {
				cfg.TTL = ttl
			}

			svc, err := auth.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			if subject == "" {
				subject = username
			}
			token, err := svc.Issue(auth.Identity{Subject: subject, Username: username, Role: role})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "display name carried in the token")
	cmd.Flags().StringVar(&subject, "sub", "", "subject (defaults to the username)")
	cmd.Flags().StringVar(&role, "role", "user", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TTL)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "chatrelay %s\n", version)
			return err
		},
	}
}
