package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/pubsubmux/pkg/logger"
	"github.com/dmitrymomot/pubsubmux/pkg/pubsubmux"
)

const serviceName = "pubsubmux"

// globals shared by every subcommand, filled in PersistentPreRunE.
type globals struct {
	cfg pubsubmux.Config
	log *slog.Logger
}

func rootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "pubsubmux",
		Short:         "Multiplex pub/sub subscriptions over a single broker connection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := pubsubmux.LoadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host, _ = flags.GetString("host")
			}
			if flags.Changed("port") {
				cfg.Port, _ = flags.GetInt("port")
			}
			g.cfg = cfg

			env, _ := flags.GetString("env")
			level, _ := flags.GetString("log-level")
			format, _ := flags.GetString("log-format")
			g.log = logger.New(
				logger.WithEnvironment(env, serviceName),
				logger.WithLevel(logger.ParseLevel(level)),
				logger.WithFormat(logger.Format(format)),
				logger.WithOutput(os.Stderr),
			)
			logger.SetAsDefault(g.log)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("host", "", "broker host (overrides PUBSUB_HOST)")
	pf.Int("port", 0, "broker port (overrides PUBSUB_PORT)")
	pf.String("env", os.Getenv("APP_ENV"), "deployment environment: production or development")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", string(logger.FormatText), "log format: text or json")

	root.AddCommand(
		listenCmd(g),
		publishCmd(g),
	)
	return root
}
