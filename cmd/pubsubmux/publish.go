package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/pubsubmux/pkg/redis"
)

func publishCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "publish CHANNEL PAYLOAD",
		Short: "Publish one message on a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			conn, err := redis.NewDialer(g.cfg.Redis, redis.WithLogger(g.log)).Dial(ctx, g.cfg.Host, g.cfg.Port)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.Publish(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", args[0])
			return nil
		},
	}
}
