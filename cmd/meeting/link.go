package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/meet/internal/adapters/token"
	"github.com/dkeye/meet/internal/domain"
)

func linkCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "link <channel>",
		Short: "Print a share link for a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := domain.NewChannelName(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "?link=%s\n", token.NewLinkCodec().Encode(ch, ttl))
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "link lifetime, 0 for no expiry")
	return cmd
}
