package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAppendCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "append ITEM_ID...",
		Short: "Record catalog item changes on the feed server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := strconv.ParseInt(a, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid item id %q", a)
				}
				ids = append(ids, id)
			}

			client, err := g.client(g.logger())
			if err != nil {
				return err
			}
			ack, err := client.PostItemChanges(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accepted %d item(s), %d pending (request %s)\n",
				ack.Accepted, ack.Pending, ack.RequestID)
			return nil
		},
	}
}
