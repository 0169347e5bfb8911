package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/catalog-feed/internal/model"
	"github.com/rickgao/catalog-feed/internal/poller"
)

func newPollCmd(g *globalOptions) *cobra.Command {
	var (
		watermarkPath string
		pageSize      int
		storeIDs      []int64
		interval      time.Duration
		once          bool
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Drain the delta feed and print items as JSON lines",
		Long: `Poll requests every page of the delta feed above the saved watermark,
prints each product as one JSON line on stdout, then advances the watermark.
Without --once it keeps polling on --interval until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger()
			client, err := g.client(logger)
			if err != nil {
				return err
			}

			var wm poller.Watermark = &poller.MemoryWatermark{}
			if watermarkPath != "" {
				wm = poller.NewFileWatermark(watermarkPath)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			handler := poller.ItemHandlerFunc(func(_ context.Context, items []model.FeedItem) error {
				for i := range items {
					if err := enc.Encode(&items[i]); err != nil {
						return err
					}
				}
				return nil
			})

			p := poller.New(poller.Config{
				Interval: interval,
				PageSize: pageSize,
				StoreIDs: storeIDs,
				Timeout:  g.timeout,
			}, client, wm, handler, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if once {
				res, err := p.PollOnce(ctx)
				if err != nil {
					return err
				}
				logger.Info("poll complete",
					"since_id", res.SinceID,
					"max_id", res.MaxID,
					"pages", res.Pages,
					"items", res.Items,
				)
				return nil
			}

			if err := p.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return p.Stop(stopCtx)
		},
	}

	cmd.Flags().StringVar(&watermarkPath, "watermark", "", "file holding the last processed max_id (in memory when empty)")
	cmd.Flags().IntVar(&pageSize, "page-size", poller.DefaultConfig().PageSize, "items per page")
	cmd.Flags().Int64SliceVar(&storeIDs, "store", nil, "store ids to request (repeatable or comma separated)")
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultConfig().Interval, "poll interval")
	cmd.Flags().BoolVar(&once, "once", false, "drain once and exit")
	return cmd
}
