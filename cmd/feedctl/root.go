package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/catalog-feed/internal/auth"
	"github.com/rickgao/catalog-feed/internal/feedclient"
)

type globalOptions struct {
	baseURL    string
	keyID      string
	privateKey string
	timeout    time.Duration
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Catalog delta feed client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("FEED_URL", "http://localhost:8080"), "feed server base URL")
	root.PersistentFlags().StringVar(&opts.keyID, "key-id", os.Getenv("FEED_KEY_ID"), "API key id used to sign requests")
	root.PersistentFlags().StringVar(&opts.privateKey, "private-key", os.Getenv("FEED_PRIVATE_KEY"), "path to the RSA private key PEM")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newPollCmd(opts),
		newAppendCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *globalOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// client builds a feed client. Requests are signed when a key id is given.
func (o *globalOptions) client(logger *slog.Logger) (*feedclient.Client, error) {
	clientOpts := []feedclient.ClientOption{
		feedclient.WithTimeout(o.timeout),
		feedclient.WithLogger(logger),
	}
	if o.keyID != "" {
		if o.privateKey == "" {
			return nil, fmt.Errorf("--private-key is required with --key-id")
		}
		creds, err := auth.LoadCredentials(o.keyID, o.privateKey)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, feedclient.WithCredentials(creds))
	}
	return feedclient.NewClient(o.baseURL, clientOpts...), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
