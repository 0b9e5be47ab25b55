// Command mailpull fetches the newest messages for a mailbox via the
// client-credential flow and prints them as JSON on stdout.
//
// Usage:
//
//	TENANT_ID=... GRAPH_CLIENT_ID=... GRAPH_CLIENT_SECRET=... mailpull --user someone@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"finpull/internal/domain/extract"
	"finpull/internal/infrastructure/msgraph"
	"finpull/internal/infrastructure/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	user := flag.String("user", "", "Mailbox to pull messages for (required)")
	top := flag.Int("top", 10, "Number of messages to fetch")
	flag.Parse()

	if *user == "" {
		return fmt.Errorf("%w: --user is required", extract.ErrValidation)
	}

	tenantID, err := requireEnv("TENANT_ID")
	if err != nil {
		return err
	}
	clientID, err := requireEnv("GRAPH_CLIENT_ID")
	if err != nil {
		return err
	}
	clientSecret, err := requireEnv("GRAPH_CLIENT_SECRET")
	if err != nil {
		return err
	}

	client := msgraph.NewClient(tenantID, clientID, clientSecret, *user)
	aggregator := extract.NewAggregator(client, client, storage.NewWriterSink(os.Stdout))

	_, err = aggregator.Run(context.Background(), extract.RunParams{
		Flow: extract.FlowService,
		Descriptors: []extract.ResourceDescriptor{
			{Kind: extract.KindMessages, Limit: *top},
		},
	})
	return err
}

func requireEnv(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%w: missing required env var %s", extract.ErrConfig, key)
	}
	return value, nil
}
