// Command pull fetches accounts, balances and transactions for one item
// and prints them as a single JSON document on stdout.
//
// Usage:
//
//	CLIENT_ID=... CLIENT_SECRET=... ENVIRONMENT=sandbox pull
//	CLIENT_ID=... CLIENT_SECRET=... ENVIRONMENT=development pull --access-token <token>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"finpull/internal/domain/extract"
	"finpull/internal/infrastructure/plaid"
	"finpull/internal/infrastructure/storage"
	"finpull/internal/shared/config"
)

const defaultInstitutionID = "ins_109508"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	accessToken := flag.String("access-token", "", "Use an existing access token")
	institutionID := flag.String("institution-id", defaultInstitutionID, "Sandbox institution id")
	days := flag.Int("days", 30, "Transaction lookback window in days")
	flag.Parse()

	creds, err := config.LoadCredentials(envOrDefault("ENVIRONMENT", string(extract.EnvSandbox)))
	if err != nil {
		return err
	}

	client, err := plaid.NewClient(creds)
	if err != nil {
		return err
	}

	aggregator := extract.NewAggregator(client, client, storage.NewWriterSink(os.Stdout))

	now := time.Now()
	_, err = aggregator.Run(context.Background(), extract.RunParams{
		Environment:   creds.Environment,
		AccessToken:   *accessToken,
		InstitutionID: *institutionID,
		Descriptors: []extract.ResourceDescriptor{
			{Kind: extract.KindAccounts},
			{Kind: extract.KindBalances},
			{Kind: extract.KindTransactions, StartDate: now.AddDate(0, 0, -*days), EndDate: now},
		},
	})
	return err
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
