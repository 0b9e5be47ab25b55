package main

import (
	"log"

	"finpull/internal/domain/extract"
	"finpull/internal/infrastructure/plaid"
	"finpull/internal/infrastructure/storage"
	httphandlers "finpull/internal/interfaces/http"
	"finpull/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	LinkHandler *httphandlers.LinkHandler
	Aggregator  *extract.Aggregator
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	client, err := plaid.NewClient(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	sink, err := storage.NewFileSink(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	log.Printf("Persisting run output under %s", cfg.Storage.Dir)

	aggregator := extract.NewAggregator(client, client, sink)
	linkHandler := httphandlers.NewLinkHandler(client, aggregator, cfg.Credentials.Environment)

	return &Dependencies{
		LinkHandler: linkHandler,
		Aggregator:  aggregator,
	}, nil
}
