package common

import (
	"context"
	"fmt"

	"github.com/jonesrussell/grantpull/internal/checkpoint"
	"github.com/jonesrussell/grantpull/internal/fetch"
	"github.com/jonesrussell/grantpull/internal/grantness"
	"github.com/jonesrussell/grantpull/internal/mapper"
	"github.com/jonesrussell/grantpull/internal/pipeline"
	"github.com/jonesrussell/grantpull/internal/storage"
)

// BuildPuller wires the pull path from configuration. The returned cleanup
// closes the database and the rejects file; call it when the run finishes.
func BuildPuller(ctx context.Context, deps *CommandDeps) (*pipeline.Puller, func(), error) {
	cfg, log := deps.Config, deps.Logger

	db, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}

	client := fetch.NewClient(cfg.Fetch, log)
	paginator := fetch.NewPaginator(client, log)
	recordMapper := mapper.NewMapper(cfg.Source.Name, log)
	analyzer := grantness.NewAnalyzer(&cfg.Classifier, log)
	repo := storage.NewRepository(db)
	checkpoints := checkpoint.NewFileStore(cfg.Checkpoint.Path, log)
	rejects := mapper.NewRejectsWriter(cfg.Rejects.Path)

	puller := pipeline.NewPuller(cfg, log, paginator, recordMapper, analyzer, repo, checkpoints, rejects)

	cleanup := func() {
		if closeErr := rejects.Close(); closeErr != nil {
			log.Warn("Failed to close rejects file", "error", closeErr)
		}
		if closeErr := db.Close(); closeErr != nil {
			log.Warn("Failed to close database", "error", closeErr)
		}
	}
	return puller, cleanup, nil
}

// BuildScraper wires the scrape path from configuration.
func BuildScraper(ctx context.Context, deps *CommandDeps) (*pipeline.Scraper, func(), error) {
	cfg, log := deps.Config, deps.Logger

	if len(cfg.Scraper.Sources) == 0 {
		return nil, nil, fmt.Errorf("no scrape sources configured")
	}

	db, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}

	analyzer := grantness.NewAnalyzer(&cfg.Classifier, log)
	scraper := pipeline.NewScraper(cfg, log, analyzer, storage.NewRepository(db))

	cleanup := func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn("Failed to close database", "error", closeErr)
		}
	}
	return scraper, cleanup, nil
}
