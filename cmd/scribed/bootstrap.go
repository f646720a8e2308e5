package main

import (
	"log/slog"

	"scribe/internal/config"
	"scribe/internal/media"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/services/blob"
	"scribe/internal/services/llm"
	"scribe/internal/services/transcriber"
	"scribe/internal/store"
)

func buildPipeline(cfg *config.Config, st *store.Store, logger *slog.Logger) (*pipeline.Pipeline, error) {
	blobs, err := blob.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	fetcher := media.NewService(cfg)
	speech := transcriber.NewClient(transcriber.Config{
		APIKey:         cfg.Transcriber.APIKey,
		BaseURL:        cfg.Transcriber.BaseURL,
		Model:          cfg.Transcriber.Model,
		TimeoutSeconds: cfg.Transcriber.TimeoutSeconds,
	})
	model := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	notifier := notifications.NewService(cfg)

	return pipeline.New(cfg, st, blobs, fetcher, speech, model, notifier, logger)
}
