package main

import (
	"context"

	"svgrender/internal/config"
	"svgrender/internal/fetch"
	"svgrender/internal/infra/chrome"
	"svgrender/internal/infra/memstore"
	"svgrender/internal/infra/s3"
	"svgrender/internal/naming"
	"svgrender/internal/pipeline"
	"svgrender/internal/prune"
	"svgrender/internal/raster"
	"svgrender/internal/store"
)

func buildService(ctx context.Context, cfg config.Config) (*pipeline.Service, error) {
	backend, err := newBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	gw := store.New(backend)

	return pipeline.New(pipeline.Deps{
		Fetcher:    fetch.New(cfg.Fetch, nil),
		Rasterizer: raster.New(cfg.Render, newEngine(cfg.Render)),
		Namer:      naming.New(),
		Store:      gw,
		Pruner:     prune.New(gw),
	}, cfg.Storage, cfg.Retention), nil
}

func newBackend(ctx context.Context, cfg config.StorageConfig) (store.Backend, error) {
	if cfg.Backend == config.BackendMemory {
		return memstore.New(cfg.Bucket, nil), nil
	}
	s, err := s3.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx, cfg.Region, cfg.CreateBucket); err != nil {
		return nil, err
	}
	return s, nil
}

func newEngine(cfg config.RenderConfig) raster.Engine {
	if cfg.Engine == config.EngineChrome {
		return chrome.NewEngine(cfg)
	}
	return raster.OKSVGEngine{}
}
