// Package pipeline sequences one render request: validate, fetch, rasterize,
// name, upload, sign and prune.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"svgrender/internal/config"
	"svgrender/internal/domain"
	"svgrender/internal/fetch"
	"svgrender/internal/infra/logging"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (domain.FetchedDocument, error)
}

type Rasterizer interface {
	Rasterize(ctx context.Context, svg []byte) (domain.RasterResult, error)
}

type Namer interface {
	Name() string
}

type Store interface {
	Upload(ctx context.Context, name string, png []byte) error
	Sign(ctx context.Context, name string, ttl time.Duration) (domain.SignedURL, error)
}

type Pruner interface {
	Prune(ctx context.Context, maxAge time.Duration) (int, error)
}

type Deps struct {
	Fetcher    Fetcher
	Rasterizer Rasterizer
	Namer      Namer
	Store      Store
	Pruner     Pruner
}

type Service struct {
	deps       Deps
	signTTL    time.Duration
	pruneAfter time.Duration
	background bool

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(deps Deps, storage config.StorageConfig, retention config.RetentionConfig) *Service {
	return &Service{
		deps:       deps,
		signTTL:    storage.SignedURLTTL,
		pruneAfter: retention.PruneAfter,
		background: retention.Mode == config.PruneBackground,
	}
}

type ctxKey struct{}

// WithRequestID tags ctx so stage logs carry the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Render runs the pipeline. The first failing stage ends the request with
// that stage's error; pruning never fails it.
func (s *Service) Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResponse, error) {
	rid := requestID(ctx)
	rawURL := strings.TrimSpace(req.SVGURL)

	if rawURL == "" {
		return domain.RenderResponse{}, domain.New(domain.KindInvalidInput, "svg_url is required")
	}
	if _, err := fetch.ValidateURL(rawURL); err != nil {
		return domain.RenderResponse{}, err
	}

	var doc domain.FetchedDocument
	if err := s.stage(ctx, "fetch", func() (err error) {
		doc, err = s.deps.Fetcher.Fetch(ctx, rawURL)
		return err
	}); err != nil {
		return domain.RenderResponse{}, err
	}

	var raster domain.RasterResult
	if err := s.stage(ctx, "rasterize", func() (err error) {
		raster, err = s.deps.Rasterizer.Rasterize(ctx, doc.Bytes)
		return err
	}); err != nil {
		return domain.RenderResponse{}, err
	}

	name := s.deps.Namer.Name()

	if err := s.stage(ctx, "upload", func() error {
		return s.deps.Store.Upload(ctx, name, raster.PNG)
	}); err != nil {
		return domain.RenderResponse{}, err
	}

	var signed domain.SignedURL
	if err := s.stage(ctx, "sign", func() (err error) {
		signed, err = s.deps.Store.Sign(ctx, name, s.signTTL)
		return err
	}); err != nil {
		return domain.RenderResponse{}, err
	}

	resp := domain.RenderResponse{
		PNGURL:     signed.URL,
		ObjectName: name,
		Dimensions: domain.Dimensions{Width: raster.Width, Height: raster.Height},
		ExpiresAt:  signed.ExpiresAt,
	}

	if !s.background || !s.detachPrune(ctx) {
		resp.PrunedFiles = s.prune(ctx)
	}

	logging.Info("render complete",
		"request_id", rid,
		"object", name,
		"width", raster.Width,
		"height", raster.Height,
		"svg_bytes", doc.ByteCount,
		"png_bytes", len(raster.PNG),
		"pruned", resp.PrunedFiles,
	)
	return resp, nil
}

// Prune runs one retention pass outside a render request.
func (s *Service) Prune(ctx context.Context) (int, error) {
	return s.deps.Pruner.Prune(ctx, s.pruneAfter)
}

// Wait stops detaching new prunes and blocks until the running ones have
// finished. Renders completing afterwards prune inline.
func (s *Service) Wait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// detachPrune starts a prune that outlives ctx. It reports false once Wait
// has been called.
func (s *Service) detachPrune(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.prune(context.WithoutCancel(ctx))
	}()
	return true
}

func (s *Service) prune(ctx context.Context) int {
	var n int
	_ = s.stage(ctx, "prune", func() (err error) {
		n, err = s.deps.Pruner.Prune(ctx, s.pruneAfter)
		return err
	})
	return n
}

func (s *Service) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		logging.Warn("stage failed",
			"request_id", requestID(ctx),
			"stage", name,
			"kind", string(domain.KindOf(err)),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return err
	}
	logging.Debug("stage done", "request_id", requestID(ctx), "stage", name, "duration_ms", elapsed.Milliseconds())
	return nil
}
