// Package raster converts SVG documents to PNG at a size derived from the
// document's intrinsic dimensions and the configured output bounds.
package raster

import (
	"context"
	"errors"
	"time"

	"svgrender/internal/config"
	"svgrender/internal/domain"
	"svgrender/internal/infra/logging"
)

// Engine draws an SVG at exactly width x height and returns PNG bytes. The
// root element it receives always carries px width/height and a viewBox.
type Engine interface {
	Draw(ctx context.Context, svg []byte, width, height int) ([]byte, error)
}

// Rasterizer sizes a document and hands it to an Engine.
type Rasterizer struct {
	engine  Engine
	bounds  Bounds
	timeout time.Duration
}

// New builds a Rasterizer for the render section of the config.
func New(cfg config.RenderConfig, engine Engine) *Rasterizer {
	return &Rasterizer{
		engine: engine,
		bounds: Bounds{
			MinWidth:  cfg.MinOutputWidth,
			MaxWidth:  cfg.MaxOutputWidth,
			MaxHeight: cfg.MaxOutputHeight,
		},
		timeout: cfg.Timeout,
	}
}

// Rasterize resolves the intrinsic size, computes the target size and draws.
// Every failure is reported as RenderFailed.
func (r *Rasterizer) Rasterize(ctx context.Context, svg []byte) (domain.RasterResult, error) {
	normalized, size, err := normalizeRoot(svg)
	if err != nil {
		return domain.RasterResult{}, err
	}
	width, height := TargetSize(size, r.bounds)
	logging.Debug("Rasterizing SVG", "intrinsic_width", size.Width, "intrinsic_height", size.Height, "width", width, "height", height)

	png, err := r.draw(ctx, normalized, width, height)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return domain.RasterResult{}, err
		}
		return domain.RasterResult{}, domain.Wrap(domain.KindRenderFailed, err, "failed to render SVG")
	}
	return domain.RasterResult{PNG: png, Width: width, Height: height}, nil
}

type drawResult struct {
	png []byte
	err error
}

// draw runs the engine under the render timeout. An engine that overruns is
// abandoned; its goroutine finishes in the background.
func (r *Rasterizer) draw(ctx context.Context, svg []byte, width, height int) ([]byte, error) {
	if r.timeout <= 0 {
		return r.engine.Draw(ctx, svg, width, height)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan drawResult, 1)
	go func() {
		png, err := r.engine.Draw(ctx, svg, width, height)
		done <- drawResult{png: png, err: err}
	}()

	select {
	case res := <-done:
		return res.png, res.err
	case <-ctx.Done():
		return nil, domain.Wrap(domain.KindRenderFailed, ctx.Err(), "rendering exceeded %s", r.timeout)
	}
}
