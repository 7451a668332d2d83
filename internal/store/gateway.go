// Package store is the policy layer between the render pipeline and an
// object store backend: naming prefix, content type, ages, idempotent
// delete and error classification.
package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"svgrender/internal/domain"
)

// ErrNotFound is returned by backends when the named object does not exist.
var ErrNotFound = errors.New("object not found")

const contentTypePNG = "image/png"

// Backend is the capability an object store must offer.
type Backend interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]domain.StoredObject, error)
	Remove(ctx context.Context, name string) error
	PresignGet(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// Gateway wraps a Backend for the render pipeline.
type Gateway struct {
	backend Backend
	prefix  string
	now     func() time.Time
}

type Option func(*Gateway)

// WithClock overrides the wall clock used for ages and expiry times.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(backend Backend, opts ...Option) *Gateway {
	g := &Gateway{backend: backend, prefix: domain.ObjectPrefix + "/", now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Upload stores png under name in a single put, so a failed upload leaves
// no visible object.
func (g *Gateway) Upload(ctx context.Context, name string, png []byte) error {
	if err := g.backend.Put(ctx, name, bytes.Clone(png), contentTypePNG); err != nil {
		return domain.Wrap(domain.KindStoreFailure, err, "failed to store rendered image")
	}
	return nil
}

// ListWithAge lists objects under the render prefix with their age.
// Objects with no creation time are skipped.
func (g *Gateway) ListWithAge(ctx context.Context) ([]domain.ObjectAge, error) {
	objects, err := g.backend.List(ctx, g.prefix)
	if err != nil {
		return nil, domain.Wrap(domain.KindStoreFailure, err, "failed to list stored images")
	}

	now := g.now()
	out := make([]domain.ObjectAge, 0, len(objects))
	for _, obj := range objects {
		if obj.CreatedAt.IsZero() || !strings.HasPrefix(obj.Name, g.prefix) {
			continue
		}
		out = append(out, domain.ObjectAge{Object: obj, Age: now.Sub(obj.CreatedAt)})
	}
	return out, nil
}

// Delete removes name and reports whether this call removed it. Deleting an
// absent object succeeds with false.
func (g *Gateway) Delete(ctx context.Context, name string) (bool, error) {
	err := g.backend.Remove(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, domain.Wrap(domain.KindStoreFailure, err, "failed to delete %s", name)
}

// Sign issues a read URL for name valid for ttl from now.
func (g *Gateway) Sign(ctx context.Context, name string, ttl time.Duration) (domain.SignedURL, error) {
	issued := g.now()
	u, err := g.backend.PresignGet(ctx, name, ttl)
	if err != nil {
		return domain.SignedURL{}, domain.Wrap(domain.KindSigningFailed, err, "failed to sign URL for %s", name)
	}
	return domain.SignedURL{URL: u, ExpiresAt: issued.Add(ttl)}, nil
}
