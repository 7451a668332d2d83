package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svgrender/internal/domain"
	"svgrender/internal/infra/memstore"
	"svgrender/internal/store"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type failingBackend struct {
	store.Backend
	put, list, remove, presign error
}

func (f failingBackend) Put(ctx context.Context, name string, data []byte, ct string) error {
	if f.put != nil {
		return f.put
	}
	return f.Backend.Put(ctx, name, data, ct)
}

func (f failingBackend) List(ctx context.Context, prefix string) ([]domain.StoredObject, error) {
	if f.list != nil {
		return nil, f.list
	}
	return f.Backend.List(ctx, prefix)
}

func (f failingBackend) Remove(ctx context.Context, name string) error {
	if f.remove != nil {
		return f.remove
	}
	return f.Backend.Remove(ctx, name)
}

func (f failingBackend) PresignGet(ctx context.Context, name string, ttl time.Duration) (string, error) {
	if f.presign != nil {
		return "", f.presign
	}
	return f.Backend.PresignGet(ctx, name, ttl)
}

func TestUpload_StoresPNGWithContentType(t *testing.T) {
	mem := memstore.New("b", clock)
	g := store.New(mem, store.WithClock(clock))

	require.NoError(t, g.Upload(context.Background(), "renders/a.png", []byte("png")))

	data, ct, ok := mem.Get("renders/a.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "image/png", ct)
}

func TestUpload_FailureIsStoreFailure(t *testing.T) {
	mem := memstore.New("b", clock)
	g := store.New(failingBackend{Backend: mem, put: errors.New("boom")})

	err := g.Upload(context.Background(), "renders/a.png", []byte("png"))
	assert.True(t, domain.Is(err, domain.KindStoreFailure))
	assert.Zero(t, mem.Len())
}

func TestListWithAge(t *testing.T) {
	mem := memstore.New("b", clock)
	mem.PutAt("renders/old.png", []byte("x"), "image/png", fixedNow.Add(-48*time.Hour))
	mem.PutAt("renders/new.png", []byte("x"), "image/png", fixedNow.Add(-time.Minute))
	mem.PutAt("renders/undated.png", []byte("x"), "image/png", time.Time{})
	mem.PutAt("other/skip.png", []byte("x"), "image/png", fixedNow.Add(-48*time.Hour))
	g := store.New(mem, store.WithClock(clock))

	ages, err := g.ListWithAge(context.Background())
	require.NoError(t, err)
	require.Len(t, ages, 2)

	byName := map[string]time.Duration{}
	for _, a := range ages {
		byName[a.Object.Name] = a.Age
	}
	assert.Equal(t, 48*time.Hour, byName["renders/old.png"])
	assert.Equal(t, time.Minute, byName["renders/new.png"])
}

func TestListWithAge_FailureIsStoreFailure(t *testing.T) {
	g := store.New(failingBackend{Backend: memstore.New("b", clock), list: errors.New("denied")})

	_, err := g.ListWithAge(context.Background())
	assert.True(t, domain.Is(err, domain.KindStoreFailure))
}

func TestDelete_Idempotent(t *testing.T) {
	mem := memstore.New("b", clock)
	mem.PutAt("renders/a.png", []byte("x"), "image/png", fixedNow)
	g := store.New(mem)

	deleted, err := g.Delete(context.Background(), "renders/a.png")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = g.Delete(context.Background(), "renders/a.png")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Zero(t, mem.Len())
}

func TestDelete_FailureIsStoreFailure(t *testing.T) {
	g := store.New(failingBackend{Backend: memstore.New("b", clock), remove: errors.New("denied")})

	_, err := g.Delete(context.Background(), "renders/a.png")
	assert.True(t, domain.Is(err, domain.KindStoreFailure))
}

func TestSign(t *testing.T) {
	mem := memstore.New("bucket", clock)
	mem.PutAt("renders/a.png", []byte("x"), "image/png", fixedNow)
	g := store.New(mem, store.WithClock(clock))

	signed, err := g.Sign(context.Background(), "renders/a.png", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), signed.ExpiresAt)
	assert.Contains(t, signed.URL, "memory://bucket/renders/a.png")
	assert.Contains(t, signed.URL, "expires=")
}

func TestSign_FailureIsSigningFailed(t *testing.T) {
	g := store.New(failingBackend{Backend: memstore.New("b", clock), presign: errors.New("no creds")})

	_, err := g.Sign(context.Background(), "renders/a.png", time.Hour)
	assert.True(t, domain.Is(err, domain.KindSigningFailed))
}
