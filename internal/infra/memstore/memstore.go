// Package memstore is a process-local object store backend used by tests
// and by local runs without cloud storage.
package memstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"svgrender/internal/domain"
	"svgrender/internal/store"
)

type object struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// Store keeps objects in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]object
	now     func() time.Time
}

// New returns an empty store. A nil clock uses time.Now.
func New(bucket string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{bucket: bucket, objects: make(map[string]object), now: now}
}

var _ store.Backend = (*Store)(nil)

func (s *Store) Put(_ context.Context, name string, data []byte, contentType string) error {
	s.PutAt(name, data, contentType, s.now())
	return nil
}

// PutAt stores an object with an explicit creation time.
func (s *Store) PutAt(name string, data []byte, contentType string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = object{data: data, contentType: contentType, createdAt: createdAt}
}

func (s *Store) List(_ context.Context, prefix string) ([]domain.StoredObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StoredObject, 0, len(s.objects))
	for name, obj := range s.objects {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, domain.StoredObject{Name: name, CreatedAt: obj.createdAt, SizeBytes: int64(len(obj.data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		return store.ErrNotFound
	}
	delete(s.objects, name)
	return nil
}

// PresignGet returns a memory:// URL carrying the expiry as a unix timestamp.
func (s *Store) PresignGet(_ context.Context, name string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("invalid ttl %s", ttl)
	}
	s.mu.RLock()
	_, ok := s.objects[name]
	s.mu.RUnlock()
	if !ok {
		return "", store.ErrNotFound
	}

	u := url.URL{Scheme: "memory", Host: s.bucket, Path: "/" + name}
	q := u.Query()
	q.Set("expires", fmt.Sprint(s.now().Add(ttl).Unix()))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Get returns the stored bytes and content type.
func (s *Store) Get(name string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[name]
	return obj.data, obj.contentType, ok
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
