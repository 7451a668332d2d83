// Package prune deletes rendered images past their retention age.
package prune

import (
	"context"
	"time"

	"svgrender/internal/domain"
	"svgrender/internal/infra/logging"
)

type Store interface {
	ListWithAge(ctx context.Context) ([]domain.ObjectAge, error)
	Delete(ctx context.Context, name string) (bool, error)
}

type Pruner struct {
	store Store
}

func New(store Store) *Pruner {
	return &Pruner{store: store}
}

// Prune deletes every object strictly older than maxAge and returns how many
// this call itself deleted. Concurrent prunes are not coordinated; a failed delete is
// logged and skipped. Only a list failure is returned.
func (p *Pruner) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	objects, err := p.store.ListWithAge(ctx)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, obj := range objects {
		if obj.Age <= maxAge {
			continue
		}
		deleted, err := p.store.Delete(ctx, obj.Object.Name)
		if err != nil {
			logging.Warn("prune delete failed", "object", obj.Object.Name, "error", err)
			continue
		}
		if deleted {
			pruned++
		}
	}
	if pruned > 0 {
		logging.Info("pruned stale renders", "count", pruned, "max_age", maxAge.String())
	}
	return pruned, nil
}
