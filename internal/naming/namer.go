// Package naming derives storage keys for rendered images.
package naming

import (
	"encoding/hex"

	"github.com/google/uuid"

	"svgrender/internal/domain"
)

// Namer issues random, never-reused object names under a fixed prefix.
type Namer struct {
	prefix string
}

// New returns a Namer for domain.ObjectPrefix.
func New() *Namer {
	return &Namer{prefix: domain.ObjectPrefix}
}

// Name returns "<prefix>/<32 hex>.png". The id is a random v4 UUID, so two
// renders of the same document never share a name.
func (n *Namer) Name() string {
	id := uuid.New()
	return n.prefix + "/" + hex.EncodeToString(id[:]) + ".png"
}
