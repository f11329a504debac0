// Package cluster implements the two collective primitives of spec §5's
// inter-node concurrency layer: a barrier and an all-to-all genome
// exchange. Local is the single-node fallback; NATS is a real multi-node
// transport.
package cluster

import (
	"context"

	"github.com/diamondlightsource/idsort/genome"
)

// Exchanger is the collective-operations abstraction a node's evolutionary
// driver runs against. Barrier blocks until every participating node has
// reached the same call; Exchange sends a node's local population to every
// other node and returns the concatenation, in rank order, of every node's
// contribution.
type Exchanger interface {
	Barrier(ctx context.Context) error
	Exchange(ctx context.Context, local []*genome.Genome) ([]*genome.Genome, error)
}

// Local is the single-node fallback: barrier is a no-op, exchange is the
// identity (spec §5, "a single-node fallback implements barrier as a
// no-op and exchange as identity").
type Local struct{}

// Barrier always succeeds immediately.
func (Local) Barrier(ctx context.Context) error { return nil }

// Exchange returns local unchanged.
func (Local) Exchange(ctx context.Context, local []*genome.Genome) ([]*genome.Genome, error) {
	return local, nil
}
