package cluster_test

import (
	"context"
	"testing"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/cluster"
	"github.com/diamondlightsource/idsort/genome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NATS requires a live broker to exercise, so its Barrier and Exchange are
// not covered here; only its conformance to Exchanger is checked, in
// TestLocalSatisfiesExchanger.

func TestLocalBarrierIsNoop(t *testing.T) {
	var l cluster.Local
	require.NoError(t, l.Barrier(context.Background()))
}

func TestLocalExchangeIsIdentity(t *testing.T) {
	var l cluster.Local
	local := []*genome.Genome{
		{UID: "a", Assignment: map[catalogue.Type]*genome.TypeAssignment{}},
		{UID: "b", Assignment: map[catalogue.Type]*genome.TypeAssignment{}},
	}

	out, err := l.Exchange(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, local, out)
	assert.True(t, out[0] == local[0], "Exchange on Local must return the same genome pointers, not copies")
}

func TestLocalSatisfiesExchanger(t *testing.T) {
	var _ cluster.Exchanger = cluster.Local{}
	var _ cluster.Exchanger = (*cluster.NATS)(nil)
}
