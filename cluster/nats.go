package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/diamondlightsource/idsort/genome"
	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/internal/obslog"
	natsgo "github.com/nats-io/nats.go"
)

var log = obslog.Named("cluster")

// NATS is a multi-node Exchanger built on github.com/nats-io/nats.go,
// adapted from the teacher's connect/publish/subscribe pattern
// (pkg/core/transport/nats.nats), stripped of the pipeline/store/plugin
// video-pipeline scaffolding that has no analogue here. Barrier and
// Exchange each claim a fresh, monotonically increasing subject suffix
// per call so that consecutive iterations cannot cross-deliver.
type NATS struct {
	Rank     int
	CommSize int

	conn   *natsgo.Conn
	prefix string
	iter   int64
}

// NewNATS connects to the given NATS server URLs (comma-separated, as
// accepted by nats.go) and returns a NATS exchanger for the given rank out
// of commSize total nodes participating in the run identified by runID.
// The reconnect policy mirrors the teacher's (pkg/core/transport/nats.
// connect): a long reconnect window, since rank processes are expected to
// stay up for the lifetime of an optimize run.
func NewNATS(urls string, rank, commSize int, runID string) (*NATS, error) {
	totalWait := 10 * time.Minute
	reconnectDelay := time.Second

	nc, err := natsgo.Connect(urls,
		natsgo.Name(fmt.Sprintf("idsort-rank-%d", rank)),
		natsgo.ReconnectWait(reconnectDelay),
		natsgo.MaxReconnects(int(totalWait/reconnectDelay)),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			log.Debug().Int("rank", rank).Err(err).Msg("nats disconnected")
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Debug().Int("rank", rank).Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		natsgo.ClosedHandler(func(nc *natsgo.Conn) {
			log.Error().Int("rank", rank).Err(nc.LastError()).Msg("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w: connecting to nats at %q: %v", iderr.ErrIOFailure, urls, err)
	}

	return &NATS{
		Rank:     rank,
		CommSize: commSize,
		conn:     nc,
		prefix:   "idsort." + runID,
	}, nil
}

// Close closes the underlying connection.
func (n *NATS) Close() {
	n.conn.Close()
}

// Barrier publishes this rank's arrival and blocks until it has observed
// an arrival from every one of CommSize ranks (spec §5, "all nodes block
// until reached").
func (n *NATS) Barrier(ctx context.Context) error {
	iter := atomic.AddInt64(&n.iter, 1)
	subject := fmt.Sprintf("%s.barrier.%d", n.prefix, iter)

	ch := make(chan *natsgo.Msg, n.CommSize)
	sub, err := n.conn.ChanSubscribe(subject, ch)
	if err != nil {
		return fmt.Errorf("cluster: %w: subscribing to %q: %v", iderr.ErrIOFailure, subject, err)
	}
	defer sub.Unsubscribe()

	if err := n.conn.Publish(subject, []byte(strconv.Itoa(n.Rank))); err != nil {
		return fmt.Errorf("cluster: %w: publishing barrier arrival: %v", iderr.ErrIOFailure, err)
	}

	seen := map[int]bool{}
	for len(seen) < n.CommSize {
		select {
		case <-ctx.Done():
			return fmt.Errorf("cluster: %w: barrier %d timed out with %d/%d ranks seen: %v", iderr.ErrIOFailure, iter, len(seen), n.CommSize, ctx.Err())
		case msg := <-ch:
			rank, err := strconv.Atoi(string(msg.Data))
			if err != nil {
				continue
			}
			seen[rank] = true
		}
	}
	return nil
}

// Exchange publishes local under a rank-tagged subject and collects one
// message per rank on the matching wildcard subject, returning the
// concatenation of every rank's population in rank order (spec §5,
// "result on every node is the concatenation, in rank order").
func (n *NATS) Exchange(ctx context.Context, local []*genome.Genome) ([]*genome.Genome, error) {
	iter := atomic.AddInt64(&n.iter, 1)
	wildcard := fmt.Sprintf("%s.exchange.%d.*", n.prefix, iter)
	mine := fmt.Sprintf("%s.exchange.%d.%d", n.prefix, iter, n.Rank)

	data, err := json.Marshal(local)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w: encoding local population: %v", iderr.ErrIOFailure, err)
	}

	ch := make(chan *natsgo.Msg, n.CommSize)
	sub, err := n.conn.ChanSubscribe(wildcard, ch)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w: subscribing to %q: %v", iderr.ErrIOFailure, wildcard, err)
	}
	defer sub.Unsubscribe()

	if err := n.conn.Publish(mine, data); err != nil {
		return nil, fmt.Errorf("cluster: %w: publishing local population: %v", iderr.ErrIOFailure, err)
	}

	byRank := make([][]*genome.Genome, n.CommSize)
	seen := make([]bool, n.CommSize)
	received := 0
	for received < n.CommSize {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cluster: %w: exchange %d timed out with %d/%d ranks seen: %v", iderr.ErrIOFailure, iter, received, n.CommSize, ctx.Err())
		case msg := <-ch:
			rank, err := rankFromSubject(msg.Subject)
			if err != nil || rank < 0 || rank >= n.CommSize {
				continue
			}
			if seen[rank] {
				continue // duplicate delivery under at-least-once subscription semantics
			}
			var part []*genome.Genome
			if err := json.Unmarshal(msg.Data, &part); err != nil {
				return nil, fmt.Errorf("cluster: %w: decoding rank %d population: %v", iderr.ErrInputDecode, rank, err)
			}
			byRank[rank] = part
			seen[rank] = true
			received++
		}
	}

	var out []*genome.Genome
	for _, part := range byRank {
		out = append(out, part...)
	}
	return out, nil
}

func rankFromSubject(subject string) (int, error) {
	parts := strings.Split(subject, ".")
	return strconv.Atoi(parts[len(parts)-1])
}
