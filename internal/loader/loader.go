// Package loader implements the bulk loader of §4.3: a non-atomic,
// high-throughput ingest path for large N-Quads/N-Triples inputs that
// does not hold the whole input in one write transaction, trading
// all-or-nothing atomicity for throughput on multi-million-quad loads.
//
// Grounded in Badger's managed-transaction/Stream-adjacent ingestion
// pattern as used by the teacher's internal/storage/badger.go (batched
// commits rather than one giant transaction), with a producer/consumer
// pipeline built on golang.org/x/sync/errgroup (pulled into the pack's
// dependency graph transitively, e.g. cuemby-warren, AKJUS-bsc-erigon —
// the idiomatic replacement for hand-rolled WaitGroup+error-channel
// plumbing) in place of the teacher's single-goroutine loop, and a
// RoaringBitmap/roaring bitmap (from boutros-sopp/db.go's term/triple
// existence-bitmap role) tracking which graph names have already been
// seen in this run, so Stats.GraphsTouched counts each graph once.
package loader

import (
	"bufio"
	"io"

	"github.com/RoaringBitmap/roaring"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/codec"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// BatchSize is the number of quads committed per write transaction
// during a bulk load (§4.3: "ingest commits in bounded batches rather
// than one transaction per quad or one transaction for the whole file").
const BatchSize = 10_000

// Stats summarizes a completed bulk load.
type Stats struct {
	QuadsLoaded  int64
	GraphsTouched int64
}

// Load streams N-Quads from r into store in parallel: one goroutine
// parses and decodes lines into quads, a second commits them to the
// store in BatchSize-sized transactions, coordinated by an errgroup so
// a parse error or a storage error on either side cancels the other
// and is returned as one error, per §4.3's "a bulk load reports the
// first error and stops, leaving every batch already committed in
// place" (no rollback of prior batches: that is the accepted tradeoff
// for skipping one giant transaction).
func Load(tok cancel.Token, store *quadstore.Store, r io.Reader) (Stats, error) {
	quadsCh := make(chan *rdf.Quad, BatchSize)
	var stats Stats
	seenGraphs := roaring.NewBitmap()
	var graphExact = map[string]bool{}

	g := new(errgroup.Group)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(quadsCh)
		dec := codec.NewNQuadsDecoder(bufio.NewReader(r))
		for {
			if err := tok.Check(); err != nil {
				return err
			}
			q, err := dec.Decode()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return qerror.Parse(err.Error(), "")
			}
			select {
			case quadsCh <- q:
			case <-done:
				return nil // the committer stopped; its error is the one reported
			}
		}
	})

	g.Go(func() error {
		defer close(done)
		var batch []*rdf.Quad
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			txn, err := store.Begin(true)
			if err != nil {
				return err
			}
			for _, q := range batch {
				if err := txn.Insert(q); err != nil {
					txn.Rollback()
					return qerror.Storage(err, "bulk insert failed")
				}
				if _, isDefault := q.Graph.(*rdf.DefaultGraph); !isDefault {
					markGraphSeen(seenGraphs, graphExact, q.Graph, &stats)
				}
			}
			if err := txn.Commit(); err != nil {
				return qerror.Storage(err, "bulk commit failed")
			}
			stats.QuadsLoaded += int64(len(batch))
			batch = batch[:0]
			return nil
		}
		for q := range quadsCh {
			if err := tok.Check(); err != nil {
				return err
			}
			batch = append(batch, q)
			if len(batch) >= BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

// markGraphSeen drives graph dedup off the bitmap: CheckedAdd is the
// membership test, keyed by a 32-bit hash of graph's lexical form.
// exact only disambiguates the rare case where CheckedAdd reports the
// hash already present because two distinct graph names collided on
// it, so Stats.GraphsTouched stays exact rather than merely
// hash-approximate.
func markGraphSeen(bm *roaring.Bitmap, exact map[string]bool, graph rdf.Term, stats *Stats) {
	key := graph.String()
	h := uint32(xxh3.HashString(key))
	if bm.CheckedAdd(h) {
		exact[key] = true
		stats.GraphsTouched++
		return
	}
	if exact[key] {
		return
	}
	exact[key] = true
	stats.GraphsTouched++
}
