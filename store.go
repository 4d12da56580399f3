// Package oxifuj is the public entry point for the storage engine and
// SPARQL execution stack of spec.md §2: opening a store, running
// SELECT/CONSTRUCT/ASK/DESCRIBE queries and SPARQL Update against it,
// bulk-loading and dumping N-Quads, and backing it up.
//
// Grounded in the teacher's cmd/trigo/main.go, which wires
// internal/storage, internal/store, internal/sparql/{parser,optimizer,
// executor}, and internal/server/results together behind one small
// set of entry points; this file plays the same wiring role for the
// packages under internal/ here.
package oxifuj

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/aleksaelezovic/oxifuj/internal/algebra"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/codec"
	"github.com/aleksaelezovic/oxifuj/internal/evaluator"
	"github.com/aleksaelezovic/oxifuj/internal/explain"
	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/loader"
	"github.com/aleksaelezovic/oxifuj/internal/optimizer"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/quadstore"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
	"github.com/aleksaelezovic/oxifuj/internal/results"
	"github.com/aleksaelezovic/oxifuj/internal/sparql"
	"github.com/aleksaelezovic/oxifuj/internal/update"
)

// Store is an open quad store: the Badger-backed storage engine plus the
// quad store facade of §4.4. It is the one type applications outside
// this module construct.
type Store struct {
	storage *kvstore.BadgerStorage
	qs      *quadstore.Store
	path    string
}

// Open opens (creating if absent) a read-write store at path (§4.3,
// §6.1). Only one writable Store may be open on a path at a time; a
// second writable Open on the same path fails, since Badger holds the
// directory's exclusive lock for the process lifetime.
func Open(path string) (*Store, error) {
	return open(path, true)
}

// OpenReadOnly opens path without acquiring the writer lock (§4.3's
// "Read-only open"). Concurrent write access by another process is then
// undefined, per §4.3.
func OpenReadOnly(path string) (*Store, error) {
	return open(path, false)
}

func open(path string, writable bool) (*Store, error) {
	bs, err := kvstore.Open(path, writable)
	if err != nil {
		return nil, err
	}
	return &Store{storage: bs, qs: quadstore.New(bs), path: path}, nil
}

// Close releases the store's file lock and flushes any buffered state.
func (s *Store) Close() error { return s.qs.Close() }

// Begin starts a quadstore transaction directly, for callers that need
// pattern matching or Insert/Remove without going through Query/Update.
func (s *Store) Begin(writable bool) (*quadstore.Txn, error) { return s.qs.Begin(writable) }

// QueryOptions is §6.5's query configuration.
type QueryOptions struct {
	BaseIRI           string
	DefaultGraph      []rdf.Term
	NamedGraphs       []rdf.Term
	UnionDefaultGraph bool
	Timeout           time.Duration
	Explain           bool
}

// QueryResultsKind discriminates QueryResults' three shapes (§6.4).
type QueryResultsKind int

const (
	ResultSolutions QueryResultsKind = iota
	ResultGraph
	ResultBoolean
)

// QueryResults is the tagged union §6.4 specifies: exactly one of
// Solutions/Graph/Boolean is populated, selected by Kind. Explain, when
// the caller asked for it, carries the cost-annotated plan tree
// regardless of which form the query took.
type QueryResults struct {
	Kind      QueryResultsKind
	Solutions *results.Solutions
	Graph     []*rdf.Triple
	Boolean   bool
	Explain   *explain.Node

	txn      *quadstore.Txn
	cancelFn func()
}

// Close releases the read transaction backing these results. Consuming
// Solutions after Close fails (§6.4: "consuming them after the store is
// closed fails").
func (r *QueryResults) Close() error {
	if r.cancelFn != nil {
		r.cancelFn()
	}
	if r.txn == nil {
		return nil
	}
	return r.txn.Rollback()
}

// Query parses, optimizes, and evaluates a SPARQL query text against a
// fresh read-transaction snapshot (§4.3's repeatable-read semantics:
// one snapshot for the whole query, however many operators pull from
// it). The returned QueryResults owns that transaction; callers must
// Close it.
func (s *Store) Query(ctx context.Context, queryText string, opts QueryOptions) (*QueryResults, error) {
	q, err := sparql.NewParser(queryText).ParseQuery()
	if err != nil {
		return nil, err
	}
	q = optimizer.New(nil).OptimizeQuery(q)

	txn, err := s.qs.Begin(false)
	if err != nil {
		return nil, err
	}
	tok, cancelFn := tokenFor(ctx, opts.Timeout)

	ev := &evaluator.Evaluator{Txn: txn, Tok: tok, UnionDefaultGraph: opts.UnionDefaultGraph}
	if len(opts.DefaultGraph) == 1 {
		ev.ActiveGraph = opts.DefaultGraph[0]
	}

	var explainTree *explain.Node
	if opts.Explain {
		explainTree = explain.Build(q.Where, nil)
	}

	out := &QueryResults{txn: txn, Explain: explainTree, cancelFn: cancelFn}
	switch q.Form {
	case algebra.FormSelect:
		iter, err := ev.Compile(q.Where, nil)
		if err != nil {
			cancelFn()
			txn.Rollback()
			return nil, err
		}
		out.Kind = ResultSolutions
		out.Solutions = &results.Solutions{Vars: q.SelectVars, Iter: iter}
	case algebra.FormAsk:
		iter, err := ev.Compile(q.Where, nil)
		if err != nil {
			cancelFn()
			txn.Rollback()
			return nil, err
		}
		b, err := results.Ask(tok, iter)
		if err != nil {
			cancelFn()
			txn.Rollback()
			return nil, err
		}
		out.Kind = ResultBoolean
		out.Boolean = b
	case algebra.FormConstruct:
		iter, err := ev.Compile(q.Where, nil)
		if err != nil {
			cancelFn()
			txn.Rollback()
			return nil, err
		}
		triples, err := results.Construct(tok, iter, q.ConstructTpl)
		if err != nil {
			cancelFn()
			txn.Rollback()
			return nil, err
		}
		out.Kind = ResultGraph
		out.Graph = triples
	case algebra.FormDescribe:
		targets, err := s.resolveDescribeTargets(tok, ev, q)
		if err != nil {
			cancelFn()
			txn.Rollback()
			return nil, err
		}
		graph := ev.ActiveGraphTerm()
		triples, err := results.Describe(tok, txn, graph, targets)
		if err != nil {
			cancelFn()
			txn.Rollback()
			return nil, err
		}
		out.Kind = ResultGraph
		out.Graph = triples
	default:
		cancelFn()
		txn.Rollback()
		return nil, qerror.Unsupported("unrecognized query form")
	}
	return out, nil
}

// resolveDescribeTargets evaluates q.Where (when present) to resolve any
// variable DESCRIBE targets, in addition to the literally-bound IRIs.
func (s *Store) resolveDescribeTargets(tok cancel.Token, ev *evaluator.Evaluator, q *algebra.Query) ([]rdf.Term, error) {
	var out []rdf.Term
	var varTargets []algebra.Var
	for _, t := range q.DescribeVars {
		if t.IsVariable() {
			varTargets = append(varTargets, t.Var)
		} else {
			out = append(out, t.Value)
		}
	}
	if q.Where == nil || len(varTargets) == 0 {
		return out, nil
	}
	iter, err := ev.Compile(q.Where, nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for {
		b, ok, err := iter.Next(tok)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		for _, v := range varTargets {
			if t, bound := b[v]; bound {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// Update parses and executes a SPARQL Update text in one writable
// transaction, committing on success and rolling back on any error
// (§4.8: "all-or-nothing").
func (s *Store) Update(ctx context.Context, updateText string, l update.Loader) error {
	u, err := sparql.NewParser(updateText).ParseUpdate()
	if err != nil {
		return err
	}
	u = optimizer.New(nil).OptimizeUpdate(u)

	txn, err := s.qs.Begin(true)
	if err != nil {
		return err
	}
	tok := cancel.New(ctx)
	if err := update.Exec(tok, txn, u, l); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit()
}

// Load bulk-loads N-Quads from r (§4.3's "bulk loader"), bypassing the
// single-transaction path for higher throughput on large inputs.
func (s *Store) Load(ctx context.Context, r io.Reader) (loader.Stats, error) {
	return loader.Load(cancel.New(ctx), s.qs, r)
}

// Dump serializes every quad in the store (or, when graph is non-nil,
// just that graph) as N-Quads.
func (s *Store) Dump(ctx context.Context, w io.Writer, graph rdf.Term) error {
	txn, err := s.qs.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	pattern := quadstore.Pattern{}
	if graph != nil {
		pattern.Graph = graph
	}
	it, err := txn.QuadsForPattern(pattern)
	if err != nil {
		return err
	}
	defer it.Close()

	enc := codec.NewNQuadsEncoder(w)
	tok := cancel.New(ctx)
	for it.Next() {
		if err := tok.Check(); err != nil {
			return err
		}
		q, err := it.Quad()
		if err != nil {
			return err
		}
		if err := enc.Encode(q); err != nil {
			return qerror.Storage(err, "dump write failed")
		}
	}
	return it.Err()
}

// Backup creates an independent, usable store at dstPath whose content
// equals src's committed state at call time (§6.2). It streams a
// consistent snapshot through Badger's own backup format rather than
// copying files directly, since src may still be open for writes by
// its owning process; a closed store's directory can instead be
// duplicated file-for-file with hardlinks (see BackupClosed), which is
// the fast path §6.2 calls out for same-device destinations.
func (s *Store) Backup(ctx context.Context, dstPath string) error {
	db := s.storage.DB()
	dst, err := kvstore.Open(dstPath, true)
	if err != nil {
		return err
	}
	defer dst.Close()

	pr, pw := io.Pipe()
	errCh := make(chan error, 1)
	go func() {
		_, err := db.Backup(pw, 0)
		pw.CloseWithError(err)
	}()
	go func() {
		errCh <- dst.DB().Load(pr, 256)
	}()
	if err := <-errCh; err != nil {
		return qerror.Storage(err, "backup restore failed")
	}
	return nil
}

// BackupClosed duplicates srcPath's on-disk store directory to dstPath
// without opening either as a live Badger instance (§6.2: "Uses
// filesystem hard links where the target is on the same device").
// Every regular file is hard-linked when possible; files on a
// different device (or that otherwise refuse linking) fall back to a
// byte copy. The CLI's `backup` subcommand uses this path since it
// always operates on a store no server process has open; Store.Backup
// above is for backing up a store that is still live.
func BackupClosed(srcPath, dstPath string) error {
	return filepath.WalkDir(srcPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcPath, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstPath, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := os.Link(path, target); err == nil {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func tokenFor(ctx context.Context, timeout time.Duration) (cancel.Token, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	base := cancel.New(ctx)
	if timeout <= 0 {
		return base, func() {}
	}
	return cancel.WithTimeout(base, timeout)
}
