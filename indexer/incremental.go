package indexer

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/kddindex/artifact"
	"github.com/c360studio/kddindex/gitdiff"
	"github.com/c360studio/kddindex/kdderr"
)

// SpecPattern matches the spec tree inside a repository.
const SpecPattern = "specs/**/*.md"

// BatchResult aggregates per-file outcomes for one ingestion run.
type BatchResult struct {
	Outcomes    []FileOutcome
	Indexed     int
	Deleted     int
	Skipped     int
	Failed      int
	FullReindex bool
	GitCommit   string
}

// Partial reports whether any file failed while others succeeded.
func (r *BatchResult) Partial() bool {
	return r.Failed > 0 && (r.Indexed > 0 || r.Deleted > 0 || r.Skipped > 0)
}

// Err converts the batch outcome into an error value, nil when clean.
func (r *BatchResult) Err() error {
	if r.Failed == 0 {
		return nil
	}
	var reasons []string
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			reasons = append(reasons, o.Path+": "+o.Reason)
		}
	}
	return kdderr.New(kdderr.PartialFailure, "%d of %d files failed: %s",
		r.Failed, len(r.Outcomes), strings.Join(reasons, "; "))
}

// Driver runs incremental or full ingestion against one artifact root,
// holding the advisory lock for the duration.
type Driver struct {
	ix       *Indexer
	differ   gitdiff.Differ
	repoRoot string
	logger   *slog.Logger
}

// NewDriver wires the incremental driver.
func NewDriver(ix *Indexer, differ gitdiff.Differ, repoRoot string, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{ix: ix, differ: differ, repoRoot: repoRoot, logger: logger}
}

// RunOptions select the ingestion mode.
type RunOptions struct {
	Full      bool
	Force     bool
	Domain    string
	Structure string // defaults to single-domain
}

// Run ingests: full scan when no manifest (or Full set), otherwise the diff
// between the manifest's commit and HEAD. Partial failure continues other
// files and aggregates.
func (d *Driver) Run(ctx context.Context, opts RunOptions) (*BatchResult, error) {
	lock, err := d.ix.store.AcquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	head, err := d.differ.Head(ctx)
	if err != nil {
		d.logger.Warn("HEAD not resolvable, indexing without commit tracking",
			slog.String("error", err.Error()))
		head = ""
	}

	manifest, err := d.ix.store.ReadManifest()
	full := opts.Full || errors.Is(err, artifact.ErrNoManifest) || (err == nil && manifest.GitCommit == "")
	if err != nil && !errors.Is(err, artifact.ErrNoManifest) {
		return nil, err
	}

	var result *BatchResult
	if full {
		result, err = d.fullScan(ctx, opts)
	} else {
		result, err = d.applyDiff(ctx, manifest.GitCommit, head, opts)
		if kdderr.Is(err, kdderr.CommitNotFound) {
			d.logger.Warn("base commit not in history, falling back to full scan",
				slog.String("base", manifest.GitCommit))
			result, err = d.fullScan(ctx, opts)
		}
	}
	if err != nil {
		return nil, err
	}
	result.GitCommit = head

	structure := opts.Structure
	if structure == "" {
		structure = "single-domain"
	}
	var domains []string
	if opts.Domain != "" {
		domains = []string{opts.Domain}
	}
	if err := d.ix.WriteManifest(structure, domains, head); err != nil {
		return nil, kdderr.Wrap(kdderr.IndexWriteFailed, err)
	}
	return result, nil
}

func (d *Driver) fullScan(ctx context.Context, opts RunOptions) (*BatchResult, error) {
	files, err := d.differ.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, f := range files {
		if matchSpec(f) {
			paths = append(paths, f)
		}
	}
	result := d.indexPaths(ctx, paths, opts.Force)
	result.FullReindex = true
	return result, nil
}

func (d *Driver) applyDiff(ctx context.Context, base, head string, opts RunOptions) (*BatchResult, error) {
	changes, err := d.differ.Diff(ctx, base, head)
	if err != nil {
		return nil, err
	}

	var toIndex []string
	var toDelete []string
	for _, c := range changes {
		switch c.Status {
		case gitdiff.Added:
			if matchSpec(c.Path) {
				toIndex = append(toIndex, c.Path)
			}
		case gitdiff.Modified:
			if matchSpec(c.Path) {
				toIndex = append(toIndex, c.Path)
			}
		case gitdiff.Deleted:
			if matchSpec(c.Path) {
				toDelete = append(toDelete, c.Path)
			}
		case gitdiff.Renamed:
			if matchSpec(c.OldPath) {
				toDelete = append(toDelete, c.OldPath)
			}
			if matchSpec(c.Path) {
				toIndex = append(toIndex, c.Path)
			}
		}
	}

	// Deletes first, in path order, so a rename never collides with itself.
	sort.Strings(toDelete)
	result := &BatchResult{}
	for _, p := range toDelete {
		o := d.ix.Delete(p)
		result.record(o)
	}

	indexed := d.indexPaths(ctx, toIndex, opts.Force)
	result.Outcomes = append(result.Outcomes, indexed.Outcomes...)
	result.Indexed += indexed.Indexed
	result.Skipped += indexed.Skipped
	result.Failed += indexed.Failed
	return result, nil
}

// indexPaths fans preparation out to workers and persists serially in
// path-sorted order. Duplicate target node ids are skipped so no two files
// race on the same node.
func (d *Driver) indexPaths(ctx context.Context, paths []string, force bool) *BatchResult {
	sort.Strings(paths)
	result := &BatchResult{}

	type slot struct {
		p       *prepared
		outcome FileOutcome
	}
	slots := make([]slot, len(paths))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			p, outcome := d.ix.prepare(gctx, d.repoRoot, path, force)
			mu.Lock()
			slots[i] = slot{p: p, outcome: outcome}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	seenNodes := map[string]string{}
	for i, path := range paths {
		s := slots[i]
		if s.p == nil {
			result.record(s.outcome)
			continue
		}
		nodeID := s.p.node.ID
		if prior, dup := seenNodes[nodeID]; dup {
			d.logger.Warn("duplicate node id, file skipped",
				slog.String("path", path),
				slog.String("node", nodeID),
				slog.String("first", prior))
			result.record(FileOutcome{Path: path, NodeID: nodeID, Status: StatusSkipped, Reason: "duplicate node id"})
			continue
		}
		seenNodes[nodeID] = path
		result.record(d.ix.persist(s.p, path))
	}
	return result
}

func (r *BatchResult) record(o FileOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusIndexed:
		r.Indexed++
	case StatusDeleted:
		r.Deleted++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

func matchSpec(path string) bool {
	ok, err := doublestar.Match(SpecPattern, path)
	return err == nil && ok
}
