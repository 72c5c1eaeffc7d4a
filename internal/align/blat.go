package align

import (
	"context"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/txeval/txeval/internal/chunk"
	"github.com/txeval/txeval/internal/config"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/psl"
)

// Runner executes blat for each queued sequence pair and keeps the best
// validated record per pair. Bins run in parallel on the worker pool; a
// pair whose alignment or validation fails emits no record.
type Runner struct {
	cfg    config.Thresholds
	pool   *chunk.Pool
	logger *zap.Logger

	blat     string
	pslCheck string
	tmpDir   string
}

// NewRunner builds a Runner that looks up blat and pslCheck on PATH and
// writes its scratch FASTA/PSL files under the default temp directory.
func NewRunner(cfg config.Thresholds, pool *chunk.Pool) *Runner {
	return &Runner{
		cfg:      cfg,
		pool:     pool,
		logger:   zap.NewNop(),
		blat:     "blat",
		pslCheck: "pslCheck",
	}
}

func (r *Runner) SetLogger(l *zap.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Run packs pairs into alignment bins, aligns each bin on the worker pool
// and merges the surviving records in (query, target) order.
func (r *Runner) Run(ctx context.Context, pairs iter.Seq[chunk.SeqPair], mode gene.AlignmentMode) ([]*psl.Record, error) {
	bins := chunk.GroupSequencePairs(pairs, r.cfg.ChunkBases, r.cfg.ChunkMaxSeqs)
	handles := make([]*chunk.Handle[[]*psl.Record], 0, len(bins))
	for _, bin := range bins {
		handles = append(handles, chunk.Submit(r.pool, func() ([]*psl.Record, error) {
			return r.alignBin(ctx, bin, mode)
		}))
	}
	parts, err := chunk.AwaitAll(handles)
	if err != nil {
		return nil, err
	}
	var recs []*psl.Record
	for _, part := range parts {
		recs = append(recs, part...)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].QName != recs[j].QName {
			return recs[i].QName < recs[j].QName
		}
		return recs[i].TName < recs[j].TName
	})
	r.logger.Info("alignment finished",
		zap.String("mode", string(mode)), zap.Int("bins", len(bins)), zap.Int("records", len(recs)))
	return recs, nil
}

func (r *Runner) alignBin(ctx context.Context, bin []chunk.SeqPair, mode gene.AlignmentMode) ([]*psl.Record, error) {
	dir, err := os.MkdirTemp(r.tmpDir, "txeval-align-")
	if err != nil {
		return nil, fmt.Errorf("creating alignment scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var out []*psl.Record
	for _, pair := range bin {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := r.alignPair(ctx, dir, pair, mode)
		if err != nil {
			r.logger.Warn("alignment failed",
				zap.String("alignmentId", pair.AlnID), zap.String("transcriptId", pair.RefID), zap.Error(err))
			continue
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// alignPair runs one blat invocation. The target transcript's sequence is
// the PSL query and the reference transcript's sequence is the PSL target.
func (r *Runner) alignPair(ctx context.Context, dir string, pair chunk.SeqPair, mode gene.AlignmentMode) (*psl.Record, error) {
	refFa := filepath.Join(dir, "ref.fa")
	tgtFa := filepath.Join(dir, "tgt.fa")
	rawPsl := filepath.Join(dir, "raw.psl")
	okPsl := filepath.Join(dir, "ok.psl")

	if err := writeFasta(refFa, pair.RefID, pair.RefSeq); err != nil {
		return nil, err
	}
	if err := writeFasta(tgtFa, pair.AlnID, pair.Seq); err != nil {
		return nil, err
	}

	args := []string{"-noHead", "-minIdentity=0"}
	if mode == gene.ModeCDS {
		args = append(args, "-t=dnax", "-q=rnax")
	}
	args = append(args, refFa, tgtFa, rawPsl)

	cmd := exec.CommandContext(ctx, r.blat, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("blat %s vs %s: %v: %s", pair.AlnID, pair.RefID, err, output)
	}

	recs, err := r.checkRecords(ctx, rawPsl, okPsl)
	if err != nil {
		return nil, err
	}

	wantStrand := "+"
	if mode == gene.ModeCDS {
		wantStrand = "++"
	}
	return bestRecord(recs, wantStrand), nil
}

// checkRecords filters a raw PSL file through pslCheck and parses the
// records that pass. pslCheck exits nonzero whenever any record fails,
// which only means the pass file is a subset of the input.
func (r *Runner) checkRecords(ctx context.Context, rawPsl, okPsl string) ([]*psl.Record, error) {
	cmd := exec.CommandContext(ctx, r.pslCheck, "-pass="+okPsl, rawPsl)
	if output, err := cmd.CombinedOutput(); err != nil {
		if _, exited := err.(*exec.ExitError); !exited {
			return nil, fmt.Errorf("pslCheck %s: %v: %s", rawPsl, err, output)
		}
	}
	f, err := os.Open(okPsl)
	if err != nil {
		return nil, fmt.Errorf("reading pslCheck output: %w", err)
	}
	defer f.Close()
	return psl.ParseAll(f)
}

// bestRecord picks the highest-coverage record on the expected strand, or
// nil when nothing survives.
func bestRecord(recs []*psl.Record, strand string) *psl.Record {
	var best *psl.Record
	for _, rec := range recs {
		if rec.Strand != strand {
			continue
		}
		if best == nil || rec.Coverage() > best.Coverage() {
			best = rec
		}
	}
	return best
}

func writeFasta(path, name, seq string) error {
	var b strings.Builder
	b.WriteByte('>')
	b.WriteString(name)
	b.WriteByte('\n')
	for start := 0; start < len(seq); start += 60 {
		end := min(start+60, len(seq))
		b.WriteString(seq[start:end])
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing fasta %s: %w", path, err)
	}
	return nil
}
