package classify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/txeval/txeval/internal/chunk"
	"github.com/txeval/txeval/internal/config"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/genome"
	"github.com/txeval/txeval/internal/psl"
)

// ContextTableName is the table holding the context/alignment-only
// classifiers, keyed by (TransMapId, classifier).
const ContextTableName = "TransMapMetrics"

// Triple is one unit of structural classification work: a reference
// transcript, the target transcript aligned back to it, and the alignment
// between their mRNA or CDS sequences.
type Triple struct {
	Ref     *gene.Transcript
	Tx      *gene.Transcript
	Aln     *psl.Record
	Biotype string
}

// Inputs is the read-only data for one classification run. Maps are
// snapshots built from the external annotation collaborators and must not
// be mutated once the run starts; work units only ever read them.
type Inputs struct {
	// RefTranscripts maps reference transcript id to transcript.
	RefTranscripts map[string]*gene.Transcript

	// TargetTranscripts maps, per source method, alignment id to target
	// transcript.
	TargetTranscripts map[gene.SourceMethod]map[string]*gene.Transcript

	// Biotypes maps reference transcript id to biotype.
	Biotypes map[string]string

	// Alignments holds the target-referenced transcript alignments per
	// source method and alignment mode.
	Alignments map[gene.SourceMethod]map[gene.AlignmentMode][]*psl.Record

	// GenomicAlignments maps alignment id to the transcript's genomic
	// alignment record (query = transcript, target = chromosome), used by
	// the context flags. May be empty.
	GenomicAlignments map[string]*psl.Record

	// TargetGenome provides target-genome sequence.
	TargetGenome genome.Provider
}

// Pipeline fans classification out across bounded parallel units and
// merges the partial results into the final tables.
type Pipeline struct {
	cfg    config.Thresholds
	pool   *chunk.Pool
	logger *zap.Logger
}

// NewPipeline builds a pipeline over an existing worker pool.
func NewPipeline(cfg config.Thresholds, pool *chunk.Pool, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, pool: pool, logger: logger}
}

// chunkResult is the partial output of one classification work unit.
type chunkResult struct {
	metrics []Record
	evals   []Record
}

// Run executes the full classification for all source methods and
// alignment modes and returns the final tables keyed by name. It fails
// when no usable input transcripts exist, on any missing transcript or
// biotype lookup, and on invariant violations inside a work unit.
func (p *Pipeline) Run(ctx context.Context, in *Inputs) (map[string]*Table, error) {
	total := 0
	for _, txs := range in.TargetTranscripts {
		total += len(txs)
	}
	if total == 0 {
		return nil, fmt.Errorf("classification run found no usable input transcripts")
	}

	structural := NewStructural(p.cfg, in.TargetGenome)

	tables := make(map[string]*Table)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for method, byMode := range in.Alignments {
		for mode, records := range byMode {
			if len(records) == 0 {
				continue
			}
			triples, err := p.buildTriples(in, method, mode)
			if err != nil {
				return nil, err
			}
			g.Go(func() error {
				metrics, evals, err := p.classifyChunked(gctx, structural, triples, mode, method)
				if err != nil {
					return fmt.Errorf("%s %s: %w", mode, method, err)
				}
				mu.Lock()
				defer mu.Unlock()
				tables[metrics.Name] = metrics
				tables[evals.Name] = evals
				return nil
			})
		}
	}

	g.Go(func() error {
		table, err := p.contextTable(gctx, in)
		if err != nil || table == nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		tables[table.Name] = table
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// buildTriples resolves every alignment record of one (method, mode) into
// its transcript pair. Unknown ids are fatal: every alignment record is
// expected to reference a known transcript.
func (p *Pipeline) buildTriples(in *Inputs, method gene.SourceMethod, mode gene.AlignmentMode) ([]Triple, error) {
	records := in.Alignments[method][mode]
	txs := in.TargetTranscripts[method]
	triples := make([]Triple, 0, len(records))
	for _, rec := range records {
		tx, ok := txs[rec.QName]
		if !ok {
			return nil, fmt.Errorf("%s alignment names unknown target transcript %q", method, rec.QName)
		}
		ref, ok := in.RefTranscripts[rec.TName]
		if !ok {
			return nil, fmt.Errorf("%s alignment names unknown reference transcript %q", method, rec.TName)
		}
		biotype, ok := in.Biotypes[rec.TName]
		if !ok {
			return nil, fmt.Errorf("no biotype for reference transcript %q", rec.TName)
		}
		triples = append(triples, Triple{Ref: ref, Tx: tx, Aln: rec, Biotype: biotype})
	}
	return triples, nil
}

// tableName composes the result table name for one mode/method pair.
func tableName(mode gene.AlignmentMode, method gene.SourceMethod, group string) string {
	return fmt.Sprintf("%s_%s_%s", mode, method, group)
}

// classifyChunked partitions triples into fixed-size groups, runs each
// group as an independent work unit, and merges the partial record lists.
// Cancellation is observed at unit granularity: a unit that starts after
// cancel returns the context error instead of classifying.
func (p *Pipeline) classifyChunked(ctx context.Context, structural *Structural, triples []Triple, mode gene.AlignmentMode, method gene.SourceMethod) (*Table, *Table, error) {
	chunks := chunk.Fixed(triples, p.cfg.ClassifyChunkSize)
	handles := make([]*chunk.Handle[chunkResult], 0, len(chunks))
	for _, group := range chunks {
		handles = append(handles, chunk.Submit(p.pool, func() (chunkResult, error) {
			if err := ctx.Err(); err != nil {
				return chunkResult{}, err
			}
			return classifyChunk(structural, group, mode)
		}))
	}
	results, err := chunk.AwaitAll(handles)
	if err != nil {
		return nil, nil, err
	}

	metricParts := make([][]Record, len(results))
	evalParts := make([][]Record, len(results))
	for i, r := range results {
		metricParts[i] = r.metrics
		evalParts[i] = r.evals
	}
	metrics, err := MergeTables(tableName(mode, method, "Metrics"), MetricsTable, metricParts)
	if err != nil {
		return nil, nil, err
	}
	evals, err := MergeTables(tableName(mode, method, "Evaluation"), EvaluationTable, evalParts)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Info("classified chunked triples",
		zap.String("table", metrics.Name),
		zap.Int("triples", len(triples)),
		zap.Int("chunks", len(chunks)))
	return metrics, evals, nil
}

// classifyChunk is the body of one classification work unit.
func classifyChunk(structural *Structural, triples []Triple, mode gene.AlignmentMode) (chunkResult, error) {
	var res chunkResult
	for _, t := range triples {
		res.metrics = append(res.metrics, structural.Metrics(t.Ref, t.Tx, t.Aln, mode, t.Biotype)...)
		evals, err := structural.Evaluations(t.Ref, t.Tx, t.Aln, mode, t.Biotype)
		if err != nil {
			return chunkResult{}, err
		}
		res.evals = append(res.evals, evals...)
	}
	return res, nil
}

// contextTable runs the context classifiers over the transMap alignments
// and merges them into the alignment-keyed table. Paralogy counts and the
// gene neighborhoods are computed once and shared read-only by all units.
func (p *Pipeline) contextTable(ctx context.Context, in *Inputs) (*Table, error) {
	targets := in.TargetTranscripts[gene.SourceTransMap]
	if len(targets) == 0 {
		return nil, nil
	}

	alnIDs := make([]string, 0, len(targets))
	for id := range targets {
		alnIDs = append(alnIDs, id)
	}
	sort.Strings(alnIDs)

	paralogy := ParalogyCounts(alnIDs)
	refNbr := BuildGeneNeighborhoods(in.RefTranscripts, p.cfg.LongSpanBases)
	tgtNbr := BuildGeneNeighborhoods(targets, p.cfg.LongSpanBases)
	cc := NewContext(p.cfg, in.TargetGenome)

	chunks := chunk.Fixed(alnIDs, p.cfg.ClassifyChunkSize)
	handles := make([]*chunk.Handle[[]Record], 0, len(chunks))
	for _, group := range chunks {
		handles = append(handles, chunk.Submit(p.pool, func() ([]Record, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var out []Record
			for _, alnID := range group {
				records, err := cc.Classify(targets[alnID], in.GenomicAlignments[alnID], paralogy, refNbr, tgtNbr)
				if err != nil {
					return nil, err
				}
				out = append(out, records...)
			}
			return out, nil
		}))
	}
	parts, err := chunk.AwaitAll(handles)
	if err != nil {
		return nil, err
	}
	return MergeTables(ContextTableName, AlignmentMetricsTable, parts)
}
