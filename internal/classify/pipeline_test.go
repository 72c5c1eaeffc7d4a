package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txeval/txeval/internal/chunk"
	"github.com/txeval/txeval/internal/config"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/genome"
	"github.com/txeval/txeval/internal/psl"
)

// pipelineInputs builds a two-transcript transMap run with spliced
// transcripts on both sides so no optional metric degenerates to NaN.
func pipelineInputs() *Inputs {
	refTxs := make(map[string]*gene.Transcript)
	tgtTxs := make(map[string]*gene.Transcript)
	var alns []*psl.Record
	genomicAlns := make(map[string]*psl.Record)

	seq := strings.Repeat("ACGTACGTAT", 50)
	for i, base := range []string{"tx1.1", "tx2.1"} {
		off := (i + 1) * 100
		refTxs[base] = &gene.Transcript{
			ID: base, GeneID: "gene" + base, Chromosome: "rchr1", Strand: gene.Plus,
			Exons: []gene.ChromosomeInterval{
				gene.NewChromosomeInterval("rchr1", off, off+10, gene.Plus),
				gene.NewChromosomeInterval("rchr1", off+20, off+30, gene.Plus),
			},
			ThickStart: off, ThickStop: off + 30,
		}
		alnID := base + "-1"
		tgtTxs[alnID] = &gene.Transcript{
			ID: alnID, GeneID: "gene" + base, Chromosome: "chr1", Strand: gene.Plus,
			Exons: []gene.ChromosomeInterval{
				gene.NewChromosomeInterval("chr1", off, off+10, gene.Plus),
				gene.NewChromosomeInterval("chr1", off+20, off+30, gene.Plus),
			},
			ThickStart: off, ThickStop: off + 30,
		}
		alns = append(alns, &psl.Record{
			Matches: 20, Strand: "+",
			QName: alnID, QSize: 20, QEnd: 20, TName: base, TSize: 20, TEnd: 20,
			BlockCount: 1, BlockSizes: []int{20}, QStarts: []int{0}, TStarts: []int{0},
		})
		genomicAlns[alnID] = &psl.Record{
			Matches: 20, Strand: "+",
			QName: alnID, QSize: 20, QEnd: 20,
			TName: "chr1", TSize: len(seq), TStart: off, TEnd: off + 30,
			BlockCount: 2, BlockSizes: []int{10, 10}, QStarts: []int{0, 10}, TStarts: []int{off, off + 20},
		}
	}

	return &Inputs{
		RefTranscripts:    refTxs,
		TargetTranscripts: map[gene.SourceMethod]map[string]*gene.Transcript{gene.SourceTransMap: tgtTxs},
		Biotypes:          map[string]string{"tx1.1": BiotypeProteinCoding, "tx2.1": "lincRNA"},
		Alignments: map[gene.SourceMethod]map[gene.AlignmentMode][]*psl.Record{
			gene.SourceTransMap: {gene.ModeMRNA: alns},
		},
		GenomicAlignments: genomicAlns,
		TargetGenome:      genome.NewMemory(map[string]string{"chr1": seq}),
	}
}

func runPipeline(t *testing.T, cfg config.Thresholds, in *Inputs) map[string]*Table {
	t.Helper()
	p := NewPipeline(cfg, chunk.NewPool(2), nil)
	tables, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	return tables
}

func TestPipelineRun(t *testing.T) {
	tables := runPipeline(t, config.Default(), pipelineInputs())

	require.Contains(t, tables, "mRNA_transMap_Metrics")
	require.Contains(t, tables, "mRNA_transMap_Evaluation")
	require.Contains(t, tables, ContextTableName)

	metrics := tables["mRNA_transMap_Metrics"]
	rows := metrics.Lookup("tx1.1", "AlnCoverage")
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].Value)
	assert.Equal(t, "tx1.1-1", rows[0].AlignmentID)

	rows = metrics.Lookup("tx1.1", "PercentOriginalIntrons")
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].Value)

	// The coding transcript gets codon stats, the lincRNA does not.
	assert.Len(t, metrics.Lookup("tx1.1", "StartCodon"), 1)
	assert.Empty(t, metrics.Lookup("tx2.1", "StartCodon"))

	ctxTable := tables[ContextTableName]
	rows = ctxTable.Lookup("tx1.1-1", "Paralogy")
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].Value)
	assert.Len(t, ctxTable.Lookup("tx1.1-1", "Badness"), 1)

	// Identity alignments locate no defects.
	assert.Empty(t, tables["mRNA_transMap_Evaluation"].Rows)
}

func TestPipelineChunkingInvariant(t *testing.T) {
	wide := config.Default()
	wide.ClassifyChunkSize = 500
	narrow := config.Default()
	narrow.ClassifyChunkSize = 1

	a := runPipeline(t, wide, pipelineInputs())
	b := runPipeline(t, narrow, pipelineInputs())

	require.Equal(t, len(a), len(b))
	for name, ta := range a {
		tb, ok := b[name]
		require.True(t, ok, "table %s missing from chunked run", name)
		assert.Equal(t, ta.Rows, tb.Rows, "table %s differs across chunk sizes", name)
	}
}

func TestPipelineParalogousAlignments(t *testing.T) {
	in := pipelineInputs()
	// Map tx1.1 a second time, the way a paralogous projection does.
	targets := in.TargetTranscripts[gene.SourceTransMap]
	first := targets["tx1.1-1"]
	second := *first
	second.ID = "tx1.1-2"
	second.Exons = []gene.ChromosomeInterval{
		gene.NewChromosomeInterval("chr1", 300, 310, gene.Plus),
		gene.NewChromosomeInterval("chr1", 320, 330, gene.Plus),
	}
	second.ThickStart, second.ThickStop = 300, 330
	targets["tx1.1-2"] = &second
	in.Alignments[gene.SourceTransMap][gene.ModeMRNA] = append(
		in.Alignments[gene.SourceTransMap][gene.ModeMRNA],
		&psl.Record{
			Matches: 20, Strand: "+",
			QName: "tx1.1-2", QSize: 20, QEnd: 20, TName: "tx1.1", TSize: 20, TEnd: 20,
			BlockCount: 1, BlockSizes: []int{20}, QStarts: []int{0}, TStarts: []int{0},
		})

	tables := runPipeline(t, config.Default(), in)

	metrics := tables["mRNA_transMap_Metrics"]
	rows := metrics.Lookup("tx1.1", "AlnCoverage")
	require.Len(t, rows, 2, "each paralogous alignment keeps its own metric row")
	assert.Equal(t, "tx1.1-1", rows[0].AlignmentID)
	assert.Equal(t, "tx1.1-2", rows[1].AlignmentID)

	ctxTable := tables[ContextTableName]
	for _, alnID := range []string{"tx1.1-1", "tx1.1-2"} {
		paralogy := ctxTable.Lookup(alnID, "Paralogy")
		require.Len(t, paralogy, 1)
		assert.Equal(t, 2.0, paralogy[0].Value)
	}
}

func TestPipelineRunEmptyInput(t *testing.T) {
	p := NewPipeline(config.Default(), chunk.NewPool(1), nil)
	_, err := p.Run(context.Background(), &Inputs{
		TargetTranscripts: map[gene.SourceMethod]map[string]*gene.Transcript{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable input transcripts")
}

func TestPipelineRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(config.Default(), chunk.NewPool(1), nil)
	_, err := p.Run(ctx, pipelineInputs())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineRunUnknownReference(t *testing.T) {
	in := pipelineInputs()
	in.Alignments[gene.SourceTransMap][gene.ModeMRNA][0].TName = "missing.1"

	p := NewPipeline(config.Default(), chunk.NewPool(1), nil)
	_, err := p.Run(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reference transcript")
}
