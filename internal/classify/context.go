package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/txeval/txeval/internal/config"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/genome"
	"github.com/txeval/txeval/internal/psl"
)

// Context evaluates target-genome-only signals for each alignment: how many
// alignments collapse onto the same reference transcript, whether the gene
// neighborhood is conserved, and contig-edge / unknown-base flags. It is
// independent of the structural classifier.
type Context struct {
	cfg    config.Thresholds
	genome genome.Provider
}

// NewContext builds a context classifier over the target genome.
func NewContext(cfg config.Thresholds, g genome.Provider) *Context {
	return &Context{cfg: cfg, genome: g}
}

// ParalogyCounts reduces every alignment id to its base reference
// transcript id and counts the collisions. The count is the paralogy score
// for every alignment sharing that reference id.
func ParalogyCounts(alnIDs []string) map[string]int {
	counts := make(map[string]int)
	for _, id := range alnIDs {
		counts[gene.StripAlignmentID(id)]++
	}
	return counts
}

// geneSpan is one merged gene body on a chromosome.
type geneSpan struct {
	geneID string
	start  int
	stop   int
}

// GeneNeighborhoods holds per-chromosome sorted merged gene-body intervals
// for one genome, built once per run and read-only thereafter.
type GeneNeighborhoods struct {
	byChrom map[string][]geneSpan
	spanOf  map[string]geneSpan
	chromOf map[string]string
}

// BuildGeneNeighborhoods merges all exons of all transcripts sharing a gene
// id into one span per chromosome. Genes whose merged span reaches tooLong
// bases are skipped: such spans are almost always assembly or mapping
// artifacts and would contaminate every neighborhood they touch.
func BuildGeneNeighborhoods(txs map[string]*gene.Transcript, tooLong int) *GeneNeighborhoods {
	type bounds struct {
		chrom      string
		start, stop int
	}
	merged := make(map[string]*bounds)
	for _, tx := range txs {
		if len(tx.Exons) == 0 {
			continue
		}
		b, ok := merged[tx.GeneID]
		if !ok {
			merged[tx.GeneID] = &bounds{chrom: tx.Chromosome, start: tx.Start(), stop: tx.Stop()}
			continue
		}
		if tx.Chromosome != b.chrom {
			// Split genes cannot anchor a neighborhood.
			continue
		}
		b.start = min(b.start, tx.Start())
		b.stop = max(b.stop, tx.Stop())
	}

	n := &GeneNeighborhoods{
		byChrom: make(map[string][]geneSpan),
		spanOf:  make(map[string]geneSpan),
		chromOf: make(map[string]string),
	}
	for geneID, b := range merged {
		if b.stop-b.start >= tooLong {
			continue
		}
		span := geneSpan{geneID: geneID, start: b.start, stop: b.stop}
		n.byChrom[b.chrom] = append(n.byChrom[b.chrom], span)
		n.spanOf[geneID] = span
		n.chromOf[geneID] = b.chrom
	}
	for chrom := range n.byChrom {
		spans := n.byChrom[chrom]
		sort.Slice(spans, func(i, j int) bool {
			if spans[i].start != spans[j].start {
				return spans[i].start < spans[j].start
			}
			return spans[i].geneID < spans[j].geneID
		})
	}
	return n
}

// Neighbors returns the gene ids of up to n neighbors on each side of
// geneID on its chromosome, excluding the gene itself. The gene's rank is
// located by binary search over the sorted spans.
func (g *GeneNeighborhoods) Neighbors(geneID string, n int) map[string]bool {
	chrom, ok := g.chromOf[geneID]
	if !ok {
		return nil
	}
	want := g.spanOf[geneID]
	spans := g.byChrom[chrom]
	rank := sort.Search(len(spans), func(i int) bool {
		if spans[i].start != want.start {
			return spans[i].start > want.start
		}
		return spans[i].geneID >= geneID
	})
	if rank == len(spans) || spans[rank].geneID != geneID {
		return nil
	}
	out := make(map[string]bool, 2*n)
	for i := max(0, rank-n); i <= min(len(spans)-1, rank+n); i++ {
		if i == rank {
			continue
		}
		out[spans[i].geneID] = true
	}
	return out
}

// Synteny scores gene-order conservation for one gene: the size of the
// intersection between its reference-genome neighborhood and its
// target-genome neighborhood, 0 to 2n.
func Synteny(ref, tgt *GeneNeighborhoods, geneID string, n int) int {
	refSet := ref.Neighbors(geneID, n)
	score := 0
	for g := range tgt.Neighbors(geneID, n) {
		if refSet[g] {
			score++
		}
	}
	return score
}

// Flags computes the alignment-context flag metrics for one target
// transcript. genomicAln is the transcript's genomic alignment record
// (query = transcript, target = chromosome) and may be nil when the run
// has no genomic alignments, in which case the contig and partial-map
// flags are omitted.
func (c *Context) Flags(tx *gene.Transcript, genomicAln *psl.Record) ([]Record, error) {
	base := gene.StripAlignmentID(tx.ID)
	var out []Record
	emit := func(classifier string, v bool) {
		out = append(out, Metric(tx.GeneID, base, tx.ID, classifier, boolValue(v)))
	}

	if genomicAln != nil {
		offContig := (genomicAln.TStart == 0 && genomicAln.QStart != 0) ||
			(genomicAln.TEnd == genomicAln.TSize && genomicAln.QEnd != genomicAln.QSize)
		emit("AlnExtendsOffContig", offContig)
		emit("AlnPartialMap", genomicAln.QEnd-genomicAln.QStart < genomicAln.QSize)
	}

	before := genome.Base(c.genome, tx.Chromosome, tx.Start()-1)
	after := genome.Base(c.genome, tx.Chromosome, tx.Stop())
	emit("AlnAbutsUnknownBases", genome.IsUnknown(before) || genome.IsUnknown(after))

	mrna, err := tx.MRNA(c.genome)
	if err != nil {
		return nil, fmt.Errorf("context flags: %w", err)
	}
	emit("AlnContainsUnknownBases", strings.ContainsRune(mrna, 'N'))

	emit("LongAlignment", tx.Stop()-tx.Start() >= c.cfg.LongSpanBases)
	return out, nil
}

// Classify produces the full context record set for one target transcript:
// flags plus the Paralogy, Synteny and Badness metrics. paralogy and the
// two neighborhood indexes are shared read-only inputs built once per run.
func (c *Context) Classify(tx *gene.Transcript, genomicAln *psl.Record,
	paralogy map[string]int, refNbr, tgtNbr *GeneNeighborhoods) ([]Record, error) {
	out, err := c.Flags(tx, genomicAln)
	if err != nil {
		return nil, err
	}
	base := gene.StripAlignmentID(tx.ID)
	out = append(out, Metric(tx.GeneID, base, tx.ID, "Paralogy", float64(paralogy[base])))
	out = append(out, Metric(tx.GeneID, base, tx.ID, "Synteny",
		float64(Synteny(refNbr, tgtNbr, tx.GeneID, c.cfg.SyntenyNeighbors))))
	if genomicAln != nil {
		out = append(out, Metric(tx.GeneID, base, tx.ID, "Badness", genomicAln.Badness()))
	}
	return out, nil
}
