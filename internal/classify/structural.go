package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/txeval/txeval/internal/config"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/genome"
	"github.com/txeval/txeval/internal/psl"
)

// BiotypeProteinCoding is the biotype gating codon-based classifiers.
const BiotypeProteinCoding = "protein_coding"

// Structural evaluates one (reference transcript, target transcript,
// alignment) triple in a given alignment mode. All alignments are
// target-referenced: the PSL query is the target transcript's mRNA/CDS and
// the PSL target is the reference transcript's.
type Structural struct {
	cfg    config.Thresholds
	genome genome.Provider
}

// NewStructural builds a structural classifier over the target genome.
func NewStructural(cfg config.Thresholds, g genome.Provider) *Structural {
	return &Structural{cfg: cfg, genome: g}
}

// modeView returns the transcript to use for coordinate math in the given
// mode. CDS mode always works on the frame-trimmed CDS view; skipping that
// trim silently corrupts every codon-based computation downstream.
func modeView(tx *gene.Transcript, mode gene.AlignmentMode) *gene.Transcript {
	if mode == gene.ModeCDS {
		return tx.CDSFrameView()
	}
	return tx
}

// toChromosome returns the mode-appropriate transcript-to-genome conversion.
func toChromosome(view *gene.Transcript, mode gene.AlignmentMode) func(int) (int, bool) {
	if mode == gene.ModeCDS {
		return view.CDSToChromosome
	}
	return view.MRNAToChromosome
}

// Metrics computes the per-transcript metric records for one triple.
func (s *Structural) Metrics(ref, tx *gene.Transcript, rec *psl.Record, mode gene.AlignmentMode, biotype string) []Record {
	var out []Record
	emit := func(classifier string, value float64) {
		out = append(out, Metric(ref.GeneID, ref.ID, tx.ID, classifier, value))
	}
	if biotype == BiotypeProteinCoding {
		startOK, stopOK := startStopStat(tx)
		emit("StartCodon", boolValue(startOK))
		emit("StopCodon", boolValue(stopOK))
	}
	emit("AlnCoverage", rec.Coverage())
	emit("AlnIdentity", rec.Identity())
	emit("PercentUnknownBases", rec.PercentN())
	emit("Badness", rec.Badness())
	emit("PercentOriginalIntrons", s.PercentOriginalIntrons(ref, tx, rec, mode))
	emit("PercentOriginalExons", s.PercentOriginalExons(ref, rec, mode))
	return out
}

// Evaluations computes the located-defect records for one triple.
func (s *Structural) Evaluations(ref, tx *gene.Transcript, rec *psl.Record, mode gene.AlignmentMode, biotype string) ([]Record, error) {
	out, err := s.FindIndels(ref, tx, rec, mode)
	if err != nil {
		return nil, err
	}
	gained, err := s.GainedExons(ref, tx, rec, mode)
	if err != nil {
		return nil, err
	}
	out = append(out, gained...)
	if biotype == BiotypeProteinCoding && tx.CDSSize() > s.cfg.MinCDSSize {
		stop, err := s.InFrameStop(tx)
		if err != nil {
			return nil, err
		}
		if stop != nil {
			out = append(out, Evaluation(ref.GeneID, ref.ID, tx.ID, "InFrameStop", *stop))
		}
	}
	return out, nil
}

// startStopStat reads the completeness stats, swapping on the minus strand
// so StartCodon always describes the translation start.
func startStopStat(tx *gene.Transcript) (startOK, stopOK bool) {
	startOK = tx.CdsStartStat == gene.StatComplete
	stopOK = tx.CdsEndStat == gene.StatComplete
	if tx.Strand == gene.Minus {
		startOK, stopOK = stopOK, startOK
	}
	return startOK, stopOK
}

// FindIndels walks the alignment gaps between adjacent block pairs.
// A query-side gap is an insertion in the target sequence:
//
//	ref: ATGC--ATGC
//	tgt: ATGCGGATGC
//
// and a target-side gap a deletion. Each gap is translated to target-genome
// chromosome coordinates and categorized as Coding / CodingMult3 /
// NonCoding by thick-boundary containment and gap length mod 3. A gap on
// both sides simultaneously never occurs in valid aligner output and is
// reported as a data-corruption error.
func (s *Structural) FindIndels(ref, tx *gene.Transcript, rec *psl.Record, mode gene.AlignmentMode) ([]Record, error) {
	view := modeView(tx, mode)
	convert := toChromosome(view, mode)

	var out []Record
	for _, g := range rec.Gaps() {
		qGap, tGap := g.QueryGap(), g.TargetGap()
		if qGap > 0 && tGap > 0 {
			return nil, fmt.Errorf("alignment %s: simultaneous query and target gap at query %d", rec.QName, g.QueryStart)
		}
		if qGap == 0 && tGap == 0 {
			return nil, fmt.Errorf("alignment %s: adjacent blocks with no gap at query %d", rec.QName, g.QueryStart)
		}
		var rcd *Record
		var err error
		if qGap > 0 {
			rcd, err = s.parseIndel(ref, tx, view, convert, mode, g.QueryStart, g.QueryEnd, qGap, "Insertion")
		} else {
			rcd, err = s.parseIndel(ref, tx, view, convert, mode, g.QueryEnd, g.QueryEnd, tGap, "Deletion")
		}
		if err != nil {
			return nil, err
		}
		if rcd != nil {
			out = append(out, *rcd)
		}
	}
	return out, nil
}

// parseIndel converts one gap into an evaluation record. The gap endpoints
// are target-transcript coordinates; on the minus strand the resolved
// genomic endpoints are swapped so the interval is genome-increasing. An
// endpoint that maps to nothing is silently dropped in CDS mode (a gap at
// the UTR/CDS boundary); in mRNA mode every transcript position must map.
func (s *Structural) parseIndel(ref, tx, view *gene.Transcript, convert func(int) (int, bool),
	mode gene.AlignmentMode, left, right, gapLen int, gapType string) (*Record, error) {
	leftChrom, okL := convert(left)
	rightChrom, okR := convert(right)
	if !okL || !okR {
		if mode == gene.ModeCDS {
			return nil, nil
		}
		return nil, fmt.Errorf("transcript %s: mRNA position %d or %d has no genomic coordinate", tx.ID, left, right)
	}
	if tx.Strand == gene.Minus {
		leftChrom, rightChrom = rightChrom, leftChrom
	}
	if rightChrom < leftChrom {
		return nil, fmt.Errorf("transcript %s: resolved indel interval %d-%d is inverted", tx.ID, leftChrom, rightChrom)
	}
	interval := gene.ChromosomeInterval{Chromosome: tx.Chromosome, Start: leftChrom, Stop: rightChrom, Strand: tx.Strand}

	category := "NonCoding"
	if interval.Start >= tx.ThickStart && interval.Stop <= tx.ThickStop {
		if gapLen%3 == 0 {
			category = "CodingMult3"
		} else {
			category = "Coding"
		}
	}
	rcd := Evaluation(ref.GeneID, ref.ID, tx.ID, category+gapType, interval)
	return &rcd, nil
}

// InFrameStop scans the target's in-frame CDS three bases at a time and
// returns the genomic interval of the first stop codon, or nil. Callers
// gate this on protein-coding biotype and a minimum CDS size.
func (s *Structural) InFrameStop(tx *gene.Transcript) (*gene.ChromosomeInterval, error) {
	seq, err := tx.CDS(s.genome, true)
	if err != nil {
		return nil, err
	}
	view := tx.CDSFrameView()
	var found *gene.ChromosomeInterval
	var convErr error
	gene.Codons(seq, func(pos int, codon string) bool {
		if !gene.IsStopCodon(codon) {
			return true
		}
		start, okS := view.CDSToChromosome(pos)
		stop, okE := view.CDSToChromosome(pos + 2)
		if !okS || !okE {
			convErr = fmt.Errorf("transcript %s: CDS position %d has no genomic coordinate", tx.ID, pos)
			return false
		}
		if tx.Strand == gene.Minus {
			start, stop = stop, start
		}
		i := gene.ChromosomeInterval{Chromosome: tx.Chromosome, Start: start, Stop: stop + 1, Strand: tx.Strand}
		found = &i
		return false
	})
	return found, convErr
}

// PercentOriginalIntrons reports how many reference introns have a target
// intron boundary within the fuzz distance once both are expressed in
// alignment coordinates. Returns NaN ("not applicable") for reference
// transcripts with no introns, or when CDS filtering removed every target
// boundary.
func (s *Structural) PercentOriginalIntrons(ref, tx *gene.Transcript, rec *psl.Record, mode gene.AlignmentMode) float64 {
	if len(ref.Introns()) == 0 {
		return math.NaN()
	}
	refIntrons := intronCoordinates(ref, mode)
	if len(refIntrons) == 0 {
		return math.NaN()
	}

	// The alignment is target-referenced, so target boundaries cross it via
	// QueryToTarget to land in the same space as the reference boundaries.
	var tgtIntrons []int
	for _, boundary := range intronCoordinates(tx, mode) {
		if p, ok := rec.QueryToTarget(boundary); ok {
			tgtIntrons = append(tgtIntrons, p)
		}
	}
	if len(tgtIntrons) == 0 {
		return math.NaN()
	}
	sort.Ints(tgtIntrons)

	original := 0
	for _, refIntron := range refIntrons {
		closest := findClosest(tgtIntrons, refIntron)
		if closest-s.cfg.FuzzDistance < refIntron && refIntron < closest+s.cfg.FuzzDistance {
			original++
		}
	}
	return float64(original) / float64(len(refIntrons))
}

// PercentOriginalExons reports the fraction of reference exons still
// explained by the alignment, counting per-base coverage through
// TargetToQuery and requiring ExonCoverageCutoff of each exon.
func (s *Structural) PercentOriginalExons(ref *gene.Transcript, rec *psl.Record, mode gene.AlignmentMode) float64 {
	exons := exonCoordinates(ref, mode)
	if len(exons) == 0 {
		return math.NaN()
	}
	original := 0
	for _, exon := range exons {
		present := 0
		for i := exon.Start; i < exon.Stop; i++ {
			if _, ok := rec.TargetToQuery(i); ok {
				present++
			}
		}
		if float64(present)/float64(exon.Len()) >= s.cfg.ExonCoverageCutoff {
			original++
		}
	}
	return float64(original) / float64(len(exons))
}

// GainedExons is the symmetric check over the target transcript's exons: an
// exon whose bases are mostly unexplained by the alignment is novel,
// possibly spurious, target-only structure. Each gained exon is reported as
// an evaluation record spanning the exon's genomic interval.
func (s *Structural) GainedExons(ref, tx *gene.Transcript, rec *psl.Record, mode gene.AlignmentMode) ([]Record, error) {
	view := modeView(tx, mode)
	var out []Record
	for idx, exon := range view.Exons {
		converted, ok := convertExon(view, exon)
		if !ok {
			return nil, fmt.Errorf("transcript %s: exon %d does not convert to %s coordinates", tx.ID, idx, mode)
		}
		unexplained := 0
		for i := converted.Start; i < converted.Stop; i++ {
			if _, ok := rec.QueryToTarget(i); !ok {
				unexplained++
			}
		}
		if float64(unexplained)/float64(converted.Len()) >= s.cfg.ExonCoverageCutoff {
			out = append(out, Evaluation(ref.GeneID, ref.ID, tx.ID, "ExonGain",
				gene.ChromosomeInterval{Chromosome: tx.Chromosome, Start: exon.Start, Stop: exon.Stop, Strand: tx.Strand}))
		}
	}
	return out, nil
}

// intronCoordinates converts each intron boundary (the genomic start of
// every exon after the first) into mRNA or CDS coordinate space. Boundaries
// that fall in wholly non-coding exons under CDS mode drop out.
func intronCoordinates(tx *gene.Transcript, mode gene.AlignmentMode) []int {
	view := modeView(tx, mode)
	var coords []int
	for i := 1; i < len(view.Exons); i++ {
		var c int
		var ok bool
		if mode == gene.ModeCDS {
			c, ok = view.ChromosomeToCDS(view.Exons[i].Start)
		} else {
			c, ok = view.ChromosomeToMRNA(view.Exons[i].Start)
		}
		if ok {
			coords = append(coords, c)
		}
	}
	return coords
}

// exonCoordinates converts a transcript's exons to mRNA/CDS-space intervals,
// swapping endpoints on the minus strand so each interval is increasing.
func exonCoordinates(tx *gene.Transcript, mode gene.AlignmentMode) []gene.ChromosomeInterval {
	view := modeView(tx, mode)
	var out []gene.ChromosomeInterval
	for _, exon := range view.Exons {
		if converted, ok := convertExon(view, exon); ok {
			out = append(out, converted)
		}
	}
	return out
}

// convertExon maps one genomic exon of view into view's own transcript
// coordinate space. For a frame view the mRNA space is the CDS space, so a
// single conversion covers both modes.
func convertExon(view *gene.Transcript, exon gene.ChromosomeInterval) (gene.ChromosomeInterval, bool) {
	start, okS := view.ChromosomeToMRNA(exon.Start)
	stop, okE := view.ChromosomeToMRNA(exon.Stop - 1)
	if !okS || !okE {
		return gene.ChromosomeInterval{}, false
	}
	if view.Strand == gene.Minus {
		start, stop = stop, start
	}
	return gene.ChromosomeInterval{Start: start, Stop: stop + 1, Strand: gene.NoStrand}, true
}

// findClosest returns the element of the sorted list numerically closest to
// query, by bisection.
func findClosest(sorted []int, query int) int {
	pos := sort.SearchInts(sorted, query)
	if pos == 0 {
		return sorted[0]
	}
	if pos == len(sorted) {
		return sorted[len(sorted)-1]
	}
	before, after := sorted[pos-1], sorted[pos]
	if after-query < query-before {
		return after
	}
	return before
}
