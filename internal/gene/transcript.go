package gene

import (
	"fmt"
	"strings"
)

// CompletenessStat mirrors the genePred cdsStartStat/cdsEndStat field and
// records whether a CDS end is believed to be complete.
type CompletenessStat string

const (
	StatNone       CompletenessStat = "none"
	StatUnknown    CompletenessStat = "unk"
	StatIncomplete CompletenessStat = "incmpl"
	StatComplete   CompletenessStat = "cmpl"
)

// SequenceSource answers plus-strand genomic sequence queries. Coordinates
// are 0-based half-open. Implemented by genome.Memory.
type SequenceSource interface {
	Sequence(chrom string, start, stop int) (string, error)
}

// Transcript is one gene-structure record. It is constructed once from an
// external structural record and never mutated; derived coordinate views
// (see CDSFrameView) are produced as new values.
type Transcript struct {
	ID         string
	GeneID     string
	Chromosome string
	Strand     Strand

	// Exons are genomic intervals in ascending order regardless of strand.
	Exons []ChromosomeInterval

	// ThickStart/ThickStop bound the coding region in genomic coordinates.
	// ThickStart == ThickStop for non-coding transcripts.
	ThickStart int
	ThickStop  int

	CdsStartStat CompletenessStat
	CdsEndStat   CompletenessStat

	// Offset is the reading-frame offset of the first codon: the number of
	// bases to discard from the 5' end of the CDS to reach frame 0.
	Offset int
}

// Start returns the genomic start of the transcript span.
func (t *Transcript) Start() int {
	if len(t.Exons) == 0 {
		return 0
	}
	return t.Exons[0].Start
}

// Stop returns the genomic stop of the transcript span.
func (t *Transcript) Stop() int {
	if len(t.Exons) == 0 {
		return 0
	}
	return t.Exons[len(t.Exons)-1].Stop
}

// Interval returns the genomic span of the transcript.
func (t *Transcript) Interval() ChromosomeInterval {
	return ChromosomeInterval{Chromosome: t.Chromosome, Start: t.Start(), Stop: t.Stop(), Strand: t.Strand}
}

// MRNASize returns the spliced transcript length.
func (t *Transcript) MRNASize() int {
	size := 0
	for _, e := range t.Exons {
		size += e.Len()
	}
	return size
}

// CDSSize returns the number of coding bases (exon bases within the thick
// bounds).
func (t *Transcript) CDSSize() int {
	size := 0
	for _, e := range t.Exons {
		start := max(e.Start, t.ThickStart)
		stop := min(e.Stop, t.ThickStop)
		if stop > start {
			size += stop - start
		}
	}
	return size
}

// IsCoding reports whether the transcript has a coding region.
func (t *Transcript) IsCoding() bool { return t.ThickStop > t.ThickStart }

// Introns returns the gaps between consecutive exons in ascending genomic
// order. Single-exon transcripts have none.
func (t *Transcript) Introns() []ChromosomeInterval {
	if len(t.Exons) < 2 {
		return nil
	}
	introns := make([]ChromosomeInterval, 0, len(t.Exons)-1)
	for i := 1; i < len(t.Exons); i++ {
		introns = append(introns, ChromosomeInterval{
			Chromosome: t.Chromosome,
			Start:      t.Exons[i-1].Stop,
			Stop:       t.Exons[i].Start,
			Strand:     t.Strand,
		})
	}
	return introns
}

// findExon returns the index of the exon containing pos, or -1. Exons are
// ascending, so a plain binary search applies.
func (t *Transcript) findExon(pos int) int {
	lo, hi := 0, len(t.Exons)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		e := t.Exons[mid]
		switch {
		case pos < e.Start:
			hi = mid - 1
		case pos >= e.Stop:
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// ChromosomeToMRNA converts a genomic position to a spliced mRNA position.
// mRNA position 0 is the 5' end of the transcript, which on the minus
// strand is the highest genomic coordinate. The second return is false when
// pos falls outside every exon.
func (t *Transcript) ChromosomeToMRNA(pos int) (int, bool) {
	idx := t.findExon(pos)
	if idx < 0 {
		return 0, false
	}
	offset := pos - t.Exons[idx].Start
	for i := 0; i < idx; i++ {
		offset += t.Exons[i].Len()
	}
	if t.Strand == Minus {
		offset = t.MRNASize() - 1 - offset
	}
	return offset, true
}

// MRNAToChromosome converts a spliced mRNA position back to a genomic
// position. The second return is false when pos is outside [0, MRNASize).
func (t *Transcript) MRNAToChromosome(pos int) (int, bool) {
	size := t.MRNASize()
	if pos < 0 || pos >= size {
		return 0, false
	}
	if t.Strand == Minus {
		pos = size - 1 - pos
	}
	for _, e := range t.Exons {
		if pos < e.Len() {
			return e.Start + pos, true
		}
		pos -= e.Len()
	}
	return 0, false
}

// cdsStartMRNA returns the mRNA coordinate of the first CDS base (the 5'
// thick end, which is ThickStop-1 on the minus strand).
func (t *Transcript) cdsStartMRNA() (int, bool) {
	if !t.IsCoding() {
		return 0, false
	}
	if t.Strand == Minus {
		return t.ChromosomeToMRNA(t.ThickStop - 1)
	}
	return t.ChromosomeToMRNA(t.ThickStart)
}

// ChromosomeToCDS converts a genomic position to a CDS position. The second
// return is false when pos lies outside the thick bounds or outside every
// exon. Callers performing CDS-mode classification must convert the
// transcript with CDSFrameView first when Offset != 0.
func (t *Transcript) ChromosomeToCDS(pos int) (int, bool) {
	if pos < t.ThickStart || pos >= t.ThickStop {
		return 0, false
	}
	m, ok := t.ChromosomeToMRNA(pos)
	if !ok {
		return 0, false
	}
	start, ok := t.cdsStartMRNA()
	if !ok {
		return 0, false
	}
	cds := m - start
	if cds < 0 || cds >= t.CDSSize() {
		return 0, false
	}
	return cds, true
}

// CDSToChromosome converts a CDS position back to a genomic position. The
// second return is false when pos is outside [0, CDSSize).
func (t *Transcript) CDSToChromosome(pos int) (int, bool) {
	if pos < 0 || pos >= t.CDSSize() {
		return 0, false
	}
	start, ok := t.cdsStartMRNA()
	if !ok {
		return 0, false
	}
	return t.MRNAToChromosome(pos + start)
}

// CDSFrameView returns a derived transcript covering only the coding
// region, trimmed so the first base is in frame 0 and the length is an
// exact multiple of 3: Offset bases come off the 5' thick end and
// (CDSSize-Offset) mod 3 off the 3' end. All CDS-mode coordinate math and
// intron/exon extraction must run on this view, never on the raw thick
// bounds: an off-by-frame error silently corrupts every downstream codon
// computation. On the view, mRNA and CDS coordinate spaces coincide. The
// receiver is returned unchanged when it is already a pure in-frame CDS.
func (t *Transcript) CDSFrameView() *Transcript {
	mod3 := (t.CDSSize() - t.Offset) % 3
	if t.Offset == 0 && mod3 == 0 && t.ThickStart == t.Start() && t.ThickStop == t.Stop() {
		return t
	}
	var newStart, newStop int
	if t.Strand == Minus {
		newStart, newStop = t.ThickStart+mod3, t.ThickStop-t.Offset
	} else {
		newStart, newStop = t.ThickStart+t.Offset, t.ThickStop-mod3
	}
	var exons []ChromosomeInterval
	for _, e := range t.Exons {
		start := max(e.Start, newStart)
		stop := min(e.Stop, newStop)
		if stop > start {
			exons = append(exons, ChromosomeInterval{Chromosome: e.Chromosome, Start: start, Stop: stop, Strand: e.Strand})
		}
	}
	return &Transcript{
		ID:           t.ID,
		GeneID:       t.GeneID,
		Chromosome:   t.Chromosome,
		Strand:       t.Strand,
		Exons:        exons,
		ThickStart:   newStart,
		ThickStop:    newStop,
		CdsStartStat: t.CdsStartStat,
		CdsEndStat:   t.CdsEndStat,
	}
}

// MRNA returns the spliced transcript sequence, reverse complemented on the
// minus strand.
func (t *Transcript) MRNA(src SequenceSource) (string, error) {
	var b strings.Builder
	b.Grow(t.MRNASize())
	for _, e := range t.Exons {
		seq, err := src.Sequence(t.Chromosome, e.Start, e.Stop)
		if err != nil {
			return "", fmt.Errorf("transcript %s: %w", t.ID, err)
		}
		b.WriteString(seq)
	}
	seq := b.String()
	if t.Strand == Minus {
		seq = ReverseComplement(seq)
	}
	return strings.ToUpper(seq), nil
}

// CDS returns the coding sequence. With inFrame set, the sequence is
// extracted from the CDS-frame view so it starts in frame 0 and its length
// is a multiple of 3.
func (t *Transcript) CDS(src SequenceSource, inFrame bool) (string, error) {
	if !t.IsCoding() {
		return "", nil
	}
	view := t
	if inFrame {
		view = t.CDSFrameView()
	}
	var b strings.Builder
	for _, e := range view.Exons {
		start := max(e.Start, view.ThickStart)
		stop := min(e.Stop, view.ThickStop)
		if stop <= start {
			continue
		}
		seq, err := src.Sequence(view.Chromosome, start, stop)
		if err != nil {
			return "", fmt.Errorf("transcript %s: %w", t.ID, err)
		}
		b.WriteString(seq)
	}
	seq := b.String()
	if view.Strand == Minus {
		seq = ReverseComplement(seq)
	}
	return strings.ToUpper(seq), nil
}
