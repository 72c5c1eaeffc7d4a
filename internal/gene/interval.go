// Package gene provides the transcript structural model and the coordinate
// spaces used for alignment classification: genomic chromosome positions,
// spliced mRNA positions, and frame-trimmed CDS positions.
package gene

import "fmt"

// Strand is the genomic strand of a feature.
type Strand byte

const (
	// Plus is the forward strand.
	Plus Strand = '+'
	// Minus is the reverse strand.
	Minus Strand = '-'
	// NoStrand marks strandless intervals (e.g. converted coordinates).
	NoStrand Strand = '.'
)

// String returns the strand as "+", "-" or ".".
func (s Strand) String() string { return string(byte(s)) }

// ChromosomeInterval is a half-open genomic interval [Start, Stop).
// It is an immutable value type, ordered by (Chromosome, Start, Stop).
type ChromosomeInterval struct {
	Chromosome string
	Start      int
	Stop       int
	Strand     Strand
}

// NewChromosomeInterval builds an interval, panicking on Start > Stop since
// that always indicates corrupted coordinate math upstream.
func NewChromosomeInterval(chrom string, start, stop int, strand Strand) ChromosomeInterval {
	if start > stop {
		panic(fmt.Sprintf("interval %s:%d-%d: start > stop", chrom, start, stop))
	}
	return ChromosomeInterval{Chromosome: chrom, Start: start, Stop: stop, Strand: strand}
}

// Len returns the number of bases covered by the interval.
func (i ChromosomeInterval) Len() int { return i.Stop - i.Start }

// Contains reports whether pos falls inside the interval.
func (i ChromosomeInterval) Contains(pos int) bool { return pos >= i.Start && pos < i.Stop }

// Subset reports whether other lies entirely within i on the same chromosome.
func (i ChromosomeInterval) Subset(other ChromosomeInterval) bool {
	return i.Chromosome == other.Chromosome && other.Start >= i.Start && other.Stop <= i.Stop
}

// Compare orders intervals by (Chromosome, Start, Stop). It returns a
// negative value when i sorts before other, zero when equal.
func (i ChromosomeInterval) Compare(other ChromosomeInterval) int {
	switch {
	case i.Chromosome < other.Chromosome:
		return -1
	case i.Chromosome > other.Chromosome:
		return 1
	case i.Start != other.Start:
		return i.Start - other.Start
	default:
		return i.Stop - other.Stop
	}
}

// String formats the interval as chrom:start-stop(strand).
func (i ChromosomeInterval) String() string {
	return fmt.Sprintf("%s:%d-%d(%s)", i.Chromosome, i.Start, i.Stop, i.Strand)
}
