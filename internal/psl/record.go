// Package psl models block-based base-level alignment records between a
// query sequence (a target transcript's mRNA or CDS) and a target sequence
// (the parent transcript's mRNA or CDS), with position mapping across the
// alignment and derived quality metrics.
package psl

import (
	"fmt"
	"math"
	"sort"
)

// Record is one PSL-like alignment record. Blocks are non-overlapping and
// strictly increasing in both query and target coordinates. All records
// handled here are plus-orientation ("+" for mRNA alignments, "++" for
// translated CDS alignments); other strands are filtered out upstream.
type Record struct {
	Matches    int
	MisMatches int
	RepMatches int
	NCount     int

	QNumInsert  int
	QBaseInsert int
	TNumInsert  int
	TBaseInsert int

	Strand string

	QName  string
	QSize  int
	QStart int
	QEnd   int

	TName  string
	TSize  int
	TStart int
	TEnd   int

	BlockCount int
	BlockSizes []int
	QStarts    []int
	TStarts    []int
}

// Coverage is the fraction of query bases involved in the alignment.
func (r *Record) Coverage() float64 {
	return ratio(r.Matches+r.MisMatches+r.RepMatches+r.NCount, r.QSize)
}

// Identity is the fraction of aligned bases that match.
func (r *Record) Identity() float64 {
	return ratio(r.Matches+r.RepMatches, r.Matches+r.RepMatches+r.MisMatches)
}

// PercentN is the fraction of query bases that are unknown.
func (r *Record) PercentN() float64 {
	return ratio(r.NCount, r.QSize)
}

// Badness scores how bad the alignment is, combining mismatches and gap
// penalties normalized by the aligned span, after the pslCDnaFilter
// formulation. Lower is better; the result is clamped to [0, 1].
func (r *Record) Badness() float64 {
	aligned := r.Matches + r.MisMatches + r.RepMatches
	if aligned == 0 {
		return math.NaN()
	}
	qSpan := r.QEnd - r.QStart
	tSpan := r.TEnd - r.TStart
	sizeDif := qSpan - tSpan
	if sizeDif < 0 {
		sizeDif = -sizeDif
	}
	penalty := float64(r.MisMatches+r.QNumInsert) + math.Round(3*math.Log(1+float64(sizeDif)))
	return math.Min(penalty/float64(aligned), 1)
}

// QueryToTarget maps a query position to the corresponding target position.
// The second return is false when pos falls in a gap or outside the
// alignment span. O(log B) by binary search over the block list.
func (r *Record) QueryToTarget(pos int) (int, bool) {
	i := sort.Search(len(r.QStarts), func(i int) bool { return r.QStarts[i] > pos })
	if i == 0 {
		return 0, false
	}
	i--
	if off := pos - r.QStarts[i]; off < r.BlockSizes[i] {
		return r.TStarts[i] + off, true
	}
	return 0, false
}

// TargetToQuery maps a target position to the corresponding query position.
// The second return is false when pos falls in a gap or outside the
// alignment span.
func (r *Record) TargetToQuery(pos int) (int, bool) {
	i := sort.Search(len(r.TStarts), func(i int) bool { return r.TStarts[i] > pos })
	if i == 0 {
		return 0, false
	}
	i--
	if off := pos - r.TStarts[i]; off < r.BlockSizes[i] {
		return r.QStarts[i] + off, true
	}
	return 0, false
}

// BlockGap describes the gap between two adjacent alignment blocks.
// QueryStart/QueryEnd span the unaligned query bases (end of the previous
// block to start of the next); TargetStart/TargetEnd likewise for the
// target side. A zero-length side means the gap is one-sided.
type BlockGap struct {
	QueryStart  int
	QueryEnd    int
	TargetStart int
	TargetEnd   int
}

// QueryGap returns the number of unaligned query bases in the gap.
func (g BlockGap) QueryGap() int { return g.QueryEnd - g.QueryStart }

// TargetGap returns the number of unaligned target bases in the gap.
func (g BlockGap) TargetGap() int { return g.TargetEnd - g.TargetStart }

// Gaps returns the gaps between all adjacent block pairs in order. Used by
// indel detection.
func (r *Record) Gaps() []BlockGap {
	if len(r.BlockSizes) < 2 {
		return nil
	}
	gaps := make([]BlockGap, 0, len(r.BlockSizes)-1)
	for i := 1; i < len(r.BlockSizes); i++ {
		gaps = append(gaps, BlockGap{
			QueryStart:  r.QStarts[i-1] + r.BlockSizes[i-1],
			QueryEnd:    r.QStarts[i],
			TargetStart: r.TStarts[i-1] + r.BlockSizes[i-1],
			TargetEnd:   r.TStarts[i],
		})
	}
	return gaps
}

// Validate checks the structural invariants of the record. Records that
// fail validation are discarded by callers rather than propagated.
func (r *Record) Validate() error {
	if len(r.BlockSizes) != r.BlockCount || len(r.QStarts) != r.BlockCount || len(r.TStarts) != r.BlockCount {
		return fmt.Errorf("psl %s/%s: block list lengths disagree with blockCount %d", r.QName, r.TName, r.BlockCount)
	}
	if r.Strand != "+" && r.Strand != "++" {
		return fmt.Errorf("psl %s/%s: unsupported strand %q", r.QName, r.TName, r.Strand)
	}
	total := 0
	for i := 0; i < r.BlockCount; i++ {
		if r.BlockSizes[i] <= 0 {
			return fmt.Errorf("psl %s/%s: block %d has size %d", r.QName, r.TName, i, r.BlockSizes[i])
		}
		total += r.BlockSizes[i]
		if i == 0 {
			continue
		}
		if r.QStarts[i] < r.QStarts[i-1]+r.BlockSizes[i-1] || r.TStarts[i] < r.TStarts[i-1]+r.BlockSizes[i-1] {
			return fmt.Errorf("psl %s/%s: blocks %d and %d overlap or are unordered", r.QName, r.TName, i-1, i)
		}
	}
	if total > r.QSize || total > r.TSize {
		return fmt.Errorf("psl %s/%s: %d aligned bases exceed sequence size", r.QName, r.TName, total)
	}
	if r.QEnd > r.QSize || r.TEnd > r.TSize || r.QStart > r.QEnd || r.TStart > r.TEnd {
		return fmt.Errorf("psl %s/%s: span bounds out of range", r.QName, r.TName)
	}
	return nil
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return math.NaN()
	}
	return float64(numerator) / float64(denominator)
}
