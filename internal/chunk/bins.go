// Package chunk splits large transcript workloads into bounded parallel
// work units and provides the fan-out/fan-in machinery that runs them:
// bin packing for sequence-alignment chunks, fixed-count chunking for
// classification, and a worker pool with explicit result handles.
package chunk

import "iter"

// SeqPair is one (target, reference) sequence pair queued for external
// alignment.
type SeqPair struct {
	AlnID  string
	Seq    string
	RefID  string
	RefSeq string
}

// SizedByTarget reports the bin-packing weight of the pair: the target
// sequence length, since that is what dominates aligner cost.
func (p SeqPair) SizedByTarget() int { return len(p.Seq) }

// GroupSequencePairs greedily packs sequence pairs into bins, starting a
// new bin once the accumulated base count reaches numBases or the pair
// count reaches maxSeqs. The item that tips a bin over starts the next bin,
// so a bin is only yielded once the following item has been seen. The input
// may be produced lazily; memory stays bounded by one bin.
func GroupSequencePairs(pairs iter.Seq[SeqPair], numBases, maxSeqs int) [][]SeqPair {
	var bins [][]SeqPair
	var bin []SeqPair
	baseCount := 0
	for p := range pairs {
		if len(bin) == 0 {
			bin = []SeqPair{p}
			baseCount = len(p.Seq)
			continue
		}
		baseCount += len(p.Seq)
		if baseCount >= numBases || len(bin)+1 >= maxSeqs {
			bins = append(bins, bin)
			bin = []SeqPair{p}
			baseCount = len(p.Seq)
		} else {
			bin = append(bin, p)
		}
	}
	if len(bin) > 0 {
		bins = append(bins, bin)
	}
	return bins
}

// Fixed partitions items into chunks of at most size elements, preserving
// order.
func Fixed[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
