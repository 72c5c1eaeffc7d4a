// Package align drives the external aligner: it lazily generates the
// (target, reference) sequence pairs a run needs, packs them into bins,
// invokes blat per pair, validates the output with pslCheck and keeps the
// best same-strand record for each pair.
package align

import (
	"iter"
	"sort"

	"go.uber.org/zap"

	"github.com/txeval/txeval/internal/chunk"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/genome"
)

// PairSource generates the sequence pairs to align for one source method.
// Only protein_coding transcripts are aligned. Transcript ids that reduce to
// a reference transcript pair with exactly that transcript; augCGP
// predictions carry no source transcript and fan out over every
// protein_coding transcript of their assigned gene.
type PairSource struct {
	RefTranscripts    map[string]*gene.Transcript
	TargetTranscripts map[string]*gene.Transcript
	Biotypes          map[string]string
	GeneTranscripts   map[string][]string
	RefGenome         genome.Provider
	TargetGenome      genome.Provider

	// MinSize is the smallest sequence length worth aligning; pairs with
	// MinSize or fewer bases on either side are skipped.
	MinSize int

	Logger *zap.Logger
}

func (s *PairSource) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Pairs lazily yields the sequence pairs for mode, in ascending alignment
// id order. Pairs whose sequences cannot be fetched are logged and skipped;
// a skipped pair emits nothing downstream.
func (s *PairSource) Pairs(mode gene.AlignmentMode) iter.Seq[chunk.SeqPair] {
	ids := make([]string, 0, len(s.TargetTranscripts))
	for id := range s.TargetTranscripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return func(yield func(chunk.SeqPair) bool) {
		for _, id := range ids {
			tx := s.TargetTranscripts[id]
			for _, ref := range s.references(tx) {
				pair, ok := s.buildPair(tx, ref, mode)
				if !ok {
					continue
				}
				if !yield(pair) {
					return
				}
			}
		}
	}
}

// references resolves the reference transcripts a target transcript should
// be aligned against.
func (s *PairSource) references(tx *gene.Transcript) []*gene.Transcript {
	base, method, err := gene.ParseAlignmentID(tx.ID)
	if err != nil {
		s.logger().Warn("unrecognized alignment id", zap.String("alignmentId", tx.ID), zap.Error(err))
		return nil
	}
	if method != gene.SourceAugCGP {
		if s.Biotypes[base] != "protein_coding" {
			return nil
		}
		ref, ok := s.RefTranscripts[base]
		if !ok {
			s.logger().Warn("no reference transcript for alignment",
				zap.String("alignmentId", tx.ID), zap.String("transcriptId", base))
			return nil
		}
		return []*gene.Transcript{ref}
	}

	txIDs := s.GeneTranscripts[tx.GeneID]
	refs := make([]*gene.Transcript, 0, len(txIDs))
	for _, txID := range txIDs {
		if s.Biotypes[txID] != "protein_coding" {
			continue
		}
		if ref, ok := s.RefTranscripts[txID]; ok {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

func (s *PairSource) buildPair(tx, ref *gene.Transcript, mode gene.AlignmentMode) (chunk.SeqPair, bool) {
	var seq, refSeq string
	var err error
	switch mode {
	case gene.ModeCDS:
		if tx.CDSSize() <= s.MinSize || ref.CDSSize() <= s.MinSize {
			return chunk.SeqPair{}, false
		}
		seq, err = tx.CDS(s.TargetGenome, true)
		if err == nil {
			refSeq, err = ref.CDS(s.RefGenome, true)
		}
	default:
		seq, err = tx.MRNA(s.TargetGenome)
		if err == nil {
			refSeq, err = ref.MRNA(s.RefGenome)
		}
	}
	if err != nil {
		s.logger().Warn("sequence fetch failed",
			zap.String("alignmentId", tx.ID), zap.String("transcriptId", ref.ID), zap.Error(err))
		return chunk.SeqPair{}, false
	}
	if len(seq) <= s.MinSize || len(refSeq) <= s.MinSize {
		return chunk.SeqPair{}, false
	}
	return chunk.SeqPair{AlnID: tx.ID, Seq: seq, RefID: ref.ID, RefSeq: refSeq}, true
}
