// Package config holds the run-wide thresholds shared by the classifiers
// and the chunk scheduler. The struct is built once per run and passed
// explicitly; nothing reads thresholds from package globals.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Thresholds collects every tunable cutoff used by classification and
// chunking.
type Thresholds struct {
	// FuzzDistance is how far (in mRNA/CDS bases, counted on both sides) a
	// target intron boundary may sit from a reference boundary and still
	// count as the same intron.
	FuzzDistance int `mapstructure:"fuzz_distance" yaml:"fuzz_distance"`

	// ExonCoverageCutoff is the fraction of an exon's bases that must be
	// explained by the alignment for the exon to count as present.
	ExonCoverageCutoff float64 `mapstructure:"exon_coverage_cutoff" yaml:"exon_coverage_cutoff"`

	// LongSpanBases flags genomic spans at or above this size as likely
	// paralogy-driven mis-alignments, and excludes merged gene bodies of
	// this size from synteny calculations.
	LongSpanBases int `mapstructure:"long_span_bases" yaml:"long_span_bases"`

	// MinCDSSize gates in-frame stop evaluation to avoid noise on tiny,
	// likely spurious ORFs.
	MinCDSSize int `mapstructure:"min_cds_size" yaml:"min_cds_size"`

	// SyntenyNeighbors is the number of neighboring genes inspected on each
	// side when scoring synteny.
	SyntenyNeighbors int `mapstructure:"synteny_neighbors" yaml:"synteny_neighbors"`

	// ChunkBases and ChunkMaxSeqs bound one sequence-alignment bin.
	ChunkBases   int `mapstructure:"chunk_bases" yaml:"chunk_bases"`
	ChunkMaxSeqs int `mapstructure:"chunk_max_seqs" yaml:"chunk_max_seqs"`

	// ClassifyChunkSize is the fixed number of transcript triples per
	// classification work unit.
	ClassifyChunkSize int `mapstructure:"classify_chunk_size" yaml:"classify_chunk_size"`

	// Workers bounds parallel work-unit execution. Zero means NumCPU.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// Default returns the standard thresholds.
func Default() Thresholds {
	return Thresholds{
		FuzzDistance:       7,
		ExonCoverageCutoff: 0.8,
		LongSpanBases:      3_000_000,
		MinCDSSize:         50,
		SyntenyNeighbors:   5,
		ChunkBases:         1_000_000,
		ChunkMaxSeqs:       1000,
		ClassifyChunkSize:  500,
	}
}

// Load reads threshold overrides from viper (config file or flags bound by
// the CLI) on top of the defaults.
func Load(v *viper.Viper) (Thresholds, error) {
	t := Default()
	if err := v.UnmarshalKey("thresholds", &t); err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// Validate rejects threshold combinations that would make classification
// meaningless.
func (t Thresholds) Validate() error {
	switch {
	case t.FuzzDistance < 0:
		return fmt.Errorf("fuzz_distance must be >= 0, got %d", t.FuzzDistance)
	case t.ExonCoverageCutoff <= 0 || t.ExonCoverageCutoff > 1:
		return fmt.Errorf("exon_coverage_cutoff must be in (0, 1], got %g", t.ExonCoverageCutoff)
	case t.ChunkBases <= 0 || t.ChunkMaxSeqs <= 0:
		return fmt.Errorf("chunk bounds must be positive, got %d bases / %d seqs", t.ChunkBases, t.ChunkMaxSeqs)
	case t.ClassifyChunkSize <= 0:
		return fmt.Errorf("classify_chunk_size must be positive, got %d", t.ClassifyChunkSize)
	case t.SyntenyNeighbors <= 0:
		return fmt.Errorf("synteny_neighbors must be positive, got %d", t.SyntenyNeighbors)
	}
	return nil
}
