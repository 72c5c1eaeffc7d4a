// Package genome provides plus-strand genomic sequence access for a set of
// chromosomes loaded once per run and treated as read-only.
package genome

import (
	"fmt"
	"strings"
)

// Provider answers sequence queries against one genome assembly.
// Coordinates are 0-based half-open on the plus strand.
type Provider interface {
	Sequence(chrom string, start, stop int) (string, error)
	ChromSize(chrom string) (int, bool)
}

// Memory holds an entire genome in memory, keyed by chromosome name.
type Memory struct {
	chroms map[string]string
}

// NewMemory builds an in-memory genome from a chromosome→sequence map.
// Sequences are uppercased once at load time.
func NewMemory(chroms map[string]string) *Memory {
	upper := make(map[string]string, len(chroms))
	for name, seq := range chroms {
		upper[name] = strings.ToUpper(seq)
	}
	return &Memory{chroms: upper}
}

// Sequence returns the plus-strand slice [start, stop) of a chromosome.
func (m *Memory) Sequence(chrom string, start, stop int) (string, error) {
	seq, ok := m.chroms[chrom]
	if !ok {
		return "", fmt.Errorf("chromosome %q not in genome", chrom)
	}
	if start < 0 || stop > len(seq) || start > stop {
		return "", fmt.Errorf("region %s:%d-%d out of bounds (size %d)", chrom, start, stop, len(seq))
	}
	return seq[start:stop], nil
}

// ChromSize returns the length of a chromosome.
func (m *Memory) ChromSize(chrom string) (int, bool) {
	seq, ok := m.chroms[chrom]
	return len(seq), ok
}

// Base returns the single base at pos, or 0 when pos is out of bounds.
// Used for contig-edge and unknown-base adjacency checks.
func Base(p Provider, chrom string, pos int) byte {
	size, ok := p.ChromSize(chrom)
	if !ok || pos < 0 || pos >= size {
		return 0
	}
	seq, err := p.Sequence(chrom, pos, pos+1)
	if err != nil || len(seq) == 0 {
		return 0
	}
	return seq[0]
}

// IsUnknown reports whether a base is an N/unknown base.
func IsUnknown(base byte) bool {
	return base == 'N' || base == 'n'
}
