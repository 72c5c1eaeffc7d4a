package gene

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChromosomeIntervalBasics(t *testing.T) {
	i := NewChromosomeInterval("chr1", 10, 20, Plus)
	assert.Equal(t, 10, i.Len())
	assert.True(t, i.Contains(10))
	assert.True(t, i.Contains(19))
	assert.False(t, i.Contains(20), "half-open stop is exclusive")
	assert.True(t, i.Subset(NewChromosomeInterval("chr1", 12, 18, Plus)))
	assert.False(t, i.Subset(NewChromosomeInterval("chr2", 12, 18, Plus)))
	assert.Equal(t, "chr1:10-20(+)", i.String())
}

func TestChromosomeIntervalRejectsInvertedBounds(t *testing.T) {
	assert.Panics(t, func() { NewChromosomeInterval("chr1", 20, 10, Plus) })
}

func TestChromosomeIntervalOrdering(t *testing.T) {
	intervals := []ChromosomeInterval{
		{Chromosome: "chr2", Start: 0, Stop: 5},
		{Chromosome: "chr1", Start: 10, Stop: 30},
		{Chromosome: "chr1", Start: 10, Stop: 20},
		{Chromosome: "chr1", Start: 5, Stop: 50},
	}
	sort.Slice(intervals, func(a, b int) bool { return intervals[a].Compare(intervals[b]) < 0 })

	want := []ChromosomeInterval{
		{Chromosome: "chr1", Start: 5, Stop: 50},
		{Chromosome: "chr1", Start: 10, Stop: 20},
		{Chromosome: "chr1", Start: 10, Stop: 30},
		{Chromosome: "chr2", Start: 0, Stop: 5},
	}
	assert.Equal(t, want, intervals, "ordered by (chromosome, start, stop)")
}
