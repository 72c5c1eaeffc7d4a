package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txeval/txeval/internal/gene"
)

func TestNewTableSortsByFullKeyTuple(t *testing.T) {
	rows := []Record{
		Metric("g2", "tx3", "tx3-1", "AlnCoverage", 0.5),
		Metric("g1", "tx2", "tx2-1", "Badness", 0.1),
		Metric("g1", "tx1", "tx1-1", "Badness", 0.2),
		Metric("g1", "tx1", "tx1-1", "AlnCoverage", 1.0),
	}
	table, err := NewTable("mRNA_transMap_Metrics", MetricsTable, rows)
	require.NoError(t, err)

	got := make([][2]string, 0, len(table.Rows))
	for _, r := range table.Rows {
		got = append(got, [2]string{r.TranscriptID, r.Classifier})
	}
	want := [][2]string{
		{"tx1", "AlnCoverage"},
		{"tx1", "Badness"},
		{"tx2", "Badness"},
		{"tx3", "AlnCoverage"},
	}
	assert.Equal(t, want, got)
}

func TestNewTableRejectsDuplicateMetricKeys(t *testing.T) {
	rows := []Record{
		Metric("g1", "tx1", "tx1-1", "Badness", 0.1),
		Metric("g1", "tx1", "tx1-1", "Badness", 0.9),
	}
	_, err := NewTable("mRNA_transMap_Metrics", MetricsTable, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metric")
}

func TestMetricsTableKeepsParalogousAlignments(t *testing.T) {
	// Two alignments of the same reference transcript are routine input;
	// each keeps its own metric row.
	rows := []Record{
		Metric("g1", "tx1", "tx1-2", "AlnCoverage", 0.7),
		Metric("g1", "tx1", "tx1-1", "AlnCoverage", 1.0),
	}
	table, err := NewTable("mRNA_transMap_Metrics", MetricsTable, rows)
	require.NoError(t, err)

	got := table.Lookup("tx1", "AlnCoverage")
	require.Len(t, got, 2)
	assert.Equal(t, "tx1-1", got[0].AlignmentID)
	assert.Equal(t, "tx1-2", got[1].AlignmentID)
}

func TestEvaluationTableAllowsRepeatedKeys(t *testing.T) {
	iv1 := gene.ChromosomeInterval{Chromosome: "chr1", Start: 5, Stop: 8, Strand: gene.Plus}
	iv2 := gene.ChromosomeInterval{Chromosome: "chr1", Start: 20, Stop: 21, Strand: gene.Plus}
	rows := []Record{
		Evaluation("g1", "tx1", "tx1-1", "CodingInsertion", iv2),
		Evaluation("g1", "tx1", "tx1-1", "CodingInsertion", iv1),
	}
	table, err := NewTable("mRNA_transMap_Evaluation", EvaluationTable, rows)
	require.NoError(t, err)

	got := table.Lookup("tx1", "CodingInsertion")
	require.Len(t, got, 2)
	assert.Equal(t, iv1, got[0].Interval, "rows sorted by interval within a key")
	assert.Equal(t, iv2, got[1].Interval)
}

func TestAlignmentMetricsTableKeyedByAlignmentID(t *testing.T) {
	rows := []Record{
		Metric("g1", "tx1", "tx1-1", "Paralogy", 2),
		Metric("g1", "tx1", "tx1-2", "Paralogy", 2),
	}
	table, err := NewTable(ContextTableName, AlignmentMetricsTable, rows)
	require.NoError(t, err)
	require.Len(t, table.Lookup("tx1-1", "Paralogy"), 1)
	require.Len(t, table.Lookup("tx1-2", "Paralogy"), 1)
	assert.Empty(t, table.Lookup("tx1", "Paralogy"))
}

func TestMergeTablesIsOrderIndependent(t *testing.T) {
	part1 := []Record{Metric("g1", "tx1", "tx1-1", "Badness", 0.1)}
	part2 := []Record{Metric("g1", "tx2", "tx2-1", "Badness", 0.3)}

	a, err := MergeTables("m", MetricsTable, [][]Record{part1, part2})
	require.NoError(t, err)
	b, err := MergeTables("m", MetricsTable, [][]Record{part2, part1})
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
}
