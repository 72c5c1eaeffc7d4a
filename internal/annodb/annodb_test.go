package annodb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txeval/txeval/internal/classify"
	"github.com/txeval/txeval/internal/gene"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testAnnotation() []AnnotationRow {
	return []AnnotationRow{
		{GeneID: "g1", GeneName: "ABC1", GeneBiotype: "protein_coding", TranscriptID: "tx1.1", TranscriptBiotype: "protein_coding"},
		{GeneID: "g1", GeneName: "ABC1", GeneBiotype: "protein_coding", TranscriptID: "tx1.2", TranscriptBiotype: "retained_intron"},
		{GeneID: "g2", GeneName: "XYZ2", GeneBiotype: "lincRNA", TranscriptID: "tx2.1", TranscriptBiotype: "lincRNA"},
	}
}

func TestAnnotationRoundTrip(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.WriteAnnotation(testAnnotation()))

	biotypes, err := db.TranscriptBiotypeMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"tx1.1": "protein_coding",
		"tx1.2": "retained_intron",
		"tx2.1": "lincRNA",
	}, biotypes)

	genes, err := db.GeneTranscriptMap()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"g1": {"tx1.1", "tx1.2"},
		"g2": {"tx2.1"},
	}, genes)
}

func TestWriteAnnotationReplaces(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.WriteAnnotation(testAnnotation()))
	require.NoError(t, db.WriteAnnotation(testAnnotation()[:1]))

	biotypes, err := db.TranscriptBiotypeMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tx1.1": "protein_coding"}, biotypes)
}

func TestSaveLoadMetricsTable(t *testing.T) {
	db := openTestDB(t)
	rows := []classify.Record{
		classify.Metric("g1", "tx1.1", "tx1.1-1", "AlnCoverage", 0.95),
		classify.Metric("g1", "tx1.1", "tx1.1-1", "Badness", 0.01),
		classify.Metric("g2", "tx2.1", "tx2.1-1", "AlnCoverage", 1),
	}
	table, err := classify.NewTable("mRNA_transMap_Metrics", classify.MetricsTable, rows)
	require.NoError(t, err)

	require.NoError(t, db.SaveTable(table))
	got, err := db.LoadTable(table.Name, classify.MetricsTable)
	require.NoError(t, err)
	assert.Equal(t, table.Rows, got.Rows)

	found := got.Lookup("tx1.1", "AlnCoverage")
	require.Len(t, found, 1)
	assert.Equal(t, 0.95, found[0].Value)
}

func TestSaveLoadEvaluationTable(t *testing.T) {
	db := openTestDB(t)
	rows := []classify.Record{
		classify.Evaluation("g1", "tx1.1", "tx1.1-1", "CodingInsertion",
			gene.NewChromosomeInterval("chr1", 100, 103, gene.Plus)),
		classify.Evaluation("g1", "tx1.1", "tx1.1-1", "CodingInsertion",
			gene.NewChromosomeInterval("chr1", 250, 251, gene.Minus)),
	}
	table, err := classify.NewTable("mRNA_transMap_Evaluation", classify.EvaluationTable, rows)
	require.NoError(t, err)

	require.NoError(t, db.SaveTable(table))
	got, err := db.LoadTable(table.Name, classify.EvaluationTable)
	require.NoError(t, err)
	assert.Equal(t, table.Rows, got.Rows, "interval fields and strand survive the round trip")
}

func TestSaveLoadAlignmentMetricsTable(t *testing.T) {
	db := openTestDB(t)
	rows := []classify.Record{
		classify.Metric("g1", "tx1.1", "tx1.1-1", "Paralogy", 2),
		classify.Metric("g1", "tx1.1", "tx1.1-2", "Paralogy", 2),
	}
	table, err := classify.NewTable(classify.ContextTableName, classify.AlignmentMetricsTable, rows)
	require.NoError(t, err)

	require.NoError(t, db.SaveTable(table))
	got, err := db.LoadTable(table.Name, classify.AlignmentMetricsTable)
	require.NoError(t, err)

	found := got.Lookup("tx1.1-2", "Paralogy")
	require.Len(t, found, 1)
	assert.Equal(t, 2.0, found[0].Value)
}

func TestSaveTableReplacesExisting(t *testing.T) {
	db := openTestDB(t)
	first, err := classify.NewTable("t", classify.MetricsTable, []classify.Record{
		classify.Metric("g1", "tx1.1", "tx1.1-1", "AlnCoverage", 0.5),
	})
	require.NoError(t, err)
	require.NoError(t, db.SaveTable(first))

	second, err := classify.NewTable("t", classify.MetricsTable, []classify.Record{
		classify.Metric("g1", "tx1.1", "tx1.1-1", "AlnCoverage", 0.9),
	})
	require.NoError(t, err)
	require.NoError(t, db.SaveTable(second))

	got, err := db.LoadTable("t", classify.MetricsTable)
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, 0.9, got.Rows[0].Value)
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anno.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.WriteAnnotation(testAnnotation()[:1]))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	biotypes, err := db.TranscriptBiotypeMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tx1.1": "protein_coding"}, biotypes)
}
