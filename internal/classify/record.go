// Package classify derives per-transcript quality metrics and located
// structural-defect records from transcript alignments, and assembles them
// into deterministic category-indexed tables.
package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/txeval/txeval/internal/gene"
)

// Record is one classification output row. Metric records carry a numeric
// (or 0/1 enum) value; evaluation records carry the genomic interval of a
// located defect. Records are produced once and never mutated.
type Record struct {
	GeneID       string
	TranscriptID string
	AlignmentID  string
	Classifier   string

	// Value is set for metric records.
	Value float64

	// Interval is set for evaluation records.
	Interval gene.ChromosomeInterval

	// Evaluation distinguishes the two record shapes.
	Evaluation bool
}

// Metric builds a metric-shaped record.
func Metric(geneID, txID, alnID, classifier string, value float64) Record {
	return Record{GeneID: geneID, TranscriptID: txID, AlignmentID: alnID, Classifier: classifier, Value: value}
}

// Evaluation builds an evaluation-shaped record.
func Evaluation(geneID, txID, alnID, classifier string, interval gene.ChromosomeInterval) Record {
	return Record{GeneID: geneID, TranscriptID: txID, AlignmentID: alnID, Classifier: classifier,
		Interval: interval, Evaluation: true}
}

// boolValue renders a flag metric as 0/1.
func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// less orders records by the full key tuple so that merged tables are
// deterministic regardless of work-unit completion order.
func less(a, b Record) bool {
	switch {
	case a.GeneID != b.GeneID:
		return a.GeneID < b.GeneID
	case a.TranscriptID != b.TranscriptID:
		return a.TranscriptID < b.TranscriptID
	case a.AlignmentID != b.AlignmentID:
		return a.AlignmentID < b.AlignmentID
	case a.Classifier != b.Classifier:
		return a.Classifier < b.Classifier
	}
	if c := a.Interval.Compare(b.Interval); c != 0 {
		return c < 0
	}
	// NaN metric values sort last so ties stay stable.
	av, bv := a.Value, b.Value
	if math.IsNaN(av) {
		return false
	}
	if math.IsNaN(bv) {
		return true
	}
	return av < bv
}

// TableKind selects a table's column schema and index key.
type TableKind int

const (
	// MetricsTable rows are (GeneId, TranscriptId, AlignmentId, classifier,
	// value), indexed by (TranscriptId, classifier); one row per alignment,
	// so paralogous alignments of one transcript share an index key.
	MetricsTable TableKind = iota
	// EvaluationTable rows append (chromosome, start, stop, strand) and may
	// repeat per key (e.g. multiple indels).
	EvaluationTable
	// AlignmentMetricsTable holds context/alignment-only metrics keyed by
	// (TransMapId, classifier).
	AlignmentMetricsTable
)

// Columns returns the declared column schema for the kind.
func (k TableKind) Columns() []string {
	switch k {
	case EvaluationTable:
		return []string{"GeneId", "TranscriptId", "AlignmentId", "classifier", "chromosome", "start", "stop", "strand"}
	case AlignmentMetricsTable:
		return []string{"TransMapId", "classifier", "value"}
	default:
		return []string{"GeneId", "TranscriptId", "AlignmentId", "classifier", "value"}
	}
}

// TableKey indexes rows within a table.
type TableKey struct {
	ID         string
	Classifier string
}

// Table is one named result table: sorted rows plus a key index.
type Table struct {
	Name  string
	Kind  TableKind
	Rows  []Record
	index map[TableKey][]int
}

// NewTable sorts rows by the full key tuple and indexes them. Metric tables
// reject duplicate (GeneId, TranscriptId, AlignmentId, classifier) tuples: a
// duplicate metric means two work units produced conflicting values for the
// same alignment, which is a data-corruption bug, not a recoverable
// condition. Paralogous alignments of one transcript carry distinct
// alignment ids and coexist as separate rows.
func NewTable(name string, kind TableKind, rows []Record) (*Table, error) {
	sorted := make([]Record, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	t := &Table{Name: name, Kind: kind, Rows: sorted, index: make(map[TableKey][]int)}
	for i, r := range sorted {
		// Duplicates sort adjacent, the full tuple leading the sort order.
		if kind != EvaluationTable && i > 0 && sameMetricKey(sorted[i-1], r) {
			return nil, fmt.Errorf("table %s: duplicate metric for %s/%s", name, r.AlignmentID, r.Classifier)
		}
		key := t.key(r)
		t.index[key] = append(t.index[key], i)
	}
	return t, nil
}

// sameMetricKey reports whether two records share the full metric key tuple.
func sameMetricKey(a, b Record) bool {
	return a.GeneID == b.GeneID && a.TranscriptID == b.TranscriptID &&
		a.AlignmentID == b.AlignmentID && a.Classifier == b.Classifier
}

func (t *Table) key(r Record) TableKey {
	if t.Kind == AlignmentMetricsTable {
		return TableKey{ID: r.AlignmentID, Classifier: r.Classifier}
	}
	return TableKey{ID: r.TranscriptID, Classifier: r.Classifier}
}

// Lookup returns the rows stored under one key, in table order.
func (t *Table) Lookup(id, classifier string) []Record {
	idxs := t.index[TableKey{ID: id, Classifier: classifier}]
	rows := make([]Record, 0, len(idxs))
	for _, i := range idxs {
		rows = append(rows, t.Rows[i])
	}
	return rows
}

// MergeTables concatenates partial record lists from parallel chunks into
// one table. Chunking must not change results, only execution granularity:
// the deterministic sort inside NewTable makes the merge independent of
// unit completion order.
func MergeTables(name string, kind TableKind, parts [][]Record) (*Table, error) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	rows := make([]Record, 0, total)
	for _, p := range parts {
		rows = append(rows, p...)
	}
	return NewTable(name, kind, rows)
}
