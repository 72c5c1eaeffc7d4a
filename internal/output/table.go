// Package output writes classification result tables in tab-delimited form.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/txeval/txeval/internal/classify"
)

// TabWriter writes result tables with the table kind's declared columns as
// the header line.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited table writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteTable writes the header and every row of t, then flushes.
func (tw *TabWriter) WriteTable(t *classify.Table) error {
	if _, err := tw.w.WriteString("#" + strings.Join(t.Kind.Columns(), "\t") + "\n"); err != nil {
		return err
	}
	for _, rec := range t.Rows {
		if _, err := tw.w.WriteString(strings.Join(fields(t.Kind, rec), "\t") + "\n"); err != nil {
			return err
		}
	}
	return tw.w.Flush()
}

func fields(kind classify.TableKind, rec classify.Record) []string {
	switch kind {
	case classify.EvaluationTable:
		return []string{
			rec.GeneID, rec.TranscriptID, rec.AlignmentID, rec.Classifier,
			rec.Interval.Chromosome,
			strconv.Itoa(rec.Interval.Start),
			strconv.Itoa(rec.Interval.Stop),
			string(rec.Interval.Strand),
		}
	case classify.AlignmentMetricsTable:
		return []string{rec.AlignmentID, rec.Classifier, formatValue(rec.Value)}
	default:
		return []string{rec.GeneID, rec.TranscriptID, rec.AlignmentID, rec.Classifier, formatValue(rec.Value)}
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
