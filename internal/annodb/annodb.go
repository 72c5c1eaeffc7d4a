// Package annodb is the DuckDB-backed annotation database. It serves the
// reference annotation maps a classification run needs (transcript biotypes,
// gene to transcript sets) and persists result tables after a run.
package annodb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/txeval/txeval/internal/classify"
	"github.com/txeval/txeval/internal/gene"
)

// DB wraps a DuckDB connection holding the annotation table and run results.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at path. An empty path opens an
// in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	d := &DB{db: db, path: path}
	if err := d.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (d *DB) DB() *sql.DB {
	return d.db
}

func (d *DB) ensureSchema() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS annotation (
		GeneId VARCHAR,
		GeneName VARCHAR,
		GeneBiotype VARCHAR,
		TranscriptId VARCHAR,
		TranscriptBiotype VARCHAR,
		PRIMARY KEY (TranscriptId)
	)`)
	return err
}

// AnnotationRow is one reference transcript's annotation entry.
type AnnotationRow struct {
	GeneID            string
	GeneName          string
	GeneBiotype       string
	TranscriptID      string
	TranscriptBiotype string
}

// WriteAnnotation replaces the annotation table with rows.
func (d *DB) WriteAnnotation(rows []AnnotationRow) error {
	if _, err := d.db.Exec("DELETE FROM annotation"); err != nil {
		return fmt.Errorf("clear annotation: %w", err)
	}
	return d.appendRows("annotation", len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.GeneID, r.GeneName, r.GeneBiotype, r.TranscriptID, r.TranscriptBiotype}
	})
}

// TranscriptBiotypeMap returns transcript id to biotype for every reference
// transcript in the annotation table.
func (d *DB) TranscriptBiotypeMap() (map[string]string, error) {
	rows, err := d.db.Query("SELECT TranscriptId, TranscriptBiotype FROM annotation")
	if err != nil {
		return nil, fmt.Errorf("query transcript biotypes: %w", err)
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var txID, biotype string
		if err := rows.Scan(&txID, &biotype); err != nil {
			return nil, fmt.Errorf("scan transcript biotype: %w", err)
		}
		m[txID] = biotype
	}
	return m, rows.Err()
}

// GeneTranscriptMap returns gene id to the sorted set of its transcript ids.
func (d *DB) GeneTranscriptMap() (map[string][]string, error) {
	rows, err := d.db.Query("SELECT GeneId, TranscriptId FROM annotation ORDER BY GeneId, TranscriptId")
	if err != nil {
		return nil, fmt.Errorf("query gene transcripts: %w", err)
	}
	defer rows.Close()

	m := make(map[string][]string)
	for rows.Next() {
		var geneID, txID string
		if err := rows.Scan(&geneID, &txID); err != nil {
			return nil, fmt.Errorf("scan gene transcript: %w", err)
		}
		m[geneID] = append(m[geneID], txID)
	}
	return m, rows.Err()
}

// SaveTable persists one result table, replacing any previous table of the
// same name. Column order follows the table kind's declared schema.
func (d *DB) SaveTable(t *classify.Table) error {
	if _, err := d.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %q", t.Name)); err != nil {
		return fmt.Errorf("drop table %s: %w", t.Name, err)
	}
	cols := make([]string, 0, len(t.Kind.Columns()))
	for _, c := range t.Kind.Columns() {
		cols = append(cols, fmt.Sprintf("%q %s", c, columnType(c)))
	}
	create := fmt.Sprintf("CREATE TABLE %q (%s)", t.Name, strings.Join(cols, ", "))
	if _, err := d.db.Exec(create); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return d.appendRows(t.Name, len(t.Rows), func(i int) []any {
		return rowValues(t.Kind, t.Rows[i])
	})
}

// LoadTable reads a previously saved result table back, sorted by its full
// column tuple.
func (d *DB) LoadTable(name string, kind classify.TableKind) (*classify.Table, error) {
	cols := kind.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	rows, err := d.db.Query(fmt.Sprintf("SELECT %s FROM %q", strings.Join(quoted, ", "), name))
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", name, err)
	}
	defer rows.Close()

	var recs []classify.Record
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return classify.NewTable(name, kind, recs)
}

// appendRows bulk-inserts n rows into table using the DuckDB appender.
func (d *DB) appendRows(table string, n int, values func(i int) []any) error {
	if n == 0 {
		return nil
	}
	conn, err := d.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender for %s: %w", table, err)
	}
	defer appender.Close()

	for i := 0; i < n; i++ {
		vals := values(i)
		row := make([]driver.Value, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		if err := appender.AppendRow(row...); err != nil {
			return fmt.Errorf("append row to %s: %w", table, err)
		}
	}
	return appender.Flush()
}

func columnType(col string) string {
	switch col {
	case "value":
		return "DOUBLE"
	case "start", "stop":
		return "BIGINT"
	default:
		return "VARCHAR"
	}
}

func rowValues(kind classify.TableKind, r classify.Record) []any {
	switch kind {
	case classify.EvaluationTable:
		return []any{r.GeneID, r.TranscriptID, r.AlignmentID, r.Classifier,
			r.Interval.Chromosome, int64(r.Interval.Start), int64(r.Interval.Stop), string(r.Interval.Strand)}
	case classify.AlignmentMetricsTable:
		return []any{r.AlignmentID, r.Classifier, r.Value}
	default:
		return []any{r.GeneID, r.TranscriptID, r.AlignmentID, r.Classifier, r.Value}
	}
}

func scanRecord(kind classify.TableKind, rows *sql.Rows) (classify.Record, error) {
	var rec classify.Record
	switch kind {
	case classify.EvaluationTable:
		var chrom, strand string
		var start, stop int64
		if err := rows.Scan(&rec.GeneID, &rec.TranscriptID, &rec.AlignmentID, &rec.Classifier,
			&chrom, &start, &stop, &strand); err != nil {
			return rec, err
		}
		rec.Evaluation = true
		rec.Interval = gene.ChromosomeInterval{Chromosome: chrom, Start: int(start), Stop: int(stop), Strand: gene.NoStrand}
		if strand != "" {
			rec.Interval.Strand = gene.Strand(strand[0])
		}
	case classify.AlignmentMetricsTable:
		if err := rows.Scan(&rec.AlignmentID, &rec.Classifier, &rec.Value); err != nil {
			return rec, err
		}
	default:
		if err := rows.Scan(&rec.GeneID, &rec.TranscriptID, &rec.AlignmentID, &rec.Classifier, &rec.Value); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
