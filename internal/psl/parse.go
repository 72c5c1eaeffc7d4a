package psl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// pslColumns is the number of tab-separated fields in a headerless PSL line.
const pslColumns = 21

// ParseLine parses one headerless PSL line as produced by the external
// aligner.
func ParseLine(line string) (*Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\n"), "\t")
	if len(fields) != pslColumns {
		return nil, fmt.Errorf("psl line has %d fields, want %d", len(fields), pslColumns)
	}
	ints := make([]int, pslColumns)
	for _, i := range []int{0, 1, 2, 3, 4, 5, 6, 7, 10, 11, 12, 14, 15, 16, 17} {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf("psl field %d: %w", i, err)
		}
		ints[i] = v
	}
	r := &Record{
		Matches:     ints[0],
		MisMatches:  ints[1],
		RepMatches:  ints[2],
		NCount:      ints[3],
		QNumInsert:  ints[4],
		QBaseInsert: ints[5],
		TNumInsert:  ints[6],
		TBaseInsert: ints[7],
		Strand:      fields[8],
		QName:       fields[9],
		QSize:       ints[10],
		QStart:      ints[11],
		QEnd:        ints[12],
		TName:       fields[13],
		TSize:       ints[14],
		TStart:      ints[15],
		TEnd:        ints[16],
	}
	blockCount, err := strconv.Atoi(fields[17])
	if err != nil {
		return nil, fmt.Errorf("psl blockCount: %w", err)
	}
	r.BlockCount = blockCount
	if r.BlockSizes, err = parseIntList(fields[18], blockCount); err != nil {
		return nil, fmt.Errorf("psl blockSizes: %w", err)
	}
	if r.QStarts, err = parseIntList(fields[19], blockCount); err != nil {
		return nil, fmt.Errorf("psl qStarts: %w", err)
	}
	if r.TStarts, err = parseIntList(fields[20], blockCount); err != nil {
		return nil, fmt.Errorf("psl tStarts: %w", err)
	}
	return r, nil
}

// ParseAll reads every record from headerless PSL output, skipping blank
// lines.
func ParseAll(reader io.Reader) ([]*Record, error) {
	var records []*Record
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read psl: %w", err)
	}
	return records, nil
}

// String renders the record back to its tab-separated PSL form.
func (r *Record) String() string {
	return strings.Join([]string{
		strconv.Itoa(r.Matches), strconv.Itoa(r.MisMatches), strconv.Itoa(r.RepMatches), strconv.Itoa(r.NCount),
		strconv.Itoa(r.QNumInsert), strconv.Itoa(r.QBaseInsert), strconv.Itoa(r.TNumInsert), strconv.Itoa(r.TBaseInsert),
		r.Strand,
		r.QName, strconv.Itoa(r.QSize), strconv.Itoa(r.QStart), strconv.Itoa(r.QEnd),
		r.TName, strconv.Itoa(r.TSize), strconv.Itoa(r.TStart), strconv.Itoa(r.TEnd),
		strconv.Itoa(r.BlockCount), formatIntList(r.BlockSizes), formatIntList(r.QStarts), formatIntList(r.TStarts),
	}, "\t")
}

func parseIntList(s string, want int) ([]int, error) {
	parts := strings.Split(strings.TrimSuffix(s, ","), ",")
	if len(parts) != want {
		return nil, fmt.Errorf("got %d entries, want %d", len(parts), want)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func formatIntList(vals []int) string {
	var b strings.Builder
	for _, v := range vals {
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(',')
	}
	return b.String()
}
