package gene

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseGenePred reads transcripts from genePred-format text, keyed by
// transcript id. Both the 10-column basic and the 15-column extended layout
// are accepted; the extended columns supply gene id, completeness stats and
// the reading-frame offset of the first codon.
func ParseGenePred(reader io.Reader) (map[string]*Transcript, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	txs := make(map[string]*Transcript)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tx, err := parseGenePredLine(line)
		if err != nil {
			return nil, fmt.Errorf("genePred line %d: %w", lineNum, err)
		}
		if _, dup := txs[tx.ID]; dup {
			return nil, fmt.Errorf("genePred line %d: duplicate transcript %s", lineNum, tx.ID)
		}
		txs[tx.ID] = tx
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan genePred: %w", err)
	}
	return txs, nil
}

// LoadGenePred reads a (possibly gzipped) genePred file.
func LoadGenePred(path string) (map[string]*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genePred file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return ParseGenePred(reader)
}

func parseGenePredLine(line string) (*Transcript, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 10 && len(fields) != 15 {
		return nil, fmt.Errorf("expected 10 or 15 fields, got %d", len(fields))
	}

	strand, err := parseStrand(fields[2])
	if err != nil {
		return nil, err
	}
	thickStart, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("cdsStart: %w", err)
	}
	thickStop, err := strconv.Atoi(fields[6])
	if err != nil {
		return nil, fmt.Errorf("cdsEnd: %w", err)
	}
	exonCount, err := strconv.Atoi(fields[7])
	if err != nil {
		return nil, fmt.Errorf("exonCount: %w", err)
	}
	starts, err := parseCommaInts(fields[8])
	if err != nil {
		return nil, fmt.Errorf("exonStarts: %w", err)
	}
	ends, err := parseCommaInts(fields[9])
	if err != nil {
		return nil, fmt.Errorf("exonEnds: %w", err)
	}
	if len(starts) != exonCount || len(ends) != exonCount {
		return nil, fmt.Errorf("exon list length does not match exonCount %d", exonCount)
	}

	tx := &Transcript{
		ID:           fields[0],
		Chromosome:   fields[1],
		Strand:       strand,
		ThickStart:   thickStart,
		ThickStop:    thickStop,
		CdsStartStat: StatUnknown,
		CdsEndStat:   StatUnknown,
	}
	tx.Exons = make([]ChromosomeInterval, exonCount)
	for i := range starts {
		tx.Exons[i] = NewChromosomeInterval(fields[1], starts[i], ends[i], strand)
	}

	if len(fields) == 15 {
		tx.GeneID = fields[11]
		tx.CdsStartStat = CompletenessStat(fields[12])
		tx.CdsEndStat = CompletenessStat(fields[13])
		frames, err := parseCommaInts(fields[14])
		if err != nil {
			return nil, fmt.Errorf("exonFrames: %w", err)
		}
		if len(frames) != exonCount {
			return nil, fmt.Errorf("exonFrames length does not match exonCount %d", exonCount)
		}
		tx.Offset = frameOffset(frames, strand)
	}
	return tx, nil
}

func parseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return Plus, nil
	case "-":
		return Minus, nil
	case ".", "":
		return NoStrand, nil
	}
	return NoStrand, fmt.Errorf("invalid strand %q", s)
}

// frameOffset derives the 5' frame offset from the exonFrames column: the
// frame of the first coding exon in transcription order, converted to the
// number of bases to discard to reach frame 0.
func frameOffset(frames []int, strand Strand) int {
	coding := frames[:0:0]
	for _, f := range frames {
		if f != -1 {
			coding = append(coding, f)
		}
	}
	if len(coding) == 0 {
		return 0
	}
	f := coding[0]
	if strand == Minus {
		f = coding[len(coding)-1]
	}
	if f == 0 {
		return 0
	}
	return 3 - f
}

func parseCommaInts(s string) ([]int, error) {
	parts := strings.Split(strings.TrimSuffix(s, ","), ",")
	if len(parts) == 1 && parts[0] == "" {
		return nil, nil
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
