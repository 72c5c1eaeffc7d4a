package genome

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseFASTA reads a genome FASTA into an in-memory genome. The chromosome
// name is the first whitespace-separated token of each header line.
func ParseFASTA(reader io.Reader) (*Memory, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	chroms := make(map[string]string)
	var name string
	var seq strings.Builder

	flush := func() {
		if name != "" {
			chroms[name] = seq.String()
		}
		seq.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			tokens := strings.Fields(line[1:])
			if len(tokens) == 0 {
				return nil, fmt.Errorf("FASTA header with no name")
			}
			name = tokens[0]
		} else {
			seq.WriteString(strings.TrimSpace(line))
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	if len(chroms) == 0 {
		return nil, fmt.Errorf("FASTA contained no sequences")
	}
	return NewMemory(chroms), nil
}

// LoadFASTA reads a (possibly gzipped) genome FASTA file.
func LoadFASTA(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
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
	return ParseFASTA(reader)
}
