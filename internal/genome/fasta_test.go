package genome

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastaInput = `>chr1 Homo sapiens chromosome 1
ACGTACGTAC
gtacgtacgt
>chr2
NNNNACGT
`

func TestParseFASTA(t *testing.T) {
	g, err := ParseFASTA(strings.NewReader(fastaInput))
	require.NoError(t, err)

	seq, err := g.Sequence("chr1", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTACGTACGTACGT", seq, "wrapped lines concatenate and uppercase")

	seq, err = g.Sequence("chr2", 0, 8)
	require.NoError(t, err)
	assert.Equal(t, "NNNNACGT", seq)

	size, ok := g.ChromSize("chr1")
	assert.True(t, ok)
	assert.Equal(t, 20, size, "header description after the name is dropped")
}

func TestParseFASTAErrors(t *testing.T) {
	_, err := ParseFASTA(strings.NewReader(">\nACGT\n"))
	assert.Error(t, err, "header must carry a name")

	_, err = ParseFASTA(strings.NewReader(""))
	assert.Error(t, err, "empty input has no sequences")
}

func TestLoadFASTA(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "genome.fa")
	require.NoError(t, os.WriteFile(plain, []byte(fastaInput), 0o644))

	gzPath := filepath.Join(dir, "genome.fa.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(fastaInput))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, gzPath} {
		g, err := LoadFASTA(path)
		require.NoError(t, err, path)
		seq, err := g.Sequence("chr2", 4, 8)
		require.NoError(t, err)
		assert.Equal(t, "ACGT", seq)
	}

	_, err = LoadFASTA(filepath.Join(dir, "missing.fa"))
	assert.Error(t, err)
}
