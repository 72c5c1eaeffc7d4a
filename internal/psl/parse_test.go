package psl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pslLine = "10\t1\t0\t0\t1\t3\t0\t0\t+\tENST0001.1-1\t14\t0\t14\tENST0001.1\t11\t0\t11\t2\t5,6,\t0,8,\t0,5,"

func TestParseLine(t *testing.T) {
	r, err := ParseLine(pslLine)
	require.NoError(t, err)
	assert.Equal(t, 10, r.Matches)
	assert.Equal(t, 1, r.MisMatches)
	assert.Equal(t, "+", r.Strand)
	assert.Equal(t, "ENST0001.1-1", r.QName)
	assert.Equal(t, 14, r.QSize)
	assert.Equal(t, "ENST0001.1", r.TName)
	assert.Equal(t, 2, r.BlockCount)
	assert.Equal(t, []int{5, 6}, r.BlockSizes)
	assert.Equal(t, []int{0, 8}, r.QStarts)
	assert.Equal(t, []int{0, 5}, r.TStarts)
}

func TestStringRoundTrip(t *testing.T) {
	r, err := ParseLine(pslLine)
	require.NoError(t, err)
	assert.Equal(t, pslLine, r.String())

	again, err := ParseLine(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestParseLineErrors(t *testing.T) {
	_, err := ParseLine("too\tfew\tfields")
	assert.Error(t, err)

	_, err = ParseLine(strings.Replace(pslLine, "\t5,6,\t", "\t5,\t", 1))
	assert.Error(t, err, "block list shorter than blockCount")

	_, err = ParseLine(strings.Replace(pslLine, "10\t1", "ten\t1", 1))
	assert.Error(t, err, "non-numeric field")
}

func TestParseAllSkipsBlankLines(t *testing.T) {
	input := pslLine + "\n\n" + pslLine + "\n"
	recs, err := ParseAll(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
