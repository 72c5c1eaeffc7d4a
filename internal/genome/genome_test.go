package genome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySequence(t *testing.T) {
	g := NewMemory(map[string]string{"chr1": "acgtACGTnn"})

	seq, err := g.Sequence("chr1", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", seq, "sequences are uppercased at load time")

	seq, err = g.Sequence("chr1", 4, 10)
	require.NoError(t, err)
	assert.Equal(t, "ACGTNN", seq)

	seq, err = g.Sequence("chr1", 3, 3)
	require.NoError(t, err)
	assert.Empty(t, seq)

	_, err = g.Sequence("chr2", 0, 1)
	assert.Error(t, err)
	_, err = g.Sequence("chr1", -1, 4)
	assert.Error(t, err)
	_, err = g.Sequence("chr1", 0, 11)
	assert.Error(t, err)
	_, err = g.Sequence("chr1", 5, 4)
	assert.Error(t, err)
}

func TestMemoryChromSize(t *testing.T) {
	g := NewMemory(map[string]string{"chr1": "ACGT"})

	size, ok := g.ChromSize("chr1")
	assert.True(t, ok)
	assert.Equal(t, 4, size)

	_, ok = g.ChromSize("chr2")
	assert.False(t, ok)
}

func TestBase(t *testing.T) {
	g := NewMemory(map[string]string{"chr1": "ACGTN"})

	assert.Equal(t, byte('A'), Base(g, "chr1", 0))
	assert.Equal(t, byte('N'), Base(g, "chr1", 4))
	assert.Equal(t, byte(0), Base(g, "chr1", -1))
	assert.Equal(t, byte(0), Base(g, "chr1", 5))
	assert.Equal(t, byte(0), Base(g, "chr2", 0))
}

func TestIsUnknown(t *testing.T) {
	assert.True(t, IsUnknown('N'))
	assert.True(t, IsUnknown('n'))
	assert.False(t, IsUnknown('A'))
	assert.False(t, IsUnknown(0))
}
