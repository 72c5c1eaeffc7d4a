package gene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripAlignmentID(t *testing.T) {
	assert.Equal(t, "ENSMUST00000169901.2", StripAlignmentID("ENSMUST00000169901.2-1"))
	assert.Equal(t, "ENSMUST00000169901.2", StripAlignmentID("augTM-ENSMUST00000169901.2-1"))
	assert.Equal(t, "ENSMUST00000169901.2", StripAlignmentID("augTMR-ENSMUST00000169901.2-12"))
	assert.Equal(t, "jg26.t1", StripAlignmentID("jg26.t1"), "prediction ids carry no run suffix")
}

func TestParseAlignmentID(t *testing.T) {
	tests := []struct {
		alnID  string
		base   string
		method SourceMethod
	}{
		{"ENSMUST00000169901.2-1", "ENSMUST00000169901.2", SourceTransMap},
		{"augTM-ENSMUST00000169901.2-1", "ENSMUST00000169901.2", SourceAugTM},
		{"augTMR-ENSMUST00000169901.2-2", "ENSMUST00000169901.2", SourceAugTMR},
		{"jg26.t1", "jg26.t1", SourceAugCGP},
	}
	for _, tc := range tests {
		t.Run(tc.alnID, func(t *testing.T) {
			base, method, err := ParseAlignmentID(tc.alnID)
			require.NoError(t, err)
			assert.Equal(t, tc.base, base)
			assert.Equal(t, tc.method, method)
		})
	}

	_, _, err := ParseAlignmentID("ENSMUST00000169901.2")
	assert.Error(t, err, "an id without run suffix or predictor prefix is not an alignment id")
}
