package stringutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniqueTimestampedName(t *testing.T) {
	t.Parallel()
	name := UniqueTimestampedName(".hpcforge_", "")
	require.True(t, strings.HasPrefix(name, ".hpcforge_"))
	other := UniqueTimestampedName(".hpcforge_", "")
	require.NotEqual(t, name, other, "two consecutive generated names should differ")
}

func TestFirstLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"TestMultiLine", "Submitted batch job 42\nsome trailing noise", "Submitted batch job 42"},
		{"TestSingleLine", "slurm 23.02.1", "slurm 23.02.1"},
		{"TestCRLF", "line\r\nnext", "line"},
		{"TestEmpty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, FirstLine(tt.input))
		})
	}
}
