package sizeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToGB(t *testing.T) {
	t.Parallel()
	var testData = []struct {
		test          string
		inputSize     string
		expectedSize  int
		expectedError bool
	}{
		{"mem1MB", "1", 1, false},
		{"mem100MB", "100", 1, false},
		{"mem1500M", "1500 M", 2, false},
		{"mem1GB", "1GB", 1, false},
		{"mem1GBSpaces", "1      GB", 1, false},
		{"mem1GiB", "1 GiB", 2, false},
		{"mem2GIB", "2 GIB", 3, false},
		{"mem1TB", "1 tb", 1000, false},
		{"mem1TiB", "1 TiB", 1100, false},
		{"memError", "1 deca", 0, true},
	}
	for _, tt := range testData {
		s, err := ConvertToGB(tt.inputSize)
		if !tt.expectedError {
			assert.Nil(t, err, "unexpected error for %s", tt.test)
			assert.Equal(t, tt.expectedSize, s, "unexpected size for %s", tt.test)
		} else {
			assert.Error(t, err, "Expected an error for %s", tt.test)
		}
	}
}
