// Package sizeutil converts human readable memory sizes into the unit SLURM expects.
package sizeutil

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/helper/mathutil"
)

// ConvertToGB converts a MB size as "42" or a human readable size as "42MB" or "42 GB" into GB
//
// A bare integer is interpreted as megabytes, which matches the SLURM
// default unit for --mem.
func ConvertToGB(size string) (int, error) {
	mSize, err := strconv.Atoi(size)
	// Not an int value, so maybe a human readable size: we try to retrieve bytes
	if err != nil {
		var bSize uint64
		bSize, err = humanize.ParseBytes(size)
		if err != nil {
			return 0, errors.Errorf("Can't convert size to bytes value: %v", err)
		}
		gSize := float64(bSize) / humanize.GByte
		return int(mathutil.Round(gSize, 0, 0)), nil
	}

	gSize := float64(mSize) / 1000
	return int(mathutil.Round(gSize, 0, 0)), nil
}
