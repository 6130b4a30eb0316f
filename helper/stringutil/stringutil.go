// Package stringutil provides small string helpers shared across hpcforge packages.
package stringutil

import (
	"strconv"
	"strings"
	"time"
)

// UniqueTimestampedName generates a time-stamped name for a temporary file or directory
func UniqueTimestampedName(prefix string, suffix string) string {
	return prefix + strconv.FormatInt(time.Now().UnixNano(), 10) + suffix
}

// FirstLine returns the first line of a multi-line string, without its line ending
func FirstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return strings.TrimRight(s[:idx], "\r")
	}
	return s
}
