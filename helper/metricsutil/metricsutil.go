// Package metricsutil provides helpers for emitting telemetry metrics.
package metricsutil

import (
	"strings"
)

// CleanupMetricKey replaces any reserved statsd or prometheus characters in a metric key by '-'.
func CleanupMetricKey(key []string) []string {
	res := make([]string, len(key))
	for i, keyPart := range key {
		// . is the statsd separator, _ is the prometheus separator, / is not allowed by prometheus, | and : are reserved separators for statsd
		res[i] = strings.NewReplacer("/", "-", ".", "-", "_", "-", "|", "-", ":", "-").Replace(keyPart)
	}
	return res
}
