// Package metrics holds the prometheus counters of the resolver.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels
const (
	ResultSuccess      = "success"
	ResultNotFound     = "not_found"
	ResultNotAvailable = "not_available"
	ResultError        = "error"
	ResultGenuine      = "genuine"
	ResultThirdParty   = "third_party"
	ResultHit          = "hit"
	ResultMiss         = "miss"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provenance_operations_total",
			Help: "Total number of resolver operations by outcome",
		},
		[]string{"operation", "result"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provenance_cache_requests_total",
			Help: "Total number of package database cache lookups by result",
		},
		[]string{"result"},
	)
)

// WriteTextfile writes the default registry in the node exporter textfile
// format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
