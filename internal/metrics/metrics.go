// Package metrics exposes Prometheus metrics for the translator service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts cipher operations by kind ("encrypt" or "decrypt")
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betabet_operations_total",
		Help: "Total number of cipher operations",
	}, []string{"operation"})

	// CharactersProcessed counts characters fed into the cipher
	CharactersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betabet_characters_processed_total",
		Help: "Total number of characters encrypted or decrypted",
	}, []string{"operation"})

	// ValidationsTotal counts mapping validations by result
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betabet_mapping_validations_total",
		Help: "Total number of mapping validations",
	}, []string{"result"}) // "valid", "empty" or "duplicate_values"

	// SharesStoredTotal counts stored ciphertexts
	SharesStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betabet_shares_stored_total",
		Help: "Total number of shared ciphertexts stored",
	}, []string{"reused"})

	// ShareLookupsTotal counts share lookups by result
	ShareLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betabet_share_lookups_total",
		Help: "Total number of share lookups",
	}, []string{"result"}) // "hit" or "miss"

	// ShareStoreSize tracks the size of the share store
	ShareStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betabet_share_store_size",
		Help: "Current number of shared ciphertexts stored",
	})

	// LiveSessions tracks open live translator connections
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betabet_live_sessions",
		Help: "Current number of open live translator sessions",
	})

	// LiveMessagesTotal counts messages received on live sessions
	LiveMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betabet_live_messages_total",
		Help: "Total number of live translator messages",
	}, []string{"field"})

	// RequestDuration tracks API request latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betabet_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)

// RecordOperation records one cipher operation over chars characters
func RecordOperation(operation string, chars int) {
	OperationsTotal.WithLabelValues(operation).Inc()
	CharactersProcessed.WithLabelValues(operation).Add(float64(chars))
}

// RecordValidation records a validation outcome
func RecordValidation(result string) {
	ValidationsTotal.WithLabelValues(result).Inc()
}

// RecordShareStored records a stored share
func RecordShareStored(reused bool) {
	label := "false"
	if reused {
		label = "true"
	}
	SharesStoredTotal.WithLabelValues(label).Inc()
}

// RecordShareLookup records a share lookup
func RecordShareLookup(hit bool) {
	label := "miss"
	if hit {
		label = "hit"
	}
	ShareLookupsTotal.WithLabelValues(label).Inc()
}

// RecordRequestDuration records request processing duration
func RecordRequestDuration(route, status string, seconds float64) {
	RequestDuration.WithLabelValues(route, status).Observe(seconds)
}
