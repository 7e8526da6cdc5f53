package telemetry

import (
	"github.com/armon/go-metrics"
)

const (
	bridgeMetricsPrefix  = "bridge"
	mappingMetricsPrefix = "mapping"
	confirmMetricsPrefix = "confirm"
)

func UpdateOperationState(direction string, state string) {
	metrics.IncrCounter([]string{bridgeMetricsPrefix, "operation_state", direction, state}, 1)
}

func UpdateOperationFailed(direction string, kind string) {
	metrics.IncrCounter([]string{bridgeMetricsPrefix, "operation_failed", direction, kind}, 1)
}

func UpdateOperationDuration(direction string, seconds float64) {
	metrics.AddSample([]string{bridgeMetricsPrefix, "operation_duration_seconds", direction}, float32(seconds))
}

func UpdateMappingRegistered(manager string) {
	metrics.IncrCounter([]string{mappingMetricsPrefix, "registered", manager}, 1)
}

func UpdateMappingCacheHit() {
	metrics.IncrCounter([]string{mappingMetricsPrefix, "cache_hit"}, 1)
}

func UpdateConfirmationWaiters(chain string, cnt int) {
	metrics.SetGauge([]string{confirmMetricsPrefix, "waiters", chain}, float32(cnt))
}

func UpdateChainHeight(chain string, height uint64) {
	metrics.SetGauge([]string{confirmMetricsPrefix, "height", chain}, float32(height))
}
