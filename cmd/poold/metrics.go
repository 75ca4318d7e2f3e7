// metrics.go - Metrics collection for the pool daemon
package main

import (
	"fmt"
	"sync"
	"time"
)

// MetricsCollector manages metrics collection
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter increments a counter metric
func (mc *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.counters[makeKey(name, labels)]++
}

// SetGauge sets a gauge metric value
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.gauges[makeKey(name, labels)] = value
}

// RecordHistogram records a value in a histogram
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	mc.histograms[key] = append(mc.histograms[key], value)

	// Keep only last 1000 values for memory efficiency
	if len(mc.histograms[key]) > 1000 {
		mc.histograms[key] = mc.histograms[key][len(mc.histograms[key])-1000:]
	}
}

// GetMetricsSummary returns a summary of all metrics
func (mc *MetricsCollector) GetMetricsSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := make(map[string]interface{})

	counters := make(map[string]int64, len(mc.counters))
	for key, counter := range mc.counters {
		counters[key] = counter
	}
	summary["counters"] = counters

	gauges := make(map[string]float64, len(mc.gauges))
	for key, gauge := range mc.gauges {
		gauges[key] = gauge
	}
	summary["gauges"] = gauges

	histograms := make(map[string]map[string]float64)
	for key, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{
			"count": float64(len(values)),
			"min":   values[0],
			"max":   values[0],
			"sum":   0,
		}
		for _, value := range values {
			if value < h["min"] {
				h["min"] = value
			}
			if value > h["max"] {
				h["max"] = value
			}
			h["sum"] += value
		}
		h["avg"] = h["sum"] / h["count"]
		histograms[key] = h
	}
	summary["histograms"] = histograms

	return summary
}

// makeKey creates a unique key for a metric name and labels
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	key := name
	for k, v := range labels {
		key += fmt.Sprintf("_%s_%s", k, v)
	}
	return key
}

// Predefined metric names
const (
	MetricCommitCount      = "commit_count"
	MetricRevealCount      = "reveal_count"
	MetricRootPublishCount = "root_publish_count"
	MetricNullifierCount   = "nullifier_count"
	MetricLeafCount        = "leaf_count"
	MetricRequestTime      = "request_time"
	MetricErrorCount       = "error_count"
	MetricRateLimited      = "rate_limited_count"
)

// Convenience methods for common metrics
func (mc *MetricsCollector) RecordCommit() {
	mc.IncrementCounter(MetricCommitCount, nil)
}

func (mc *MetricsCollector) RecordReveal() {
	mc.IncrementCounter(MetricRevealCount, nil)
}

func (mc *MetricsCollector) RecordRootPublish() {
	mc.IncrementCounter(MetricRootPublishCount, nil)
}

func (mc *MetricsCollector) RecordRequest(route string, duration time.Duration) {
	mc.RecordHistogram(MetricRequestTime, duration.Seconds(), map[string]string{"route": route})
}

func (mc *MetricsCollector) RecordError(errorType string) {
	mc.IncrementCounter(MetricErrorCount, map[string]string{"type": errorType})
}
