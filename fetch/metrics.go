// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch implements the Data Fetcher: on each post tick it snapshots
// the Collector, builds the wire payload, and enqueues it onto the bounded
// send queue.
package fetch

import (
	"github.com/livemetrics-go/agent/collector"
	"github.com/livemetrics-go/agent/internal/wire"
)

// Metric names, in the fixed order spec.md §6.4 requires.
const (
	metricRequestsPerSec           = `\ApplicationInsights\Requests/Sec`
	metricRequestDuration          = `\ApplicationInsights\Request Duration`
	metricRequestsFailedPerSec     = `\ApplicationInsights\Requests Failed/Sec`
	metricRequestsSucceededPerSec  = `\ApplicationInsights\Requests Succeeded/Sec`
	metricDependencyCallsPerSec    = `\ApplicationInsights\Dependency Calls/Sec`
	metricDependencyCallDuration   = `\ApplicationInsights\Dependency Call Duration`
	metricDependencyFailedPerSec   = `\ApplicationInsights\Dependency Calls Failed/Sec`
	metricDependencySucceededPerSec = `\ApplicationInsights\Dependency Calls Succeeded/Sec`
	metricExceptionsPerSec         = `\ApplicationInsights\Exceptions/Sec`
	metricMemoryCommittedBytes     = `\Memory\Committed Bytes`
	metricProcessorTime            = `\Processor(_Total)\% Processor Time`
)

// buildMetrics derives the fixed 11-element metrics array from one
// collection window. windowSeconds is the elapsed time since the previous
// GetAndRestart (or 1 when unknown, per spec.md §6.4). Rate metrics report
// the raw count with weight=windowSeconds; duration metrics report the
// average in ms with weight=count.
func buildMetrics(snap *collector.FinalCounters, windowSeconds float64) []wire.MetricPoint {
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	successfulRequests := snap.Requests - snap.UnsuccessfulRequests
	successfulRdds := snap.Rdds - snap.UnsuccessfulRdds

	return []wire.MetricPoint{
		{Name: metricRequestsPerSec, Value: float64(snap.Requests), Weight: windowSeconds},
		{Name: metricRequestDuration, Value: average(snap.RequestsDurationMs, snap.Requests), Weight: float64(snap.Requests)},
		{Name: metricRequestsFailedPerSec, Value: float64(snap.UnsuccessfulRequests), Weight: windowSeconds},
		{Name: metricRequestsSucceededPerSec, Value: float64(successfulRequests), Weight: windowSeconds},
		{Name: metricDependencyCallsPerSec, Value: float64(snap.Rdds), Weight: windowSeconds},
		{Name: metricDependencyCallDuration, Value: average(snap.RddsDurationMs, snap.Rdds), Weight: float64(snap.Rdds)},
		{Name: metricDependencyFailedPerSec, Value: float64(snap.UnsuccessfulRdds), Weight: windowSeconds},
		{Name: metricDependencySucceededPerSec, Value: float64(successfulRdds), Weight: windowSeconds},
		{Name: metricExceptionsPerSec, Value: float64(snap.Exceptions), Weight: windowSeconds},
		{Name: metricMemoryCommittedBytes, Value: float64(snap.MemoryCommittedBytes), Weight: 1},
		{Name: metricProcessorTime, Value: snap.CPUUsage, Weight: 1},
	}
}

func average(sumMs, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return float64(sumMs) / float64(count)
}
