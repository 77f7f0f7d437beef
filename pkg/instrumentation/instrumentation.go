// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package instrumentation exposes scheduler runtime statistics (sequences
// dispatched, nodes completed or discarded, worker occupancy) as Prometheus
// metrics, collected through OpenCensus stats and views.
package instrumentation

import (
	"fmt"
	"strings"
	"sync"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"

	logger "github.com/morpion-nrpa/scheduler/pkg/log"
)

var log = logger.NewLogger("instrumentation")

var (
	once    sync.Once
	service *Service
)

// Measures recorded by the dispatcher. They are exported here
// so that callers never need to import go.opencensus.io/stats directly.
var (
	// SequencesCompleted counts atomic sequences the external NRPA function
	// has finished evaluating.
	SequencesCompleted = stats.Int64(
		"nrpa/sequences_completed",
		"Number of atomic sequences completed by workers.",
		stats.UnitDimensionless,
	)
	// SequencesDiscarded counts atomic sequences abandoned because their
	// owning subtree was invalidated before the result arrived.
	SequencesDiscarded = stats.Int64(
		"nrpa/sequences_discarded",
		"Number of in-flight sequences discarded due to invalidation.",
		stats.UnitDimensionless,
	)
	// BestSequenceLength tracks the length of the best sequence found so far.
	BestSequenceLength = stats.Int64(
		"nrpa/best_sequence_length",
		"Length of the best sequence found so far.",
		stats.UnitDimensionless,
	)
	// IdleWorkers tracks how many workers are currently idle.
	IdleWorkers = stats.Int64(
		"nrpa/idle_workers",
		"Number of workers currently idle, awaiting dispatch.",
		stats.UnitDimensionless,
	)
	// ComputeLatency records the wall-clock time a worker spent computing
	// a single atomic sequence.
	ComputeLatency = stats.Float64(
		"nrpa/compute_latency_seconds",
		"Time a worker spent computing one atomic sequence.",
		stats.UnitSeconds,
	)
)

var defaultViews = []*view.View{
	{
		Name:        "nrpa/sequences_completed_total",
		Measure:     SequencesCompleted,
		Description: "Total atomic sequences completed.",
		Aggregation: view.Count(),
	},
	{
		Name:        "nrpa/sequences_discarded_total",
		Measure:     SequencesDiscarded,
		Description: "Total atomic sequences discarded.",
		Aggregation: view.Count(),
	},
	{
		Name:        "nrpa/best_sequence_length",
		Measure:     BestSequenceLength,
		Description: "Length of the best sequence found so far.",
		Aggregation: view.LastValue(),
	},
	{
		Name:        "nrpa/idle_workers",
		Measure:     IdleWorkers,
		Description: "Number of idle workers.",
		Aggregation: view.LastValue(),
	},
	{
		Name:        "nrpa/compute_latency_seconds",
		Measure:     ComputeLatency,
		Description: "Distribution of per-sequence compute latency.",
		Aggregation: view.Distribution(0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300),
	},
}

// IsEnabled returns true if metrics collection is enabled.
func IsEnabled() bool {
	return opt.HTTPEndpoint != ""
}

// Setup registers our views and starts the metrics HTTP endpoint, if one is
// configured. name identifies the running binary in the Prometheus
// namespace.
func Setup(name string) error {
	if !IsEnabled() {
		log.Info("metrics collection is disabled")
		return nil
	}

	var err error
	once.Do(func() {
		if regErr := view.Register(defaultViews...); regErr != nil {
			err = instrumentationError("failed to register views: %v", regErr)
			return
		}
		service = createService(name)
		err = service.Start()
	})

	return err
}

// Finish shuts down the metrics HTTP endpoint and unregisters our views.
func Finish() {
	if service == nil {
		return
	}
	service.Stop()
	view.Unregister(defaultViews...)
}

// RegisterGatherer registers an additional Prometheus gatherer, whose
// collected metrics are merged into the /metrics response alongside the
// OpenCensus-derived ones.
func RegisterGatherer(g Gatherer) {
	dynamicGatherers.Register(g)
}

// prometheusNamespace mutates a binary name into a valid Prometheus
// namespace (lower-case, dash-free).
func prometheusNamespace(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

func instrumentationError(format string, args ...interface{}) error {
	return fmt.Errorf("instrumentation: "+format, args...)
}
