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

package dispatcher

import (
	"context"

	"go.opencensus.io/stats"

	"github.com/morpion-nrpa/scheduler/pkg/instrumentation"
)

// recordProgressMetrics feeds the dispatcher's latest snapshot into the
// OpenCensus measures pkg/instrumentation exports; a no-op in terms of
// behavior when instrumentation is disabled, since stats.Record without a
// registered exporter just drops the point.
func recordProgressMetrics(r ProgressReport) {
	stats.Record(context.Background(),
		instrumentation.BestSequenceLength.M(int64(len(r.BestSequence))),
		instrumentation.IdleWorkers.M(int64(r.IdleWorkers)),
	)
}

// recordComputeLatency records one worker's per-sequence compute latency,
// called from handleResult for every successfully completed result.
func recordComputeLatency(seconds float64) {
	stats.Record(context.Background(), instrumentation.ComputeLatency.M(seconds))
}

// recordSequenceOutcome records one completed or discarded sequence.
func recordSequenceOutcome(completed bool) {
	if completed {
		stats.Record(context.Background(), instrumentation.SequencesCompleted.M(1))
	} else {
		stats.Record(context.Background(), instrumentation.SequencesDiscarded.M(1))
	}
}
