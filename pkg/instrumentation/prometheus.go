// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
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

package instrumentation

import (
	"sync"

	"contrib.go.opencensus.io/exporter/prometheus"
	pclient "github.com/prometheus/client_golang/prometheus"
	model "github.com/prometheus/client_model/go"
	"go.opencensus.io/stats/view"
)

// PrometheusMetricsPath is the URL path for exposing metrics to Prometheus.
const PrometheusMetricsPath = "/metrics"

// Gatherer is the subset of the Prometheus client's Gatherer interface we
// accept registrations for. It lets callers outside this package (e.g. the
// dispatcher's worker pool) contribute additional collectors without
// depending on the exporter directly.
type Gatherer = pclient.Gatherer

// gatherers is a mergeable collection of Prometheus gatherers.
type gatherers struct {
	sync.RWMutex
	all pclient.Gatherers
}

// dynamicGatherers holds gatherers registered after startup.
var dynamicGatherers = &gatherers{}

func (g *gatherers) Register(gatherer Gatherer) {
	g.Lock()
	defer g.Unlock()
	g.all = append(g.all, gatherer)
}

// Gather implements the pclient.Gatherer interface.
func (g *gatherers) Gather() ([]*model.MetricFamily, error) {
	g.RLock()
	defer g.RUnlock()
	return g.all.Gather()
}

// newExporter creates the OpenCensus -> Prometheus bridge exporter, wired to
// also serve any dynamically registered gatherers.
func newExporter(name string) (*prometheus.Exporter, error) {
	cfg := prometheus.Options{
		Namespace: prometheusNamespace(name),
		Gatherer:  pclient.Gatherers{dynamicGatherers},
		OnError:   func(err error) { log.Error("prometheus exporter error: %v", err) },
	}

	exp, err := prometheus.NewExporter(cfg)
	if err != nil {
		return nil, instrumentationError("failed to create Prometheus exporter: %v", err)
	}

	return exp, nil
}

func setReportingPeriod() {
	view.SetReportingPeriod(opt.ReportingPeriod.Duration())
}
