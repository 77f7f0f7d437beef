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

package instrumentation

import (
	"github.com/morpion-nrpa/scheduler/pkg/config"
)

// options encapsulates our configurable instrumentation parameters.
type options struct {
	// HTTPEndpoint is the address the metrics HTTP server listens on.
	// An empty value disables metrics collection entirely.
	HTTPEndpoint string
	// ReportingPeriod is how often collected views are pushed to the
	// Prometheus exporter.
	ReportingPeriod config.Duration
}

// Our instrumentation options.
var opt = &options{
	HTTPEndpoint:    ":8888",
	ReportingPeriod: config.Duration(10e9), // 10s, expressed in nanoseconds
}

func init() {
	m := config.Register("instrumentation", "Metrics collection and exposition.")
	m.StringVar(&opt.HTTPEndpoint, "metrics-endpoint", opt.HTTPEndpoint,
		"address to expose Prometheus /metrics on, empty to disable.")
	m.DurationVar(&opt.ReportingPeriod, "metrics-period", opt.ReportingPeriod,
		"how often to push collected stats to the Prometheus exporter.")
}
