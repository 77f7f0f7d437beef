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
	"go.opencensus.io/stats/view"

	ihttp "github.com/morpion-nrpa/scheduler/pkg/instrumentation/http"
)

// Service bundles the HTTP server and the Prometheus exporter it serves.
type Service struct {
	sync.RWMutex
	name     string
	http     *ihttp.Server
	exporter *prometheus.Exporter
	running  bool
}

// createService creates an instrumentation service for the named binary.
func createService(name string) *Service {
	return &Service{
		name: name,
		http: ihttp.NewServer(),
	}
}

// Start starts the metrics HTTP endpoint.
func (s *Service) Start() error {
	s.Lock()
	defer s.Unlock()

	if s.running {
		return nil
	}

	exp, err := newExporter(s.name)
	if err != nil {
		return err
	}

	s.http.GetMux().Handle(PrometheusMetricsPath, exp)
	view.RegisterExporter(exp)
	setReportingPeriod()

	if err := s.http.Start(opt.HTTPEndpoint); err != nil {
		view.UnregisterExporter(exp)
		return err
	}

	s.exporter = exp
	s.running = true

	return nil
}

// Stop stops the metrics HTTP endpoint.
func (s *Service) Stop() {
	s.Lock()
	defer s.Unlock()

	if !s.running {
		return
	}

	s.http.Shutdown(true)
	if s.exporter != nil {
		view.UnregisterExporter(s.exporter)
		s.exporter = nil
	}
	s.running = false
}
