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

package main

import (
	"time"

	"github.com/morpion-nrpa/scheduler/pkg/config"
)

// options captures the scheduler binary's own configuration surface: the
// five algorithmic parameters of §6 plus the ambient worker-pool and
// reporting parameters.
type options struct {
	configFile string

	iterations     int
	parallelLevels int
	atomicLevels   int
	alpha          float64
	randomSeed     int64

	workers        int
	reportInterval config.Duration
	startPaused    bool
}

var opt options

func init() {
	cfg := config.Register("scheduler", "NRPA rollout scheduler configuration")

	cfg.StringVar(&opt.configFile, "config", "", "YAML file to read configuration overrides from.")

	cfg.IntVar(&opt.iterations, "iterations", 10, "branching factor I at every parallel level.")
	cfg.IntVar(&opt.parallelLevels, "parallel-levels", 2, "depth P, in parallel nodes, below the root.")
	cfg.IntVar(&opt.atomicLevels, "atomic-levels", 1, "nested NRPA depth A an atomic leaf runs at.")
	cfg.Float64Var(&opt.alpha, "alpha", 1.0, "policy adaptation learning rate.")
	cfg.Int64Var(&opt.randomSeed, "random-seed", 1, "seed for the deterministic atomic-leaf seed table.")

	cfg.IntVar(&opt.workers, "workers", 4, "number of worker goroutines to run atomic rollouts on.")
	cfg.DurationVar(&opt.reportInterval, "report-interval", config.Duration(20*time.Second), "maximum time between progress reports.")
	cfg.BoolVar(&opt.startPaused, "start-paused", false, "start the dispatcher with dispatch paused.")
}
