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

// Package dispatcher coordinates a pool of worker goroutines against a
// rollout tree: it selects pending leaves, dispatches them, and folds
// results back in as they arrive, until the tree is complete.
package dispatcher

import (
	"time"

	"github.com/morpion-nrpa/scheduler/pkg/rollout"
)

// WorkerID identifies one worker goroutine, stable for the dispatcher's
// lifetime.
type WorkerID int

// RunCommand is the dispatcher→worker "do this atomic rollout" message. It
// mirrors rollout.ComputationMetadata field-for-field.
type RunCommand struct {
	Iterations int
	Levels     int
	BatchSize  int
	Alpha      float64
	RandomSeed int64
	Weights    *rollout.Policy
}

// QuitCommand is the dispatcher→worker shutdown message. Workers exit their
// loop upon receiving one; no further messages follow.
type QuitCommand struct{}

// command is what actually travels down a worker's command channel: exactly
// one of Run or Quit is set.
type command struct {
	run  *RunCommand
	quit *QuitCommand
}

// WorkerResult is the worker→dispatcher message reporting one computation's
// outcome, or a delivery failure.
type WorkerResult struct {
	Source          WorkerID
	BestSequence    []int
	Sequences       int
	RandomSeed      int64
	ComputationTime time.Duration
	IdleTime        time.Duration
	// Err is set instead of a usable result when the worker's call to the
	// external NRPA panicked (TransientTransport, §7). An ordinary error
	// returned by the runner is reported as an empty-sequence result instead.
	Err error
}
