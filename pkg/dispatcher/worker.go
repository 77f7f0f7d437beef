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
	"time"

	"github.com/pkg/errors"

	"github.com/morpion-nrpa/scheduler/pkg/nrpa"
)

// runWorker is the body of one worker goroutine: the in-process stand-in
// for an MPI rank in the source. It receives one command at a time, runs
// the external NRPA synchronously for a run command, and reports back on
// the shared result channel; a quit command ends the loop. A panic from
// the external NRPA call is recovered and reported as a *TransientTransportError
// (WorkerResult.Err set) rather than crashing the process, since a worker's
// own computation is not something the dispatcher should ever be brought
// down by.
func runWorker(ctx context.Context, id WorkerID, runner nrpa.Runner, cmds <-chan command, results chan<- WorkerResult) {
	sinceLastResult := time.Now()
	for cmd := range cmds {
		if cmd.quit != nil {
			return
		}
		idle := time.Since(sinceLastResult)
		results <- executeRun(ctx, id, runner, cmd.run, idle)
		sinceLastResult = time.Now()
	}
}

func executeRun(ctx context.Context, id WorkerID, runner nrpa.Runner, run *RunCommand, idle time.Duration) (result WorkerResult) {
	defer func() {
		if r := recover(); r != nil {
			result = WorkerResult{Source: id, Err: &TransientTransportError{
				Worker: id,
				Cause:  errors.Errorf("worker %d panicked: %v", id, r),
			}}
		}
	}()

	req := nrpa.Request{
		Iterations: run.Iterations,
		Levels:     run.Levels,
		BatchSize:  run.BatchSize,
		Alpha:      run.Alpha,
		RandomSeed: run.RandomSeed,
		Weights:    run.Weights,
	}

	start := time.Now()
	res, err := runner.Run(ctx, req)
	compute := time.Since(start)

	if err != nil {
		// Worker-side computation errors are not modelled (the external
		// NRPA is assumed total, §7): absorb the failure as a well-formed,
		// empty-sequence result rather than reporting it as a lost worker,
		// so the dispatcher folds it back in as an unproductive iteration
		// instead of stranding the leaf running forever.
		workerFailureLog.Warn("worker %d: external rollout failed, absorbing as an empty result: %v", id, err)
		return WorkerResult{
			Source:          id,
			RandomSeed:      run.RandomSeed,
			ComputationTime: compute,
			IdleTime:        idle,
		}
	}

	return WorkerResult{
		Source:          id,
		BestSequence:    res.BestSequence,
		Sequences:       res.Sequences,
		RandomSeed:      res.RandomSeed,
		ComputationTime: compute,
		IdleTime:        idle,
	}
}
