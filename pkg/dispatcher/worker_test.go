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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/morpion-nrpa/scheduler/pkg/nrpa"
)

func TestExecuteRunRecoversFromRunnerPanic(t *testing.T) {
	runner := nrpa.RunnerFunc(func(ctx context.Context, req nrpa.Request) (nrpa.Result, error) {
		panic("boom")
	})

	result := executeRun(context.Background(), WorkerID(2), runner, &RunCommand{RandomSeed: 7}, 0)

	require.Equal(t, WorkerID(2), result.Source)
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "panicked")

	var transient *TransientTransportError
	require.ErrorAs(t, result.Err, &transient)
	require.Equal(t, WorkerID(2), transient.Worker)
}

func TestExecuteRunAbsorbsRunnerErrorAsEmptyResult(t *testing.T) {
	wantErr := errors.New("external rollout failed")
	runner := nrpa.RunnerFunc(func(ctx context.Context, req nrpa.Request) (nrpa.Result, error) {
		return nrpa.Result{}, wantErr
	})

	result := executeRun(context.Background(), WorkerID(0), runner, &RunCommand{RandomSeed: 9}, 3*time.Millisecond)

	require.NoError(t, result.Err)
	require.Empty(t, result.BestSequence)
	require.Equal(t, int64(9), result.RandomSeed)
	require.Equal(t, 3*time.Millisecond, result.IdleTime)
}

func TestExecuteRunReturnsRunnerResult(t *testing.T) {
	runner := nrpa.NewStubRunner(func(seed int64) []int { return []int{1, 2, 3} })

	result := executeRun(context.Background(), WorkerID(1), runner, &RunCommand{RandomSeed: 42, BatchSize: 1}, 5*time.Millisecond)

	require.NoError(t, result.Err)
	require.Equal(t, []int{1, 2, 3}, result.BestSequence)
	require.Equal(t, int64(42), result.RandomSeed)
	require.Equal(t, 5*time.Millisecond, result.IdleTime)
}

func TestRunWorkerRunsUntilQuit(t *testing.T) {
	cmds := make(chan command, 2)
	results := make(chan WorkerResult, 2)
	runner := nrpa.NewStubRunner(func(seed int64) []int { return []int{1} })

	done := make(chan struct{})
	go func() {
		runWorker(context.Background(), WorkerID(0), runner, cmds, results)
		close(done)
	}()

	cmds <- command{run: &RunCommand{RandomSeed: 1, BatchSize: 1}}
	res := <-results
	require.NoError(t, res.Err)
	require.Equal(t, WorkerID(0), res.Source)
	require.GreaterOrEqual(t, res.IdleTime, time.Duration(0))

	cmds <- command{quit: &QuitCommand{}}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runWorker did not exit after a quit command")
	}
}
