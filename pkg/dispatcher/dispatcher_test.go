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
	"github.com/morpion-nrpa/scheduler/pkg/rollout"
	"github.com/morpion-nrpa/scheduler/pkg/selector"
)

func constantLengthRunner(n int) nrpa.Runner {
	seq := make([]int, n)
	for i := range seq {
		seq[i] = i
	}
	return nrpa.NewStubRunner(func(seed int64) []int { return seq })
}

// S1: a single worker against a flat two-leaf tree dispatches exactly twice
// and reaches the constant-length result deterministically.
func TestDispatcherSingleWorkerFlatTree(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	d := New(root, selector.NewProbabilitySelector(), constantLengthRunner(1), Config{Workers: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Run(ctx))

	require.Equal(t, rollout.StateCompleted, root.State())
	stats := root.Stats()
	require.Equal(t, int64(2), stats.CompletedAtomic)
	require.Equal(t, int64(0), stats.DiscardedAtomic)
	require.Len(t, root.BestSequence(), 1)
	require.GreaterOrEqual(t, stats.WallTime, time.Duration(0))
	require.GreaterOrEqual(t, stats.ComputationTime, time.Duration(0))
}

// S2: the same flat tree with more workers than leaves reaches the exact
// same final state; extra workers just never get used.
func TestDispatcherMoreWorkersThanLeavesSameFinalState(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	d := New(root, selector.NewProbabilitySelector(), constantLengthRunner(1), Config{Workers: 4})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Run(ctx))

	require.Equal(t, rollout.StateCompleted, root.State())
	stats := root.Stats()
	require.Equal(t, int64(2), stats.CompletedAtomic)
	require.Equal(t, int64(0), stats.DiscardedAtomic)
	require.Len(t, root.BestSequence(), 1)
}

// A nested tree (parallel levels below the root) completes with every
// atomic leaf dispatched exactly once when every result reports the same
// sequence length: the speculative-invalidation step then only discards
// still-pending siblings spawned with an empty adapt sequence, never a
// running leaf, so nothing counts as discarded.
func TestDispatcherNestedTreeCompletesWithTwoWorkers(t *testing.T) {
	cfg := rollout.Config{Iterations: 3, ParallelLevels: 2, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 7}
	root := rollout.NewRoot(cfg)
	d := New(root, selector.NewProbabilitySelector(), constantLengthRunner(4), Config{Workers: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Run(ctx))

	require.Equal(t, rollout.StateCompleted, root.State())
	stats := root.Stats()
	require.Equal(t, cfg.ExpectedAtomicDispatches(), stats.CompletedAtomic)
	require.Equal(t, int64(0), stats.DiscardedAtomic)
	require.Len(t, root.BestSequence(), 4)
}

// S6a: a dispatcher started paused makes no progress until Resume is
// called; Run only returns because its context deadline is hit, never
// because the (two-leaf) tree completed.
func TestDispatcherStartPausedMakesNoProgress(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	d := New(root, selector.NewProbabilitySelector(), constantLengthRunner(1), Config{Workers: 1, StartPaused: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Equal(t, rollout.StatePending, root.State())
	require.Equal(t, int64(0), root.Stats().CompletedAtomic)
}

// S6b: calling Resume lets a paused dispatcher proceed to completion.
func TestDispatcherResumeAllowsProgress(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	d := New(root, selector.NewProbabilitySelector(), constantLengthRunner(1), Config{Workers: 1, StartPaused: true})

	d.Resume()

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not complete after Resume")
	}

	require.Equal(t, rollout.StateCompleted, root.State())
	require.Equal(t, int64(2), root.Stats().CompletedAtomic)
}

// Shutdown is prompt even with a worker blocked mid-computation, and
// Run only returns once every worker has exited (it always sends a quit to
// every worker and waits for them, per Run's contract).
func TestDispatcherShutdownIsPromptOnCancellation(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	blocking := nrpa.RunnerFunc(func(ctx context.Context, req nrpa.Request) (nrpa.Result, error) {
		<-ctx.Done()
		return nrpa.Result{}, ctx.Err()
	})
	d := New(root, selector.NewProbabilitySelector(), blocking, Config{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not shut down promptly after cancellation")
	}
}

func TestDispatcherHandleResultReportsProtocolViolationForUnknownWorker(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 1, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	d := New(root, selector.NewDFSSelector(), constantLengthRunner(1), Config{Workers: 1})

	err := d.handleResult(WorkerResult{Source: WorkerID(99)})
	require.Error(t, err)
	var violation *ProtocolViolation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, WorkerID(99), violation.Worker)
}

func TestDispatcherHandleResultDiscardsLeafOnTransientTransportError(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	d := New(root, selector.NewDFSSelector(), constantLengthRunner(1), Config{Workers: 1})

	candidate := d.sel.Select(root)
	require.NotNil(t, candidate)
	leaf := candidate.(rollout.Leaf)
	leaf.ComputationMetadata()
	leaf.MarkDispatched()
	root.Update()

	d.running[WorkerID(0)] = leaf

	err := d.handleResult(WorkerResult{Source: WorkerID(0), Err: &TransientTransportError{Worker: WorkerID(0), Cause: errors.New("lost worker")}})
	require.NoError(t, err)
	require.NotContains(t, d.running, WorkerID(0))
	require.Equal(t, 1, root.DiscardedPoolSize())
}

// Ordinary worker-side computation errors must not take the lost-worker
// discard path: they are absorbed as empty results by executeRun before
// handleResult ever sees them, so a tree driven entirely by a failing
// runner still reaches completion instead of stranding leaves permanently
// StateRunning.
func TestDispatcherAbsorbsComputationErrorsAndStillCompletes(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	failing := nrpa.RunnerFunc(func(ctx context.Context, req nrpa.Request) (nrpa.Result, error) {
		return nrpa.Result{}, errors.New("external rollout failed")
	})
	d := New(root, selector.NewProbabilitySelector(), failing, Config{Workers: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Run(ctx))

	require.Equal(t, rollout.StateCompleted, root.State())
	stats := root.Stats()
	require.Equal(t, int64(2), stats.CompletedAtomic)
	require.Equal(t, int64(0), stats.DiscardedAtomic)
	require.Empty(t, root.BestSequence())
}

func TestNewPanicsOnZeroWorkers(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 1, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	require.Panics(t, func() {
		New(root, selector.NewDFSSelector(), constantLengthRunner(1), Config{Workers: 0})
	})
}
