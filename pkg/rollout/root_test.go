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

package rollout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigValidateAggregatesFailures(t *testing.T) {
	cfg := Config{Iterations: 0, ParallelLevels: 0, AtomicLevels: 0, Alpha: 0}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "iterations")
	require.Contains(t, err.Error(), "parallel_levels")
	require.Contains(t, err.Error(), "atomic_levels")
	require.Contains(t, err.Error(), "alpha")
}

func TestConfigValidatePasses(t *testing.T) {
	cfg := Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1}
	require.NoError(t, cfg.Validate())
}

func TestExpectedDispatches(t *testing.T) {
	cfg := Config{Iterations: 3, ParallelLevels: 2, AtomicLevels: 1}
	require.Equal(t, int64(9), cfg.ExpectedAtomicDispatches())
	require.Equal(t, int64(27), cfg.ExpectedTotalSequences())
}

func TestNewRootSeedsOnePendingLeaf(t *testing.T) {
	root := NewRoot(Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	require.Equal(t, StatePending, root.State())
	require.Len(t, root.ActivePool(), 1)
	require.True(t, root.ActivePool()[0].IsAtomic())
	require.Equal(t, StatePending, root.ActivePool()[0].State())
}

func TestRootDiscardIsInvariantViolation(t *testing.T) {
	root := NewRoot(Config{Iterations: 2, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	require.Panics(t, func() { root.Discard() })
}

// findPendingLeaf walks the tree in left-to-right preorder and returns the
// first pending atomic leaf, mirroring DFSSelector without importing
// pkg/selector (which imports pkg/rollout, so doing so here would cycle).
func findPendingLeaf(n Node) Node {
	if n.State() == StateCompleted {
		return nil
	}
	if n.IsAtomic() {
		if n.State() == StatePending {
			return n
		}
		return nil
	}
	for _, child := range n.Children() {
		if found := findPendingLeaf(child); found != nil {
			return found
		}
	}
	return nil
}

// driveToCompletion repeatedly selects the next pending leaf, dispatches it
// synchronously (no worker pool involved), and records a result whose
// length is a deterministic function of the leaf's node id, until the tree
// is complete. It returns the number of leaves dispatched.
func driveToCompletion(t *testing.T, root *RootNode, sequenceLength func(nodeID int64) int) int {
	t.Helper()
	dispatches := 0
	for {
		candidate := findPendingLeaf(root)
		if candidate == nil {
			break
		}
		leaf := candidate.(Leaf)
		meta := leaf.ComputationMetadata()
		leaf.MarkDispatched()
		root.Update()

		seq := sequenceOfLength(sequenceLength(candidate.NodeID()))
		leaf.RecordComputationResult(ComputationResult{
			BestSequence: seq,
			Sequences:    1,
			RandomSeed:   meta.RandomSeed,
		})
		root.Update()
		dispatches++

		if root.State() == StateCompleted {
			break
		}
	}
	return dispatches
}

func TestFullRunStructuralInvariantsAndAccounting(t *testing.T) {
	cfg := Config{Iterations: 3, ParallelLevels: 2, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 7}
	root := NewRoot(cfg)

	dispatches := driveToCompletion(t, root, func(nodeID int64) int { return int(nodeID % 7) })

	require.Equal(t, StateCompleted, root.State())
	require.Equal(t, cfg.ExpectedAtomicDispatches(), int64(dispatches))

	stats := root.Stats()
	require.Equal(t, cfg.ExpectedAtomicDispatches(), stats.CompletedAtomic)
	require.True(t, stats.DiscardedAtomic <= stats.CompletedAtomic)
	require.LessOrEqual(t, stats.DiscardedAtomic, stats.CompletedAtomic)
}

func TestRecordWorkerTimingAccumulates(t *testing.T) {
	cfg := Config{Iterations: 1, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1}
	root := NewRoot(cfg)

	root.RecordWorkerTiming(10*time.Millisecond, 2*time.Millisecond)
	root.RecordWorkerTiming(5*time.Millisecond, 1*time.Millisecond)

	stats := root.Stats()
	require.Equal(t, 15*time.Millisecond, stats.ComputationTime)
	require.Equal(t, 3*time.Millisecond, stats.IdleTime)
	require.Greater(t, stats.WallTime, time.Duration(0))
}

func TestDiscardMovesRunningLeafToDiscardedPool(t *testing.T) {
	cfg := Config{Iterations: 3, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1}
	root := NewRoot(cfg)

	leaf := findPendingLeaf(root).(Leaf)
	leaf.ComputationMetadata()
	leaf.MarkDispatched()
	root.Update()

	require.Equal(t, 0, root.DiscardedPoolSize())
	leaf.Discard()
	require.Equal(t, 1, root.DiscardedPoolSize())

	// The now-discarded leaf's eventual result must still be absorbed
	// without panicking, incrementing discardedAtomic exactly once.
	leaf.RecordComputationResult(ComputationResult{BestSequence: []int{1}, Sequences: 1})
	require.Equal(t, 0, root.DiscardedPoolSize())
	require.Equal(t, int64(1), root.Stats().DiscardedAtomic)
	require.Equal(t, int64(1), root.Stats().CompletedAtomic)
}

func TestBestSequenceMonotonicity(t *testing.T) {
	// Flat tree: root's children are atomic leaves directly (P=1), and the
	// 3 dispatches below are strictly serial, so the only speculative
	// discards are of still-pending leaves, which are never dispatched.
	cfg := Config{Iterations: 3, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1}
	root := NewRoot(cfg)

	lengths := []int{5, 200, 10}
	i := 0
	dispatches := driveToCompletion(t, root, func(nodeID int64) int {
		l := lengths[i%len(lengths)]
		i++
		return l
	})

	require.Equal(t, 3, dispatches)
	require.Equal(t, StateCompleted, root.State())
	require.Len(t, root.BestSequence(), 200)
}
