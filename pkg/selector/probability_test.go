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

package selector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morpion-nrpa/scheduler/pkg/rollout"
)

func TestSequenceChangeProbabilityThresholds(t *testing.T) {
	cases := []struct {
		length int
		want   float64
	}{
		{0, probCertain},
		{63, probCertain},
		{64, probPoor},
		{79, probPoor},
		{80, probFair},
		{119, probFair},
		{120, probGood},
		{139, probGood},
		{140, probVeryGood},
		{149, probVeryGood},
		{150, probExcellent},
		{1000, probExcellent},
	}
	for _, c := range cases {
		require.Equal(t, c.want, sequenceChangeProbability(c.length), "length=%d", c.length)
	}
}

func TestProbabilitySelectorPicksSoleCandidateWithZeroProbability(t *testing.T) {
	// Flat, untouched tree: a single pending leaf, no sibling, no parent
	// change probability in play anywhere. Its computed change probability
	// must be exactly 0 so it beats the seeded best_prob of 1.0.
	root := rollout.NewRoot(rollout.Config{Iterations: 3, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	sel := NewProbabilitySelector()

	node, prob := policyChangeProbability(root, 0.0)
	require.NotNil(t, node)
	require.Equal(t, 0.0, prob)
	require.Same(t, node, sel.Select(root))
}

func TestProbabilitySelectorSafetyInvariant(t *testing.T) {
	// Whatever Select returns, across a whole driven run, must either be
	// nil or a pending atomic leaf: never a completed, running, or inner
	// node, per the selector's documented contract.
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 2, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 5})
	sel := NewProbabilitySelector()

	lengths := []int{2, 70, 130, 160, 10}
	i := 0
	for steps := 0; steps < 64 && root.State() != rollout.StateCompleted; steps++ {
		n := sel.Select(root)
		if n == nil {
			// The algorithm may legitimately judge every pending leaf as
			// certain to be invalidated; nothing to dispatch this tick.
			continue
		}
		require.True(t, n.IsAtomic())
		require.Equal(t, rollout.StatePending, n.State())

		dispatchAndComplete(t, root, n, lengths[i%len(lengths)])
		i++
	}
}

func TestPolicyChangeProbabilityReturnsNilOnCompletedNode(t *testing.T) {
	root := rollout.NewRoot(rollout.Config{Iterations: 1, ParallelLevels: 1, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	sel := NewProbabilitySelector()

	leaf := sel.Select(root)
	require.NotNil(t, leaf)
	dispatchAndComplete(t, root, leaf, 5)
	require.Equal(t, rollout.StateCompleted, root.State())

	node, prob := policyChangeProbability(root, 0.0)
	require.Nil(t, node)
	require.Equal(t, 1.0, prob)
}

func TestProbabilitySelectorCanDeclineAllPredictedlyObsoleteCandidates(t *testing.T) {
	// With two sibling branches open at once (one holding a running leaf
	// plus its freshly spawned pending sibling, the other a brand new
	// branch with its own single pending leaf) every candidate's adapt
	// sequence is empty, so sequenceChangeProbability judges all of them
	// certain to be invalidated. The selector then correctly reports no
	// dispatchable leaf, even though two pending leaves structurally
	// exist: the dispatcher must tolerate Select returning nil on a tick.
	root := rollout.NewRoot(rollout.Config{Iterations: 2, ParallelLevels: 2, AtomicLevels: 1, Alpha: 1.0, RandomSeed: 1})
	sel := NewProbabilitySelector()

	first := sel.Select(root)
	require.NotNil(t, first)
	leaf := mustLeaf(t, first)
	leaf.ComputationMetadata()
	leaf.MarkDispatched()
	root.Update()

	require.Nil(t, sel.Select(root))
}
