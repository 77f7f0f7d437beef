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

import "time"

// ComputationMetadata is the payload a dispatcher extracts from a pending
// atomic leaf in order to hand work to a worker. It mirrors the source's
// get_computation_metadata() dict, minus the "source" field (the dispatcher
// already has the node itself and doesn't need it echoed back).
type ComputationMetadata struct {
	Iterations int
	Levels     int
	BatchSize  int
	Alpha      float64
	RandomSeed int64
	Weights    *Policy
}

// ComputationResult is what a worker reports back for one atomic leaf.
type ComputationResult struct {
	BestSequence     []int
	Sequences        int
	RandomSeed       int64
	ComputationTime  time.Duration
	IdleTime         time.Duration
}

// Leaf is the subset of an atomic node's API the dispatcher needs in order
// to dispatch and record work without depending on the concrete *AtomicNode
// type. Selector.Select's result, when non-nil, always satisfies Leaf.
type Leaf interface {
	Node
	ComputationMetadata() ComputationMetadata
	MarkDispatched()
	RecordComputationResult(ComputationResult)
}

// AtomicNode is a leaf of the rollout tree: it owns no children and
// represents exactly one dispatchable computation.
type AtomicNode struct {
	nodeBase
	computationTime time.Duration
}

// newAtomicNode creates a pending atomic leaf under parent with the given
// deterministic node id. It adapts its policy from its youngest sibling (or
// clones the parent's, if it is the first child), per §4.1.
func newAtomicNode(parent Node, nodeID int64, root *RootNode, alpha float64) *AtomicNode {
	n := &AtomicNode{}
	n.root = root
	n.nodeID = nodeID
	n.depth = parent.Depth() + 1
	n.state = StatePending
	n.adaptFrom(parent, alpha)
	return n
}

// IsAtomic always returns true for an AtomicNode.
func (n *AtomicNode) IsAtomic() bool { return true }

// Children always returns nil for an atomic leaf.
func (n *AtomicNode) Children() []Node { return nil }

// Update is a no-op for atomic leaves; they have no children to recurse
// into. Result handling happens in RecordComputationResult instead.
func (n *AtomicNode) Update() {}

// PredictedBestSequence returns a fresh copy of the node's best sequence;
// for a leaf this is simply its own recorded result so far.
func (n *AtomicNode) PredictedBestSequence() []int {
	return copySequence(n.bestSequence)
}

// Discard implements §4.5 for atomic leaves: a running leaf is detached
// from its parent but kept alive in the root's discardedPool until its
// result arrives; a pending or already-completed leaf is simply detached,
// with completed discards counted in the root's statistics.
func (n *AtomicNode) Discard() {
	root := n.root
	n.parent = nil

	switch n.state {
	case StateRunning:
		root.addDiscarded(n)
	case StateCompleted:
		root.stats.DiscardedAtomic++
	case StatePending:
		// Nothing further to do: not retained anywhere.
	}
}

// ComputationMetadata returns the payload to dispatch for this leaf. The
// leaf must be pending; dispatching a non-pending leaf is a programming
// error (InvariantViolation).
func (n *AtomicNode) ComputationMetadata() ComputationMetadata {
	if n.state != StatePending {
		log.Panic("atomic node %d: ComputationMetadata called in state %s", n.nodeID, n.state)
	}

	return ComputationMetadata{
		Iterations: n.root.config.Iterations,
		Levels:     n.root.config.AtomicLevels,
		BatchSize:  1,
		Alpha:      n.root.config.Alpha,
		RandomSeed: n.root.atomicRandomSeed(n.nodeID),
		Weights:    n.policy,
	}
}

// MarkDispatched transitions the leaf from pending to running and marks it
// and its ancestors dirty, so the next tree update notices a computation is
// in flight and spawns a replacement pending sibling. The leaf must be
// pending.
func (n *AtomicNode) MarkDispatched() {
	if n.state != StatePending {
		log.Panic("atomic node %d: MarkDispatched called in state %s", n.nodeID, n.state)
	}
	n.state = StateRunning
	n.markDirty()
}

// RecordComputationResult stores a worker's result into this leaf, marks
// the leaf and its ancestors dirty, and updates the root's accounting. The
// leaf must have been running; recording into any other state is an
// InvariantViolation.
func (n *AtomicNode) RecordComputationResult(result ComputationResult) {
	if n.state != StateRunning {
		log.Panic("atomic node %d: RecordComputationResult called in state %s", n.nodeID, n.state)
	}

	n.state = StateCompleted
	n.bestSequence = copySequence(result.BestSequence)
	n.computationTime = result.ComputationTime
	n.markDirty()

	n.root.stats.CompletedAtomic++

	if n.root.removeDiscarded(n) {
		n.root.stats.DiscardedAtomic++
	}
}

var _ dirtyMarker = (*AtomicNode)(nil)
var _ Leaf = (*AtomicNode)(nil)
