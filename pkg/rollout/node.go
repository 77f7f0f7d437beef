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

import logger "github.com/morpion-nrpa/scheduler/pkg/log"

var log = logger.NewLogger("rollout")

// State is the lifecycle state of a rollout node.
type State int

const (
	// StatePending means there is no running computation for this node,
	// but one could still be scheduled.
	StatePending State = iota
	// StateRunning means at least one descendant computation is in flight.
	StateRunning
	// StateCompleted means this node and every descendant is done.
	StateCompleted
)

// String renders the state as a lower-case word ("pending", "running",
// "completed"), or "unknown" for any other value.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Node is the common interface satisfied by every rollout tree node
// (parallel, root, and atomic). Parent/sibling edges are plain pointers:
// they are never the owning reference to a node, ownership flows strictly
// from parent to child through activePool, so these back-edges cannot keep
// an otherwise-unreachable subtree alive.
type Node interface {
	// State returns the node's current lifecycle state.
	State() State
	// NodeID returns the node's deterministic identifier.
	NodeID() int64
	// Depth returns 0 for the root, parent.Depth()+1 otherwise.
	Depth() int
	// IsAtomic reports whether this is a leaf (atomic) node.
	IsAtomic() bool
	// BestSequence returns this node's own best known sequence.
	BestSequence() []int
	// AdaptSequence returns the sequence this node's policy was adapted
	// from, or nil for a root or a sibling-less first child.
	AdaptSequence() []int
	// Sibling returns the immediately older sibling, or nil.
	Sibling() Node
	// Parent returns the owning parent, or nil for the root.
	Parent() Node
	// Policy returns the node's own (non-cloned) policy.
	Policy() *Policy
	// Update runs the node's share of the tree update state machine.
	// It is a no-op for atomic nodes.
	Update()
	// Discard detaches the node from the tree, per the rules in §4.5.
	Discard()
	// PredictedBestSequence returns a fresh copy of the best sequence this
	// subtree is predicted to eventually produce.
	PredictedBestSequence() []int
	// Children returns the node's live child pool, oldest first, or nil for
	// an atomic leaf. The selector is the principal caller: it needs to
	// walk the tree without depending on the concrete parallel/root types.
	Children() []Node
}

// nodeBase holds the fields and behavior common to every node variant.
type nodeBase struct {
	state         State
	parent        Node
	sibling       Node
	adaptSequence []int
	bestSequence  []int
	policy        *Policy
	depth         int
	dirty         bool
	nodeID        int64
	root          *RootNode
}

func (n *nodeBase) State() State            { return n.state }
func (n *nodeBase) NodeID() int64           { return n.nodeID }
func (n *nodeBase) Depth() int              { return n.depth }
func (n *nodeBase) BestSequence() []int     { return n.bestSequence }
func (n *nodeBase) AdaptSequence() []int    { return n.adaptSequence }
func (n *nodeBase) Sibling() Node           { return n.sibling }
func (n *nodeBase) Parent() Node            { return n.parent }
func (n *nodeBase) Policy() *Policy         { return n.policy }
func (n *nodeBase) comparator() *Comparator { return n.root.comparator }

// dirtyMarker is implemented by every concrete node variant so markDirty
// can walk the parent chain without Node exposing a public dirty setter.
type dirtyMarker interface {
	markDirty()
}

// markDirty sets the dirty flag on this node and propagates to the parent
// chain, stopping once there is no parent left (i.e. at the root).
func (n *nodeBase) markDirty() {
	n.dirty = true
	if n.parent == nil {
		return
	}
	if p, ok := n.parent.(dirtyMarker); ok {
		p.markDirty()
	}
}

// adaptFrom derives this node's policy and adaptSequence given its parent
// and sibling, per §4.1. It sets parent and sibling itself, and must be
// called exactly once, during construction, after root is set.
func (n *nodeBase) adaptFrom(parent Node, alpha float64) {
	n.parent = parent

	if parent == nil {
		// Root node: fresh uniform policy.
		n.policy = NewPolicy()
		n.adaptSequence = nil
		return
	}

	n.sibling = youngestChild(parent)

	if n.sibling == nil {
		n.policy = parent.Policy().Clone()
		n.adaptSequence = nil
		return
	}

	n.adaptSequence = copySequence(parent.PredictedBestSequence())
	n.policy = n.sibling.Policy().Clone()
	n.policy.Adapt(n.adaptSequence, alpha)
}

// youngestChild returns the parent's most recently added active child, if
// any. Both parallelNode and RootNode satisfy this through their
// activePool.
func youngestChild(parent Node) Node {
	type pooled interface{ youngestChild() Node }
	if p, ok := parent.(pooled); ok {
		return p.youngestChild()
	}
	return nil
}

func copySequence(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}
	out := make([]int, len(seq))
	copy(out, seq)
	return out
}
