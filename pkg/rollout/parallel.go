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

// ParallelNode is an inner node of the rollout tree: it owns an ordered
// pool of I children (atomic if this is the last parallel level, parallel
// otherwise), aggregates their best sequences, and drives speculative
// invalidation as results come in.
type ParallelNode struct {
	nodeBase
	// self lets a ParallelNode hand out a correctly-typed parent reference
	// to its children even when it is the embedded part of a RootNode:
	// without it, a child's parent would point at the ParallelNode slice of
	// a RootNode rather than the RootNode itself, losing RootNode's
	// overridden Update/Discard behavior for any caller that type-asserts
	// the parent back to *RootNode.
	self           Node
	activePool     []Node
	completedNodes int64
}

// newParallelNode creates a pending parallel node under parent with the
// given deterministic node id, and immediately seeds it with one pending
// child so the tree always has work available at its frontier.
func newParallelNode(parent Node, nodeID int64, root *RootNode, alpha float64) *ParallelNode {
	n := &ParallelNode{}
	n.self = n
	n.root = root
	n.nodeID = nodeID
	n.depth = parent.Depth() + 1
	n.state = StatePending
	n.adaptFrom(parent, alpha)
	n.addPendingNode()
	return n
}

// IsAtomic always returns false for a ParallelNode.
func (p *ParallelNode) IsAtomic() bool { return false }

// ActivePool returns the node's live children, oldest first. The slice is
// owned by the node; callers must not mutate it.
func (p *ParallelNode) ActivePool() []Node { return p.activePool }

// Children implements Node.Children by returning the active pool.
func (p *ParallelNode) Children() []Node { return p.activePool }

// CompletedNodes returns how many children have been popped off the active
// pool after completing.
func (p *ParallelNode) CompletedNodes() int64 { return p.completedNodes }

func (p *ParallelNode) youngestChild() Node {
	if len(p.activePool) == 0 {
		return nil
	}
	return p.activePool[len(p.activePool)-1]
}

// addPendingNode creates one new child if capacity allows, per §4.3 for
// node id assignment and §9 for the atomic/parallel variant choice. It
// returns false if the pool is already at capacity I.
func (p *ParallelNode) addPendingNode() bool {
	iterations := int64(p.root.config.Iterations)
	if int64(len(p.activePool))+p.completedNodes >= iterations {
		return false
	}

	nodeID := p.nodeID*iterations + int64(len(p.activePool)) + p.completedNodes

	var child Node
	if p.root.config.ParallelLevels-p.depth <= 1 {
		child = newAtomicNode(p.self, nodeID, p.root, p.root.config.Alpha)
	} else {
		child = newParallelNode(p.self, nodeID, p.root, p.root.config.Alpha)
	}

	p.activePool = append(p.activePool, child)
	return true
}

// PredictedBestSequence implements §4.2 for inner nodes: the right-better
// of its own best sequence and every child's prediction.
func (p *ParallelNode) PredictedBestSequence() []int {
	cmp := p.comparator()
	best := p.bestSequence
	for _, child := range p.activePool {
		candidate := child.PredictedBestSequence()
		if cmp.IsRightBetter(best, candidate) {
			best = candidate
		}
	}
	return copySequence(best)
}

// Discard implements §4.5 for inner nodes: propagate to every child, then
// detach from the parent. Inner nodes hold no durable resources of their
// own.
func (p *ParallelNode) Discard() {
	for _, child := range p.activePool {
		child.Discard()
	}
	p.parent = nil
}

// Update implements the central tree state machine of §4.4.
func (p *ParallelNode) Update() {
	if !p.dirty {
		return
	}

	dirtyIdx := -1
	for i, child := range p.activePool {
		if isDirty(child) {
			dirtyIdx = i
			break
		}
	}

	if dirtyIdx < 0 {
		// The dirty descendant was discarded before we got to it.
		p.dirty = false
		return
	}

	dirtyNode := p.activePool[dirtyIdx]
	dirtyNode.Update()

	cmp := p.comparator()

	// Step 4: speculation invalidation.
	if dirtyIdx+1 < len(p.activePool) {
		next := p.activePool[dirtyIdx+1]
		if cmp.IsRightBetter(next.AdaptSequence(), dirtyNode.PredictedBestSequence()) {
			for len(p.activePool) > 0 && !isDirty(p.activePool[len(p.activePool)-1]) {
				last := len(p.activePool) - 1
				discarded := p.activePool[last]
				p.activePool = p.activePool[:last]
				discarded.Discard()
			}
		}
	}

	// Step 5: best-sequence rollup, starting at dirtyIdx (inclusive).
	for i := dirtyIdx; i < len(p.activePool); i++ {
		child := p.activePool[i]
		if cmp.IsRightBetter(p.bestSequence, child.BestSequence()) {
			p.bestSequence = copySequence(child.BestSequence())
		}
		if child.State() != StateCompleted {
			break
		}
	}

	// Step 6: spawn a replacement pending child if none exists.
	hasPending, hasRunning := false, false
	for _, child := range p.activePool {
		switch child.State() {
		case StateRunning:
			hasRunning = true
		case StatePending:
			hasPending = true
		}
	}
	if !hasPending {
		hasPending = p.addPendingNode()
	}

	// Step 7: state update.
	switch {
	case hasRunning:
		p.state = StateRunning
	case hasPending:
		p.state = StatePending
	default:
		p.state = StateCompleted
		if int64(len(p.activePool))+p.completedNodes != int64(p.root.config.Iterations) {
			log.Panic("parallel node %d: completed with %d+%d children, want %d",
				p.nodeID, len(p.activePool), p.completedNodes, p.root.config.Iterations)
		}
	}

	// Step 8: pool compaction.
	for len(p.activePool) > 1 && p.activePool[0].State() == StateCompleted {
		p.activePool = p.activePool[1:]
		p.completedNodes++
	}
	if len(p.activePool) > 0 {
		clearSibling(p.activePool[0])
	}

	// Step 9: clear the dirty bit.
	clearDirty(dirtyNode)
}

// isDirty, clearDirty and clearSibling reach through the dirtyMarker/
// siblingClearer interfaces so ParallelNode.Update can operate on the Node
// interface without exposing dirty/sibling setters on the public Node
// interface itself.
func isDirty(n Node) bool {
	if d, ok := n.(interface{ isDirty() bool }); ok {
		return d.isDirty()
	}
	return false
}

func clearDirty(n Node) {
	if d, ok := n.(interface{ clearDirty() }); ok {
		d.clearDirty()
	}
}

func clearSibling(n Node) {
	if s, ok := n.(interface{ clearSibling() }); ok {
		s.clearSibling()
	}
}

func (n *nodeBase) isDirty() bool   { return n.dirty }
func (n *nodeBase) clearDirty()     { n.dirty = false }
func (n *nodeBase) clearSibling()   { n.sibling = nil }

var _ dirtyMarker = (*ParallelNode)(nil)
