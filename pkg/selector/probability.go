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

import "github.com/morpion-nrpa/scheduler/pkg/rollout"

// Sequence-change-probability schedule: the longer the best sequence found
// so far, the less likely a late policy update displaces it, so the
// dispatcher should risk dispatching speculative children more readily.
// Named thresholds rather than inline magic numbers, to keep the schedule
// easy to retune.
const (
	lengthThresholdExcellent = 150
	lengthThresholdVeryGood  = 140
	lengthThresholdGood      = 120
	lengthThresholdFair      = 80
	lengthThresholdPoor      = 64

	probExcellent = 0.10
	probVeryGood  = 0.20
	probGood      = 0.30
	probFair      = 0.50
	probPoor      = 0.95
	probCertain   = 1.00
)

// sequenceChangeProbability estimates the chance that a best sequence of
// the given length will still be displaced by ongoing work elsewhere in the
// tree: shorter sequences are assumed volatile, long ones nearly settled.
func sequenceChangeProbability(length int) float64 {
	switch {
	case length >= lengthThresholdExcellent:
		return probExcellent
	case length >= lengthThresholdVeryGood:
		return probVeryGood
	case length >= lengthThresholdGood:
		return probGood
	case length >= lengthThresholdFair:
		return probFair
	case length >= lengthThresholdPoor:
		return probPoor
	default:
		return probCertain
	}
}

// ProbabilitySelector is the dispatcher's default selection strategy. It
// estimates, for every pending leaf, the probability that dispatching it
// now is wasted effort (because an older sibling's eventual result will
// invalidate its policy before its own result comes back), and picks the
// leaf with the lowest such probability.
type ProbabilitySelector struct{}

// NewProbabilitySelector returns a ready-to-use probability-weighted
// selector.
func NewProbabilitySelector() *ProbabilitySelector { return &ProbabilitySelector{} }

// Select implements Selector.
func (s *ProbabilitySelector) Select(root rollout.Node) rollout.Node {
	node, _ := policyChangeProbability(root, 0.0)
	if node == nil {
		log.Debug("no dispatchable pending leaf found")
	}
	return node
}

// policyChangeProbability computes, for node, the probability that
// dispatching it is wasted, given the probability pParent that its parent's
// own policy will still change before node's result matters. It returns the
// best (node, probability) pair found in node's subtree, per §4.6.
func policyChangeProbability(node rollout.Node, pParent float64) (rollout.Node, float64) {
	if node.State() == rollout.StateCompleted {
		return nil, 1.0
	}

	my := 1.0 - pParent
	for sibling := node.Sibling(); sibling != nil; sibling = sibling.Sibling() {
		if sibling.State() != rollout.StateCompleted {
			my *= 1.0 - sequenceChangeProbability(len(node.AdaptSequence()))
		}
	}

	if node.IsAtomic() {
		if node.State() == rollout.StatePending {
			return node, 1.0 - my
		}
		return nil, 1.0
	}

	bestProb := 1.0
	var bestChild rollout.Node
	for _, child := range node.Children() {
		childNode, childProb := policyChangeProbability(child, 1.0-my)
		if childProb < bestProb {
			bestProb = childProb
			bestChild = childNode
		}
	}
	return bestChild, bestProb
}
