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

// DFSSelector picks the first pending atomic leaf found in left-to-right
// preorder. It ignores speculative risk entirely, which makes it useful as
// a debugging baseline and in tests where deterministic, cheap-to-reason-
// about dispatch order matters more than pipeline efficiency.
type DFSSelector struct{}

// NewDFSSelector returns a ready-to-use depth-first selector.
func NewDFSSelector() *DFSSelector { return &DFSSelector{} }

// Select implements Selector.
func (s *DFSSelector) Select(root rollout.Node) rollout.Node {
	return dfsFind(root)
}

func dfsFind(n rollout.Node) rollout.Node {
	if n.State() == rollout.StateCompleted {
		return nil
	}
	if n.IsAtomic() {
		if n.State() == rollout.StatePending {
			return n
		}
		return nil
	}
	for _, child := range n.Children() {
		if found := dfsFind(child); found != nil {
			return found
		}
	}
	return nil
}
