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

// FuzzyEqualityThreshold is the fraction of a sequence's elements that may
// differ between two equal-length sequences while they are still treated as
// fuzzy-equal. Kept as a named constant per the heuristic nature of the
// comparison.
const FuzzyEqualityThreshold = 0.3

// Comparator implements the fuzzy equality and right-better relations over
// move sequences. It owns a scratch marker array to avoid an O(n^2) set
// membership test on repeated comparisons; the scratch is keyed by move
// code and tagged with a monotonically increasing generation counter, so it
// never needs to be cleared between calls.
//
// A Comparator is not safe for concurrent use; each RootNode creates and
// owns exactly one instance, and the dispatcher uses the tree only from its
// single event-loop goroutine.
type Comparator struct {
	generation int
	marks      map[int]int
}

// NewComparator creates a ready-to-use Comparator.
func NewComparator() *Comparator {
	return &Comparator{marks: make(map[int]int)}
}

// IsEqual reports whether left and right are fuzzy-equal: same length, and
// differing in at most FuzzyEqualityThreshold of their elements.
func (c *Comparator) IsEqual(left, right []int) bool {
	if len(left) != len(right) {
		return false
	}
	if len(left) == 0 {
		return true
	}

	c.generation++
	for _, move := range left {
		c.marks[move] = c.generation
	}

	limit := float64(len(left)) * FuzzyEqualityThreshold
	diffs := 0
	for _, move := range right {
		if c.marks[move] != c.generation {
			diffs++
			if float64(diffs) > limit {
				return false
			}
		}
	}

	return true
}

// IsRightBetter reports whether right is a strict fuzzy improvement over
// left: longer, or equal length and not fuzzy-equal.
func (c *Comparator) IsRightBetter(left, right []int) bool {
	if len(left) != len(right) {
		return len(left) < len(right)
	}
	return !c.IsEqual(left, right)
}
