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

package nrpa

import "context"

// StubRunner is a deterministic reference Runner for tests and local
// experimentation: it never actually plays Morpion Solitaire, it just
// derives a BestSequence from the request's RandomSeed through a supplied
// function, so a test can pin exactly the sequence length (or content) it
// wants a given atomic leaf to report. SequenceFunc defaults to returning
// an empty sequence if nil.
type StubRunner struct {
	// SequenceFunc computes the best sequence a rollout with the given
	// random seed "finds". Its output length is all the scheduler's tree
	// update logic cares about.
	SequenceFunc func(randomSeed int64) []int
}

// NewStubRunner returns a StubRunner using f to compute sequences.
func NewStubRunner(f func(randomSeed int64) []int) *StubRunner {
	return &StubRunner{SequenceFunc: f}
}

// Run implements Runner.
func (s *StubRunner) Run(ctx context.Context, req Request) (Result, error) {
	var seq []int
	if s.SequenceFunc != nil {
		seq = s.SequenceFunc(req.RandomSeed)
	}
	return Result{
		BestSequence: seq,
		Sequences:    req.BatchSize,
		RandomSeed:   req.RandomSeed,
	}, nil
}
