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

// Package nrpa specifies the external atomic NRPA rollout as a pure
// function interface, and provides a deterministic reference implementation
// for tests and local experimentation. The actual Nested Rollout Policy
// Adaptation algorithm, the Morpion Solitaire game rules, and everything
// about move encoding are outside this module's scope: Runner is the only
// contract the scheduler depends on.
package nrpa

import (
	"context"

	"github.com/morpion-nrpa/scheduler/pkg/rollout"
)

// Request is everything an atomic NRPA invocation needs, mirroring
// rollout.ComputationMetadata exactly so the dispatcher can forward a
// leaf's metadata straight through without translation.
type Request struct {
	Iterations int
	Levels     int
	BatchSize  int
	Alpha      float64
	RandomSeed int64
	Weights    *rollout.Policy
}

// Result is the pure result of one atomic NRPA invocation.
type Result struct {
	BestSequence []int
	Sequences    int
	RandomSeed   int64
}

// Runner runs one atomic NRPA rollout to completion. Implementations must
// be deterministic in RandomSeed: calling Run twice with byte-identical
// Requests must produce byte-identical Results, since the scheduler's
// whole-run determinism (testable property 1) depends on it. Run must not
// retain or mutate req.Weights after returning. ctx is honored only as a
// cancellation signal; a total implementation may ignore it.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, req Request) (Result, error)

// Run calls f(ctx, req).
func (f RunnerFunc) Run(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
