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
	"math/rand"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Config holds the five algorithmic parameters that fully determine a run,
// per §6 of the scheduler's configuration surface.
type Config struct {
	// Iterations is I: the branching factor at every parallel level, and
	// the number of children any parallel node ever has.
	Iterations int
	// ParallelLevels is P: the depth, in parallel nodes, below the root
	// before atomic leaves begin.
	ParallelLevels int
	// AtomicLevels is A: the nested NRPA depth an atomic leaf's external
	// computation runs at.
	AtomicLevels int
	// Alpha is the policy adaptation learning rate, applied by Policy.Adapt.
	Alpha float64
	// RandomSeed seeds the deterministic atomic-leaf seed table.
	RandomSeed int64
}

// Validate checks the configuration against §7's ConfigurationInvalid
// rules, aggregating every violation found rather than stopping at the
// first one.
func (c Config) Validate() error {
	var errs *multierror.Error

	if c.Iterations < 1 {
		errs = multierror.Append(errs, rolloutError("iterations must be >= 1, got %d", c.Iterations))
	}
	if c.ParallelLevels < 1 {
		errs = multierror.Append(errs, rolloutError("parallel_levels must be >= 1, got %d", c.ParallelLevels))
	}
	if c.AtomicLevels < 1 {
		errs = multierror.Append(errs, rolloutError("atomic_levels must be >= 1, got %d", c.AtomicLevels))
	}
	if c.Alpha <= 0 {
		errs = multierror.Append(errs, rolloutError("alpha must be > 0, got %v", c.Alpha))
	}

	return errs.ErrorOrNil()
}

// ExpectedAtomicDispatches returns I^P, the number of atomic leaves a
// completed run is expected to dispatch.
func (c Config) ExpectedAtomicDispatches() int64 {
	return ipow(int64(c.Iterations), c.ParallelLevels)
}

// ExpectedTotalSequences returns I^(P+A), the number of atomic NRPA
// sequences a completed run is expected to examine in total.
func (c Config) ExpectedTotalSequences() int64 {
	return ipow(int64(c.Iterations), c.ParallelLevels+c.AtomicLevels)
}

func ipow(base int64, exp int) int64 {
	result := int64(1)
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// Stats accumulates the root's run-wide counters.
type Stats struct {
	Sequences       int64
	CompletedAtomic int64
	DiscardedAtomic int64
	// WallTime is the elapsed time since the tree was created, refreshed
	// whenever a worker result is folded in.
	WallTime time.Duration
	// IdleTime is the sum, across every completed worker result, of the
	// time that worker sat idle waiting for its previous command.
	IdleTime time.Duration
	// ComputationTime is the sum, across every completed worker result, of
	// the time actually spent inside the external NRPA call.
	ComputationTime time.Duration
}

// RootNode is the top of the rollout tree. It embeds ParallelNode (the
// root behaves exactly like a parallel node for update/best-sequence
// purposes) and additionally owns the run configuration, the deterministic
// seed table, run-wide statistics, and the discarded pool of still-running
// leaves nobody wants the result of anymore.
type RootNode struct {
	ParallelNode

	config        Config
	comparator    *Comparator
	seeds         []int64
	stats         Stats
	discardedPool map[*AtomicNode]struct{}
	startTime     time.Time
}

// NewRoot builds a fresh rollout tree for the given configuration and seeds
// it with one pending child, ready for the dispatcher to start selecting
// from. cfg must already have passed Validate.
func NewRoot(cfg Config) *RootNode {
	r := &RootNode{
		config:        cfg,
		comparator:    NewComparator(),
		discardedPool: make(map[*AtomicNode]struct{}),
		startTime:     time.Now(),
	}
	r.self = r
	r.root = r
	r.nodeID = 0
	r.depth = 0
	r.state = StatePending
	r.policy = NewPolicy()
	r.adaptSequence = nil

	r.seeds = drawSeeds(cfg.RandomSeed, r.config.ExpectedAtomicDispatches())

	r.addPendingNode()

	return r
}

// drawSeeds deterministically derives I^P atomic seeds from randomSeed,
// using a locally owned *rand.Rand rather than the global source so two
// runs with the same randomSeed always draw the same table regardless of
// what else in the process has touched math/rand.
func drawSeeds(randomSeed int64, count int64) []int64 {
	src := rand.New(rand.NewSource(randomSeed))
	seeds := make([]int64, count)
	for i := range seeds {
		seeds[i] = src.Int63n(1_000_000_000) + 1
	}
	return seeds
}

// atomicRandomSeed returns the deterministic seed for the atomic leaf with
// the given node id, per §4.3.
func (r *RootNode) atomicRandomSeed(nodeID int64) int64 {
	idx := nodeID % int64(len(r.seeds))
	return r.seeds[idx]
}

// Discard asserts: the root must never be discarded (§4.5, InvariantViolation).
func (r *RootNode) Discard() {
	log.Panic("root rollout node discarded: this is a programming error")
}

// Update runs the inherited parallel update logic, then additionally
// clears the root's own dirty bit — unlike every other node, the root has
// no parent to clear it on its behalf.
func (r *RootNode) Update() {
	r.ParallelNode.Update()
	r.dirty = false
}

// MarkDirty marks the root (and, for any other node, its ancestor chain)
// dirty. It is exported on RootNode specifically because the dispatcher
// needs to kick off updates from outside this package when it records a
// result into a leaf; every node already marks itself and its ancestors
// dirty as part of RecordComputationResult, so this is primarily useful
// for tests that want to force a recomputation.
func (r *RootNode) MarkDirty() {
	r.markDirty()
}

// Stats returns a copy of the root's current run-wide counters.
func (r *RootNode) Stats() Stats { return r.stats }

// Config returns the configuration the tree was built with.
func (r *RootNode) Config() Config { return r.config }

// Comparator returns the sequence comparator instance the root created and
// owns.
func (r *RootNode) Comparator() *Comparator { return r.comparator }

// DiscardedPoolSize reports how many running leaves are currently
// discarded-but-awaiting-result.
func (r *RootNode) DiscardedPoolSize() int { return len(r.discardedPool) }

func (r *RootNode) addDiscarded(n *AtomicNode) {
	if _, ok := r.discardedPool[n]; ok {
		log.Panic("atomic node %d discarded twice", n.nodeID)
	}
	r.discardedPool[n] = struct{}{}
}

// removeDiscarded removes n from the discarded pool, reporting whether it
// was present.
func (r *RootNode) removeDiscarded(n *AtomicNode) bool {
	if _, ok := r.discardedPool[n]; !ok {
		return false
	}
	delete(r.discardedPool, n)
	return true
}

// RecordSequencesExamined adds to the root's run-wide sequence counter,
// called by the dispatcher once per received worker result.
func (r *RootNode) RecordSequencesExamined(n int64) {
	r.stats.Sequences += n
}

// RecordWorkerTiming folds one worker result's computation and idle time
// into the root's run-wide accounting, and refreshes WallTime to the
// elapsed time since the tree was created. Called by the dispatcher once
// per received worker result, mirroring the source's per-message stats
// update (idle_time and computation_time accumulate, wall_time is reset to
// the elapsed run time).
func (r *RootNode) RecordWorkerTiming(computation, idle time.Duration) {
	r.stats.ComputationTime += computation
	r.stats.IdleTime += idle
	r.stats.WallTime = time.Since(r.startTime)
}
