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

package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	logger "github.com/morpion-nrpa/scheduler/pkg/log"
	"github.com/morpion-nrpa/scheduler/pkg/nrpa"
	"github.com/morpion-nrpa/scheduler/pkg/rollout"
	"github.com/morpion-nrpa/scheduler/pkg/selector"
)

var log = logger.NewLogger("dispatcher")

// workerFailureLog rate-limits the per-result failure/absorption warnings a
// persistently misbehaving or dying external NRPA can otherwise spam once
// per received result.
var workerFailureLog = logger.RateLimit(log, logger.Interval(time.Second))

// DefaultReportInterval is how often the dispatcher emits a progress report
// when the best sequence hasn't improved in the meantime (§4.7).
const DefaultReportInterval = 20 * time.Second

// Config is the dispatcher's own configuration surface, carried alongside
// the rollout tree's algorithmic Config (§6).
type Config struct {
	// Workers is how many worker goroutines to launch. Must be >= 1.
	Workers int
	// ReportInterval bounds how long the dispatcher goes without emitting a
	// progress report when the best sequence is not improving. Zero means
	// DefaultReportInterval.
	ReportInterval time.Duration
	// StartPaused, when true, starts the dispatcher with dispatch paused;
	// Resume must be called to begin sending work.
	StartPaused bool
}

func (c Config) reportInterval() time.Duration {
	if c.ReportInterval <= 0 {
		return DefaultReportInterval
	}
	return c.ReportInterval
}

// eventKind distinguishes the control messages Pause/Resume send through
// the dispatcher's own event loop, so no locking is needed around dispatcher
// state: everything that touches it happens on the Run goroutine.
type eventKind int

const (
	eventPause eventKind = iota
	eventResume
)

type controlEvent struct {
	kind eventKind
}

// Dispatcher owns a rollout tree exclusively and drives it to completion by
// coordinating a pool of worker goroutines, per §4.7. The zero value is not
// usable; construct with New.
type Dispatcher struct {
	root   *rollout.RootNode
	sel    selector.Selector
	runner nrpa.Runner
	cfg    Config

	cmdChs   []chan command
	resultCh chan WorkerResult
	events   chan controlEvent

	idle    []WorkerID
	running map[WorkerID]rollout.Leaf
	paused  bool

	lastReportedBest []int
	lastReportTime   time.Time

	onProgress func(ProgressReport)

	wg sync.WaitGroup
}

// ProgressReport is what the dispatcher hands to its progress callback
// (and logs) whenever it reports, per §4.7 item 4.
type ProgressReport struct {
	BestSequence    []int
	Stats           rollout.Stats
	IdleWorkers     int
	RunningWorkers  int
	DiscardedPool   int
}

// New builds a dispatcher over root using sel to pick work and runner to
// execute it. cfg.Workers must be >= 1.
func New(root *rollout.RootNode, sel selector.Selector, runner nrpa.Runner, cfg Config) *Dispatcher {
	if cfg.Workers < 1 {
		log.Panic("dispatcher configured with %d workers, must be >= 1", cfg.Workers)
	}

	d := &Dispatcher{
		root:    root,
		sel:     sel,
		runner:  runner,
		cfg:     cfg,
		events:  make(chan controlEvent, 4),
		paused:  cfg.StartPaused,
		running: make(map[WorkerID]rollout.Leaf),
	}
	return d
}

// OnProgress registers a callback invoked every time the dispatcher emits a
// progress report, in addition to the logger line and instrumentation
// gauges. Intended for tests; may be nil.
func (d *Dispatcher) OnProgress(f func(ProgressReport)) {
	d.onProgress = f
}

// Pause stops the send phase (new dispatches) without affecting in-flight
// work. Safe to call from any goroutine.
func (d *Dispatcher) Pause() {
	d.events <- controlEvent{kind: eventPause}
}

// Resume re-enables the send phase. Safe to call from any goroutine.
func (d *Dispatcher) Resume() {
	d.events <- controlEvent{kind: eventResume}
}

// LoadCheckpoint is a documented no-op: checkpoint persistence is out of
// scope for this module (see Non-goals), kept here only so a caller wiring
// up a checkpoint-aware launcher has a stable hook to call.
func (d *Dispatcher) LoadCheckpoint(path string) error { return nil }

// SaveCheckpoint is a documented no-op; see LoadCheckpoint.
func (d *Dispatcher) SaveCheckpoint(path string) error { return nil }

// Run drives the tree to completion: it launches the worker pool, then
// loops selecting and dispatching pending leaves and folding back results,
// until the tree is complete or ctx is done. It always sends a quit message
// to every worker and waits for them to exit before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.cmdChs = make([]chan command, d.cfg.Workers)
	d.resultCh = make(chan WorkerResult, d.cfg.Workers)
	d.idle = make([]WorkerID, 0, d.cfg.Workers)

	for i := 0; i < d.cfg.Workers; i++ {
		id := WorkerID(i)
		d.cmdChs[id] = make(chan command, 1)
		d.idle = append(d.idle, id)

		d.wg.Add(1)
		go func(id WorkerID) {
			defer d.wg.Done()
			runWorker(ctx, id, d.runner, d.cmdChs[id], d.resultCh)
		}(id)
	}

	d.lastReportTime = time.Now()
	ticker := time.NewTicker(d.cfg.reportInterval())
	defer ticker.Stop()

	err := d.loop(ctx, ticker)

	for _, ch := range d.cmdChs {
		ch <- command{quit: &QuitCommand{}}
		close(ch)
	}
	d.wg.Wait()

	return err
}

func (d *Dispatcher) loop(ctx context.Context, ticker *time.Ticker) error {
	for {
		if !d.paused {
			dispatchedAny := d.sendPhase()
			if !dispatchedAny && len(d.running) == 0 {
				d.report(true)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-d.resultCh:
			if err := d.handleResult(res); err != nil {
				return err
			}

		case ev := <-d.events:
			switch ev.kind {
			case eventPause:
				d.paused = true
			case eventResume:
				d.paused = false
			}

		case <-ticker.C:
			d.report(false)
		}
	}
}

// sendPhase dispatches as many pending leaves to idle workers as the
// selector can find candidates for. It returns whether at least one leaf
// was dispatched; loop treats "nothing dispatched and no worker running
// anything" as completion.
func (d *Dispatcher) sendPhase() bool {
	dispatchedAny := false
	for len(d.idle) > 0 {
		candidate := d.sel.Select(d.root)
		if candidate == nil {
			break
		}

		leaf, ok := candidate.(rollout.Leaf)
		if !ok {
			log.Panic("selector returned a non-leaf node %d", candidate.NodeID())
		}

		meta := leaf.ComputationMetadata()
		leaf.MarkDispatched()

		worker := d.idle[0]
		d.idle = d.idle[1:]
		d.running[worker] = leaf

		d.cmdChs[worker] <- command{run: &RunCommand{
			Iterations: meta.Iterations,
			Levels:     meta.Levels,
			BatchSize:  meta.BatchSize,
			Alpha:      meta.Alpha,
			RandomSeed: meta.RandomSeed,
			Weights:    meta.Weights,
		}}

		d.root.Update()
		dispatchedAny = true
	}
	return dispatchedAny
}

func (d *Dispatcher) handleResult(res WorkerResult) error {
	leaf, ok := d.running[res.Source]
	if !ok {
		return &ProtocolViolation{Worker: res.Source, Message: "result from a worker with no recorded in-flight leaf"}
	}
	delete(d.running, res.Source)

	if res.Err != nil {
		// Only a genuine transport failure (§7) ever reaches here: ordinary
		// worker-side computation errors are absorbed upstream in
		// executeRun as well-formed empty results, never surfaced as Err.
		if _, ok := res.Err.(*TransientTransportError); !ok {
			log.Panic("worker %d result carries an unexpected error type: %v", res.Source, res.Err)
		}
		workerFailureLog.Warn("worker %d lost: %v; discarding its leaf and continuing with fewer workers", res.Source, res.Err)
		leaf.Discard()
		recordSequenceOutcome(false)
		return nil
	}

	leaf.RecordComputationResult(rollout.ComputationResult{
		BestSequence:    res.BestSequence,
		Sequences:       res.Sequences,
		RandomSeed:      res.RandomSeed,
		ComputationTime: res.ComputationTime,
		IdleTime:        res.IdleTime,
	})
	d.root.RecordSequencesExamined(int64(res.Sequences))
	d.root.RecordWorkerTiming(res.ComputationTime, res.IdleTime)
	recordComputeLatency(res.ComputationTime.Seconds())
	recordSequenceOutcome(true)
	d.idle = append(d.idle, res.Source)
	d.root.Update()

	improved := d.root.Comparator().IsRightBetter(d.lastReportedBest, d.root.BestSequence())
	d.report(improved)

	return nil
}

func (d *Dispatcher) report(force bool) {
	if !force && time.Since(d.lastReportTime) < d.cfg.reportInterval() {
		return
	}

	best := d.root.BestSequence()
	stats := d.root.Stats()

	report := ProgressReport{
		BestSequence:   best,
		Stats:          stats,
		IdleWorkers:    len(d.idle),
		RunningWorkers: len(d.running),
		DiscardedPool:  d.root.DiscardedPoolSize(),
	}

	log.Info("progress: best=%d sequences=%d completed_atomic=%d discarded_atomic=%d idle=%d running=%d wall=%s computation=%s idle_time=%s",
		len(best), stats.Sequences, stats.CompletedAtomic, stats.DiscardedAtomic, report.IdleWorkers, report.RunningWorkers,
		stats.WallTime, stats.ComputationTime, stats.IdleTime)

	recordProgressMetrics(report)

	// Formatting the full best sequence is wasted work whenever debug
	// logging is disabled (the common case in production), so defer it
	// until the backend actually decides to emit the line.
	log.Debug("best sequence snapshot: %s", logger.Delay(func() string {
		return fmt.Sprint(best)
	}))

	d.lastReportedBest = best
	d.lastReportTime = time.Now()

	if d.onProgress != nil {
		d.onProgress(report)
	}
}
