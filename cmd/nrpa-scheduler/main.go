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

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/morpion-nrpa/scheduler/pkg/config"
	"github.com/morpion-nrpa/scheduler/pkg/dispatcher"
	"github.com/morpion-nrpa/scheduler/pkg/instrumentation"
	logger "github.com/morpion-nrpa/scheduler/pkg/log"
	"github.com/morpion-nrpa/scheduler/pkg/nrpa"
	"github.com/morpion-nrpa/scheduler/pkg/rollout"
	"github.com/morpion-nrpa/scheduler/pkg/selector"
)

const schedulerVersion = "0.1.0"

var log = logger.NewLogger("main")

func main() {
	printConfig := flag.Bool("print-config", false, "Print configuration and exit.")
	flag.Parse()

	if err := config.Parse(flag.Args(), opt.configFile); err != nil {
		log.Fatal("invalid configuration: %v", err)
	}

	if *printConfig {
		config.Print()
		os.Exit(0)
	}

	if args := flag.Args(); len(args) > 0 {
		log.Fatal("unknown command line arguments: %s", strings.Join(args, ","))
	}

	logger.SetupDebugToggleSignal(syscall.SIGUSR1)
	log.Info("nrpa-scheduler (version %s) starting...", schedulerVersion)

	rolloutCfg := rollout.Config{
		Iterations:     opt.iterations,
		ParallelLevels: opt.parallelLevels,
		AtomicLevels:   opt.atomicLevels,
		Alpha:          opt.alpha,
		RandomSeed:     opt.randomSeed,
	}
	if err := rolloutCfg.Validate(); err != nil {
		log.Fatal("invalid rollout configuration: %v", err)
	}

	if err := instrumentation.Setup("nrpa-scheduler"); err != nil {
		log.Fatal("failed to set up instrumentation: %v", err)
	}
	defer instrumentation.Finish()

	root := rollout.NewRoot(rolloutCfg)
	sel := selector.NewProbabilitySelector()
	runner := placeholderRunner{}

	d := dispatcher.New(root, sel, runner, dispatcher.Config{
		Workers:        opt.workers,
		ReportInterval: opt.reportInterval.Duration(),
		StartPaused:    opt.startPaused,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal, stopping...")
		cancel()
	}()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("dispatcher exited with error: %v", err)
	}

	log.Info("run complete: best sequence length %d", len(root.BestSequence()))
}

// placeholderRunner stands in for the real, out-of-scope Morpion Solitaire
// NRPA engine: this binary is a reference wiring of the scheduler core, not
// a finished game player, so it reports an empty sequence for every
// dispatch rather than pretending to play the game.
type placeholderRunner struct{}

func (placeholderRunner) Run(ctx context.Context, req nrpa.Request) (nrpa.Result, error) {
	return nrpa.Result{RandomSeed: req.RandomSeed}, nil
}
