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

// Package selector picks which pending atomic leaf the dispatcher should
// dispatch next. It is grounded on the source's selector.py: a simple
// depth-first reference strategy, and a probability-weighted strategy that
// estimates how likely a leaf is to still be useful by the time its result
// comes back, favoring leaves an older, still-running sibling is unlikely to
// invalidate.
package selector

import (
	logger "github.com/morpion-nrpa/scheduler/pkg/log"
	"github.com/morpion-nrpa/scheduler/pkg/rollout"
)

var log = logger.NewLogger("selector")

// Selector picks the next pending atomic leaf to dispatch, or nil if none
// is currently a good candidate. Select must only ever return a node with
// State() == rollout.StatePending and IsAtomic() == true.
type Selector interface {
	Select(root rollout.Node) rollout.Node
}
