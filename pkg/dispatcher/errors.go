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

import "fmt"

// ProtocolViolation is returned from the event loop when a worker result
// cannot be attributed to anything the dispatcher dispatched: an unknown
// worker id, or a result for a worker the dispatcher did not believe was
// running anything. The event loop treats this as fatal: it returns the
// error, and Run shuts the workers down and returns it, rather than
// panicking, since it reflects a bad message
// rather than a broken invariant in the tree itself.
type ProtocolViolation struct {
	Worker  WorkerID
	Message string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("worker protocol violation from worker %d: %s", e.Worker, e.Message)
}

// TransientTransportError marks a worker as lost: its in-flight leaf (if
// any) is moved to the root's discarded pool instead of being returned to
// the idle set, and the dispatcher continues with one fewer worker. In this
// in-process incarnation "transport failure" means the worker goroutine
// recovered from a panic in the external NRPA call and reported that back
// as a failed delivery, rather than a network error — handling is the same
// either way.
type TransientTransportError struct {
	Worker WorkerID
	Cause  error
}

func (e *TransientTransportError) Error() string {
	return fmt.Sprintf("transient transport failure delivering to worker %d: %v", e.Worker, e.Cause)
}

func (e *TransientTransportError) Unwrap() error { return e.Cause }
