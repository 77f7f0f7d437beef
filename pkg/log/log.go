// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
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

package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Level is the log message severity level below which we suppress messages.
type Level int32

const (
	// LevelDebug corresponds to debug messages.
	LevelDebug Level = iota
	// LevelInfo corresponds to informational messages.
	LevelInfo
	// LevelWarn corresponds to warning messages.
	LevelWarn
	// LevelError corresponds to error messages.
	LevelError

	levelHighest = LevelError
)

// Logger is the interface for producing log messages tagged with a source.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Fatal(format string, args ...interface{})
	Panic(format string, args ...interface{})

	DebugEnabled() bool
	Debug(format string, args ...interface{})
	Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{})
	DebugBlock(prefix string, format string, args ...interface{})
	InfoBlock(prefix string, format string, args ...interface{})
	WarnBlock(prefix string, format string, args ...interface{})
	ErrorBlock(prefix string, format string, args ...interface{})

	Source() string
	Stop()
}

// state is the single package-level registry tying sources to backends.
type state struct {
	sync.Mutex
	backend map[string]BackendFn
	active  Backend
	name    string
	loggers map[string]*instance
	align   int
	forced  bool
}

var log = &state{backend: make(map[string]BackendFn)}

// instance is our concrete Logger implementation for one source.
type instance struct {
	source string
}

// NewLogger creates a new logger, getting the existing instance if possible.
func NewLogger(source string) Logger {
	return log.get(source)
}

// Get is an alias for NewLogger, returning the logger for source.
func Get(source string) Logger {
	return log.get(source)
}

func (s *state) get(source string) Logger {
	s.Lock()
	defer s.Unlock()

	source = strings.Trim(source, "[] ")

	if s.loggers == nil {
		s.loggers = make(map[string]*instance)
	}
	if l, ok := s.loggers[source]; ok {
		return l
	}

	if s.active == nil {
		s.activate("")
	}

	l := &instance{source: source}
	s.loggers[source] = l

	if len(source) > s.align {
		s.align = len(source)
		if s.active != nil {
			s.active.SetSourceAlignment(s.align)
		}
	}

	return l
}

// activate selects and instantiates the named backend, falling back to fmt.
func (s *state) activate(name string) {
	if name == "" {
		name = s.name
	}
	if name == "" {
		name = FmtBackendName
	}

	fn, ok := s.backend[name]
	if !ok {
		fn, ok = s.backend[FmtBackendName]
		if !ok {
			return
		}
		name = FmtBackendName
	}

	if s.active != nil {
		s.active.Stop()
	}

	s.active = fn()
	s.name = name
	s.active.SetSourceAlignment(s.align)
}

// activateBackend switches the active backend by name.
func activateBackend(name string) {
	log.Lock()
	defer log.Unlock()
	log.activate(name)
}

// SetLevel sets the lowest severity level that is allowed through.
func SetLevel(level Level) {
	opt.Level = level
}

// SetBackend activates the named logging backend.
func SetBackend(name string) error {
	if _, ok := log.backend[name]; !ok {
		return loggerError("unknown logging backend '%s'", name)
	}
	activateBackend(name)
	return nil
}

// Flush flushes and stops buffering of the active backend, if any.
func Flush() {
	log.Lock()
	b := log.active
	log.Unlock()
	if b != nil {
		b.Flush()
	}
}

func (i *instance) Source() string {
	return i.source
}

func (i *instance) debugEnabled() bool {
	if log.forced {
		return true
	}
	return opt.debugEnabled(i.source)
}

func (i *instance) enabled(level Level) bool {
	if level < opt.Level {
		return false
	}
	return opt.sourceEnabled(i.source)
}

func (i *instance) DebugEnabled() bool {
	return i.debugEnabled()
}

func (i *instance) Debug(format string, args ...interface{}) {
	if !i.debugEnabled() {
		return
	}
	log.active.Log(LevelDebug, i.source, format, args...)
}

func (i *instance) Info(format string, args ...interface{}) {
	if !i.enabled(LevelInfo) {
		return
	}
	log.active.Log(LevelInfo, i.source, format, args...)
}

func (i *instance) Warn(format string, args ...interface{}) {
	if !i.enabled(LevelWarn) {
		return
	}
	log.active.Log(LevelWarn, i.source, format, args...)
}

func (i *instance) Error(format string, args ...interface{}) {
	if !i.enabled(LevelError) {
		return
	}
	log.active.Log(LevelError, i.source, format, args...)
}

func (i *instance) Fatal(format string, args ...interface{}) {
	log.active.Log(LevelError, i.source, format, args...)
	log.active.Flush()
	os.Exit(1)
}

func (i *instance) Panic(format string, args ...interface{}) {
	log.active.Log(LevelError, i.source, format, args...)
	log.active.Flush()
	panic(i.source + ": " + fmt.Sprintf(format, args...))
}

func (i *instance) Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{}) {
	fn(format, args...)
	_ = prefix
}

func (i *instance) DebugBlock(prefix string, format string, args ...interface{}) {
	if !i.debugEnabled() {
		return
	}
	log.active.Block(LevelDebug, i.source, prefix, format, args...)
}

func (i *instance) InfoBlock(prefix string, format string, args ...interface{}) {
	if !i.enabled(LevelInfo) {
		return
	}
	log.active.Block(LevelInfo, i.source, prefix, format, args...)
}

func (i *instance) WarnBlock(prefix string, format string, args ...interface{}) {
	if !i.enabled(LevelWarn) {
		return
	}
	log.active.Block(LevelWarn, i.source, prefix, format, args...)
}

func (i *instance) ErrorBlock(prefix string, format string, args ...interface{}) {
	if !i.enabled(LevelError) {
		return
	}
	log.active.Block(LevelError, i.source, prefix, format, args...)
}

func (i *instance) Stop() {
	log.Lock()
	defer log.Unlock()
	delete(log.loggers, i.source)
}
