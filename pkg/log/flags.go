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

package log

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLevel is the default lowest unsuppressed severity.
	DefaultLevel = LevelInfo

	optionLogger = "logger"
	optionLevel  = "logger-level"
	optionSource = "logger-source"
	optionDebug  = "logger-debug"
)

// LevelNames maps severity levels to names.
var LevelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// NamedLevels maps severity names to levels.
var NamedLevels = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// options are our logging options, configurable from the command line.
type options struct {
	Level  Level
	Logger backendName
	Enable stateMap
	Debug  stateMap
}

type stateMap map[string]bool
type backendName string

var opt = &options{
	Level:  DefaultLevel,
	Logger: backendName(FmtBackendName),
	Enable: stateMap{"*": true},
	Debug:  stateMap{"*": false},
}

// Set is the flag.Value setter for Level.
func (l *Level) Set(value string) error {
	level, ok := NamedLevels[strings.ToLower(value)]
	if !ok {
		return loggerError("unknown log level '%s'", value)
	}
	*l = level
	return nil
}

// String is the flag.Value stringification for Level.
func (l Level) String() string {
	if name, ok := LevelNames[l]; ok {
		return name
	}
	return LevelNames[LevelInfo]
}

func (n *backendName) Set(value string) error {
	*n = backendName(value)
	activateBackend(value)
	return nil
}

func (n backendName) String() string {
	return string(n)
}

func (m *stateMap) Set(value string) error {
	*m = make(stateMap)

	prev := "on"
	for _, req := range strings.Split(strings.TrimSpace(value), ",") {
		if req == "" {
			continue
		}

		var state bool
		status := prev
		names := ""
		split := strings.SplitN(req, ":", 2)

		switch len(split) {
		case 1:
			names = split[0]
		case 2:
			status = split[0]
			names = split[1]
			prev = status
		}

		switch status {
		case "on", "enable", "enabled":
			state = true
		case "off", "disable", "disabled":
			state = false
		default:
			var err error
			if state, err = strconv.ParseBool(status); err != nil {
				return loggerError("invalid state '%s' in spec '%s': %v", status, value, err)
			}
		}

		for _, f := range strings.Split(names, ",") {
			switch f {
			case "all", "*":
				(*m)["*"] = state
			case "none":
				(*m)["*"] = !state
			default:
				(*m)[f] = state
			}
		}
	}

	return nil
}

func (m *stateMap) String() string {
	if *m == nil {
		return "all"
	}
	if len(*m) == 0 {
		return "none"
	}

	tVal, tSep := "", ""
	fVal, fSep := "", ""

	for name, state := range *m {
		if name == "*" {
			name = "all"
		}
		if state {
			tVal += tSep + name
			tSep = ","
		} else {
			fVal += fSep + name
			fSep = ","
		}
	}

	switch {
	case tVal != "" && fVal != "":
		return "on:" + tVal + ",off:" + fVal
	case fVal != "":
		return "off:" + fVal
	default:
		return "on:" + tVal
	}
}

func (m *stateMap) isEnabled(name string) bool {
	if m == nil || *m == nil {
		return true
	}
	if state, ok := (*m)[name]; ok {
		return state
	}
	if state, ok := (*m)["*"]; ok {
		return state
	}
	return false
}

func (o *options) sourceEnabled(source string) bool {
	return o.Enable.isEnabled(source)
}

func (o *options) debugEnabled(source string) bool {
	return o.Debug.isEnabled(source)
}

func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("log: "+format, args...)
}

// Register our command line flags.
func init() {
	flag.Var(&opt.Level, optionLevel,
		"least severity of log messages to start passing through.")
	flag.Var(&opt.Enable, optionSource,
		"comma-separated list of logger sources to enable.\n"+
			"Specify '*' or all to enable logging for all sources.")
	flag.Var(&opt.Debug, optionDebug,
		"comma-separated list of logger sources to enable debugging for.\n"+
			"Specify '*' or all to enable debugging for all sources.")
	flag.Var(&opt.Logger, optionLogger,
		"select the logging backend to use.")
}
