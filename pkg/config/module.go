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

package config

import "flag"

// Module groups a set of related command line options under a name, so
// they can be listed and applied together. It is a thin wrapper around the
// global flag set: options registered through a Module still live in
// flag.CommandLine, but Module additionally remembers which flag names
// belong to it so they can be located by name when applying a file.
type Module struct {
	*flag.FlagSet
	name        string
	description string
	owned       map[string]bool
}

// IntVar registers an int option owned by this module.
func (m *Module) IntVar(p *int, name string, value int, usage string) {
	m.own(name)
	m.FlagSet.IntVar(p, name, value, usage)
}

// Float64Var registers a float64 option owned by this module.
func (m *Module) Float64Var(p *float64, name string, value float64, usage string) {
	m.own(name)
	m.FlagSet.Float64Var(p, name, value, usage)
}

// Int64Var registers an int64 option owned by this module.
func (m *Module) Int64Var(p *int64, name string, value int64, usage string) {
	m.own(name)
	m.FlagSet.Int64Var(p, name, value, usage)
}

// BoolVar registers a bool option owned by this module.
func (m *Module) BoolVar(p *bool, name string, value bool, usage string) {
	m.own(name)
	m.FlagSet.BoolVar(p, name, value, usage)
}

// StringVar registers a string option owned by this module.
func (m *Module) StringVar(p *string, name string, value string, usage string) {
	m.own(name)
	m.FlagSet.StringVar(p, name, value, usage)
}

// DurationVar registers a time.Duration option owned by this module.
func (m *Module) DurationVar(p *Duration, name string, value Duration, usage string) {
	m.own(name)
	*p = value
	m.FlagSet.Var(p, name, usage)
}

func (m *Module) own(name string) {
	if m.owned == nil {
		m.owned = make(map[string]bool)
	}
	m.owned[name] = true
}

// SetVar sets the named flag, provided it was registered through this
// module, to value. It is used to apply file-provided configuration.
func (m *Module) SetVar(name, value string) error {
	if !m.owned[name] {
		return configError("module %q has no option %q", m.name, name)
	}
	return m.FlagSet.Set(name, value)
}
