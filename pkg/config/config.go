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

// Package config collects command line and file-based configuration for the
// scheduler binary. Modules self-register their options by name during
// package initialization; Parse applies both the command line and, if given,
// a YAML configuration file on top of the registered defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// modules is the set of registered configuration modules, keyed by name.
var modules = make(map[string]*Module)
var order []string

// Register creates (or returns the existing) named configuration module.
// Options for the module should be added to the returned Module using its
// embedded *flag.FlagSet, which is backed by the global command line.
func Register(name, description string) *Module {
	if m, ok := modules[name]; ok {
		return m
	}

	m := &Module{
		name:        name,
		description: description,
		FlagSet:     flag.CommandLine,
	}
	modules[name] = m
	order = append(order, name)

	return m
}

// Parse parses the command line, then applies the content of the given YAML
// configuration file, if any, on top of it. File-provided values win over
// command-line defaults for variables they mention; unmentioned variables
// keep whatever the command line (or built-in default) set.
func Parse(args []string, file string) error {
	if err := flag.CommandLine.Parse(args); err != nil {
		return configError("failed to parse command line: %v", err)
	}

	if file == "" {
		return nil
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "failed to read configuration file %q", file)
	}

	var data map[string]map[string]string
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return errors.Wrapf(err, "failed to parse configuration file %q", file)
	}

	for modName, vars := range data {
		m, ok := modules[modName]
		if !ok {
			return configError("configuration file %q: unknown module %q", file, modName)
		}
		for name, value := range vars {
			if err := m.SetVar(name, value); err != nil {
				return configError("configuration file %q: %v", file, err)
			}
		}
	}

	return nil
}

// Print writes the current value of every registered variable to stdout.
func Print() {
	names := make([]string, 0, len(order))
	names = append(names, order...)
	sort.Strings(names)

	for _, name := range names {
		m := modules[name]
		fmt.Printf("%s: %s\n", m.name, m.description)
		m.VisitAll(func(f *flag.Flag) {
			fmt.Printf("  %-24s %s\n", f.Name, f.Value.String())
		})
	}
}

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("config: "+format, args...)
}
