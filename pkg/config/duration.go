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

import "time"

// Duration is a time.Duration that implements flag.Value, so it can be
// registered directly as a command line option or set from a file.
type Duration time.Duration

// Set parses value as a time.Duration.
func (d *Duration) Set(value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return configError("invalid duration %q: %v", value, err)
	}
	*d = Duration(parsed)
	return nil
}

// String returns the textual representation of d.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
