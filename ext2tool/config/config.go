// Copyright 2025 The gVisor Authors.
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

// Package config provides basic infrastructure to set configuration settings
// for ext2tool. ext2tool uses command line flags to set configuration
// values, optionally seeded from a TOML file.
package config

import (
	"fmt"
	"reflect"
	"time"

	"gvisor.dev/ext2tools/pkg/log"
)

// Config holds configuration that is shared by all ext2tool commands.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name.
//  3. Register a new flag in flags.go, with same name and add a description.
//  4. Add any necessary validation into validate().
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if not empty. "%COMMAND%" is
	// replaced with the name of the command being run.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// LockWait is how long commands wait for another process to release
	// the image.
	LockWait time.Duration `flag:"lock-wait"`

	// ConfigFile is a TOML file supplying values for flags that are not
	// set on the command line.
	ConfigFile string `flag:"config"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case log.FormatText, log.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q, must be %q or %q", c.LogFormat, log.FormatText, log.FormatJSON)
	}
	if c.LockWait < 0 {
		return fmt.Errorf("lock-wait must not be negative, got %v", c.LockWait)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			continue
		}
		log.Infof("  %s (--%s): %v", f.Name, name, obj.Field(i).Interface())
	}
}
