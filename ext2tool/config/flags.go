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

package config

import (
	"flag"
	"fmt"
	"reflect"
	"sort"

	"github.com/BurntSushi/toml"
)

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.String("log", "", "file path where internal debug information is written, default is stderr. The following variables are available: %COMMAND%.")
	flagSet.String("log-format", "text", "log format: text (default) or json.")
	flagSet.Duration("lock-wait", 0, "how long to wait for another process to release the image, e.g. \"5s\". Zero fails at once.")
	flagSet.String("config", "", "path to a TOML file whose [flags] table supplies values for flags not given on the command line.")
}

// fileConfig is the layout of the file named by --config.
type fileConfig struct {
	// Flags maps flag names to values. The values are converted with the
	// same rules as the command line, so `debug = true` and
	// `debug = "true"` are equivalent.
	Flags map[string]any `toml:"flags"`
}

// applyFile sets the flags listed in the file named by the "config" flag,
// skipping flags that were explicitly set on the command line.
func applyFile(flagSet *flag.FlagSet) error {
	path := flagSet.Lookup("config").Value.String()
	if path == "" {
		return nil
	}
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("error reading config file %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %q: unknown keys %v", path, undecoded)
	}

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	names := make([]string, 0, len(fc.Flags))
	for name := range fc.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "config" {
			return fmt.Errorf("config file %q cannot set flag %q", path, name)
		}
		if flagSet.Lookup(name) == nil {
			return fmt.Errorf("config file %q: flag %q not found", path, name)
		}
		if explicit[name] {
			continue
		}
		if err := flagSet.Set(name, fmt.Sprint(fc.Flags[name])); err != nil {
			return fmt.Errorf("config file %q: error setting flag %s=%v: %w", path, name, fc.Flags[name], err)
		}
	}
	return nil
}

// NewFromFlags creates a new Config with values coming from command line
// flags and the config file they name.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	if err := applyFile(flagSet); err != nil {
		return nil, err
	}

	conf := &Config{}
	obj := reflect.ValueOf(conf).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			// No flag set for this field.
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		x := reflect.ValueOf(fl.Value.(flag.Getter).Get())
		obj.Field(i).Set(x)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
