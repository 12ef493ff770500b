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

package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"gvisor.dev/ext2tools/ext2tool/cmd/util"
	"gvisor.dev/ext2tools/ext2tool/config"
)

// Cat implements subcommands.Command for the "cat" command.
type Cat struct{}

// Name implements subcommands.Command.Name.
func (*Cat) Name() string {
	return "cat"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Cat) Synopsis() string {
	return "print a file of an image"
}

// Usage implements subcommands.Command.Usage.
func (*Cat) Usage() string {
	return `cat <image> <path> - write the contents of <path> to stdout. A symlink prints its target.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Cat) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Cat) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), true)
	defer closeImage(fs)

	data, err := fs.ReadFile(f.Arg(1))
	if err != nil {
		return util.ErrnoStatus(err)
	}
	if _, err := Stdout.Write(data); err != nil {
		return util.Errorf("writing %q: %v", f.Arg(1), err)
	}
	return subcommands.ExitSuccess
}
