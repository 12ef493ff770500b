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

// Rm implements subcommands.Command for the "rm" command.
type Rm struct{}

// Name implements subcommands.Command.Name.
func (*Rm) Name() string {
	return "rm"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Rm) Synopsis() string {
	return "remove a file or link from an image"
}

// Usage implements subcommands.Command.Usage.
func (*Rm) Usage() string {
	return `rm <image> <path> - unlink the non-directory <path> in <image>.

The entry stays recoverable with "restore" until its inode or blocks are
reused.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Rm) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Rm) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), false)
	defer closeImage(fs)

	if err := fs.Remove(f.Arg(1)); err != nil {
		return util.ErrnoStatus(err)
	}
	return subcommands.ExitSuccess
}
