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
	"gvisor.dev/ext2tools/pkg/log"
)

// Cp implements subcommands.Command for the "cp" command.
type Cp struct{}

// Name implements subcommands.Command.Name.
func (*Cp) Name() string {
	return "cp"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Cp) Synopsis() string {
	return "copy a host file into an image"
}

// Usage implements subcommands.Command.Usage.
func (*Cp) Usage() string {
	return `cp <image> <source> <destination> - copy the regular host file <source> to <destination> in <image>.

If <destination> is an existing directory, the file is created inside it
under the base name of <source>.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Cp) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Cp) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), false)
	defer closeImage(fs)

	ino, err := fs.CopyIn(f.Arg(1), f.Arg(2))
	if err != nil {
		return util.ErrnoStatus(err)
	}
	log.Debugf("Copied %q to inode %d", f.Arg(1), ino)
	return subcommands.ExitSuccess
}
