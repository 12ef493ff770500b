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

// Mkdir implements subcommands.Command for the "mkdir" command.
type Mkdir struct{}

// Name implements subcommands.Command.Name.
func (*Mkdir) Name() string {
	return "mkdir"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Mkdir) Synopsis() string {
	return "create a directory in an image"
}

// Usage implements subcommands.Command.Usage.
func (*Mkdir) Usage() string {
	return `mkdir <image> <path> - create the directory <path> in <image>. Its parent must exist.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Mkdir) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Mkdir) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), false)
	defer closeImage(fs)

	ino, err := fs.Mkdir(f.Arg(1))
	if err != nil {
		return util.ErrnoStatus(err)
	}
	log.Debugf("Created directory %q at inode %d", f.Arg(1), ino)
	return subcommands.ExitSuccess
}
