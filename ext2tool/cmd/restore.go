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

// Restore implements subcommands.Command for the "restore" command.
type Restore struct{}

// Name implements subcommands.Command.Name.
func (*Restore) Name() string {
	return "restore"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Restore) Synopsis() string {
	return "undelete a removed file in an image"
}

// Usage implements subcommands.Command.Usage.
func (*Restore) Usage() string {
	return `restore <image> <path> - bring back the removed entry <path> in <image>.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Restore) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Restore) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), false)
	defer closeImage(fs)

	ino, err := fs.Undelete(f.Arg(1))
	if err != nil {
		return util.ErrnoStatus(err)
	}
	log.Debugf("Restored %q as inode %d", f.Arg(1), ino)
	return subcommands.ExitSuccess
}
