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
	"fmt"

	"github.com/google/subcommands"
	"gvisor.dev/ext2tools/ext2tool/config"
)

// Info implements subcommands.Command for the "info" command.
type Info struct{}

// Name implements subcommands.Command.Name.
func (*Info) Name() string {
	return "info"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Info) Synopsis() string {
	return "print a summary of an image"
}

// Usage implements subcommands.Command.Usage.
func (*Info) Usage() string {
	return `info <image> - print the geometry and free counters of <image>.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Info) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Info) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), true)
	defer closeImage(fs)

	s := fs.Stats()
	fmt.Fprintf(Stdout, "Volume name:       %s\n", s.VolumeName)
	fmt.Fprintf(Stdout, "Block size:        %d\n", s.BlockSize)
	fmt.Fprintf(Stdout, "Blocks:            %d (%d free; superblock %d, group %d)\n", s.BlocksCount, s.FreeBlocks, s.SuperFreeBlocks, s.GroupFreeBlocks)
	fmt.Fprintf(Stdout, "Inodes:            %d (%d free; superblock %d, group %d)\n", s.InodesCount, s.FreeInodes, s.SuperFreeInodes, s.GroupFreeInodes)
	fmt.Fprintf(Stdout, "Directories:       %d\n", s.UsedDirs)
	fmt.Fprintf(Stdout, "Block bitmap at:   %d\n", s.BlockBitmap)
	fmt.Fprintf(Stdout, "Inode bitmap at:   %d\n", s.InodeBitmap)
	fmt.Fprintf(Stdout, "Inode table at:    %d\n", s.InodeTable)
	return subcommands.ExitSuccess
}
