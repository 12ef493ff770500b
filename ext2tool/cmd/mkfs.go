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
	"gvisor.dev/ext2tools/pkg/ext2"
	"gvisor.dev/ext2tools/pkg/log"
)

// Mkfs implements subcommands.Command for the "mkfs" command.
type Mkfs struct {
	blocks uint
	inodes uint
	label  string
	force  bool
}

// Name implements subcommands.Command.Name.
func (*Mkfs) Name() string {
	return "mkfs"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Mkfs) Synopsis() string {
	return "create an empty image"
}

// Usage implements subcommands.Command.Usage.
func (*Mkfs) Usage() string {
	return `mkfs [flags] <image> - write a new single group image holding an empty root directory and lost+found.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Mkfs) SetFlags(f *flag.FlagSet) {
	f.UintVar(&m.blocks, "blocks", ext2.DefaultBlocks, "number of 1024 byte blocks.")
	f.UintVar(&m.inodes, "inodes", ext2.DefaultInodes, "number of inodes, rounded up to a multiple of 8.")
	f.StringVar(&m.label, "label", "", "volume name, at most 16 bytes.")
	f.BoolVar(&m.force, "force", false, "overwrite an existing file.")
}

// Execute implements subcommands.Command.Execute.
func (m *Mkfs) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	opts := ext2.FormatOptions{
		Blocks:     uint32(m.blocks),
		Inodes:     uint32(m.inodes),
		VolumeName: m.label,
		Overwrite:  m.force,
	}
	if err := ext2.Format(f.Arg(0), opts); err != nil {
		return util.Errorf("mkfs %q: %v", f.Arg(0), err)
	}
	log.Infof("Formatted %q with %+v", f.Arg(0), opts)
	return subcommands.ExitSuccess
}
