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

// Ln implements subcommands.Command for the "ln" command.
type Ln struct {
	symbolic bool
}

// Name implements subcommands.Command.Name.
func (*Ln) Name() string {
	return "ln"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Ln) Synopsis() string {
	return "create a hard or symbolic link in an image"
}

// Usage implements subcommands.Command.Usage.
func (*Ln) Usage() string {
	return `ln [-s] <image> [-s] <source> <link> - create <link> in <image> referring to <source>.

A hard link requires <source> to be an existing non-directory in the image.
A symbolic link stores <source> verbatim; it need not exist.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *Ln) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&l.symbolic, "s", false, "create a symbolic link.")
}

// Execute implements subcommands.Command.Execute.
func (l *Ln) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	pos := f.Args()
	symbolic := l.symbolic
	// "-s" may also follow the image.
	if len(pos) == 4 && pos[1] == "-s" {
		symbolic = true
		pos = append(pos[:1], pos[2:]...)
	}
	if len(pos) != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, pos[0], false)
	defer closeImage(fs)

	ino, err := fs.Link(pos[1], pos[2], symbolic)
	if err != nil {
		return util.ErrnoStatus(err)
	}
	log.Debugf("Linked %q to inode %d (symbolic: %t)", pos[2], ino, symbolic)
	return subcommands.ExitSuccess
}
