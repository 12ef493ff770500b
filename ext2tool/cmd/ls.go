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
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/ext2tools/ext2tool/cmd/util"
	"gvisor.dev/ext2tools/ext2tool/config"
)

// Ls implements subcommands.Command for the "ls" command.
type Ls struct {
	deleted bool
	long    bool
}

// Name implements subcommands.Command.Name.
func (*Ls) Name() string {
	return "ls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Ls) Synopsis() string {
	return "list a directory of an image"
}

// Usage implements subcommands.Command.Usage.
func (*Ls) Usage() string {
	return `ls [-d] [-l] <image> [<path>] - list the entries of directory <path> (default "/") in on-disk order.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *Ls) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&l.deleted, "d", false, "also list removed entries that can still be found.")
	f.BoolVar(&l.long, "l", false, "print permissions, link count, owner, size and modification time.")
}

// Execute implements subcommands.Command.Execute.
func (l *Ls) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	path := "/"
	if f.NArg() == 2 {
		path = f.Arg(1)
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), true)
	defer closeImage(fs)

	ents, err := fs.ReadDir(path, l.deleted)
	if err != nil {
		return util.ErrnoStatus(err)
	}
	w := tabwriter.NewWriter(Stdout, 0, 8, 1, ' ', 0)
	for _, e := range ents {
		name := e.Name
		if e.Deleted {
			name += " (deleted)"
		}
		if !l.long {
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.Inode, e.Type, name)
			continue
		}
		st, err := fs.StatInode(e.Inode)
		if err != nil {
			// Stale inode numbers are expected in removed entries.
			fmt.Fprintf(w, "%d\t%s\t?\t?\t?\t?\t?\t?\t%s\n", e.Inode, e.Type, name)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%04o\t%d\t%d\t%d\t%d\t%s\t%s\n",
			e.Inode, e.Type, st.Mode&0o7777, st.Links, st.UID, st.GID, st.Size,
			st.ModificationTime.UTC().Format(time.DateTime), name)
	}
	if err := w.Flush(); err != nil {
		return util.Errorf("writing listing: %v", err)
	}
	return subcommands.ExitSuccess
}
