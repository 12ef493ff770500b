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
	"gvisor.dev/ext2tools/ext2tool/cmd/util"
	"gvisor.dev/ext2tools/ext2tool/config"
)

// Checker implements subcommands.Command for the "checker" command.
type Checker struct{}

// Name implements subcommands.Command.Name.
func (*Checker) Name() string {
	return "checker"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Checker) Synopsis() string {
	return "check an image and repair inconsistencies"
}

// Usage implements subcommands.Command.Usage.
func (*Checker) Usage() string {
	return `checker <image> - repair free counters, entry types, inode and block bitmaps and deletion times of reachable files.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Checker) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Checker) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	fs := openImage(conf, f.Arg(0), false)
	defer closeImage(fs)

	report, err := fs.Check()
	if err != nil {
		return util.ErrnoStatus(err)
	}
	for _, r := range report.Repairs {
		fmt.Fprintln(Stdout, r.Message)
	}
	fmt.Fprintln(Stdout, report.Summary())
	return subcommands.ExitSuccess
}
