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

// Package cli is the main entrypoint for ext2tool.
package cli

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/subcommands"
	"gvisor.dev/ext2tools/ext2tool/cmd"
	"gvisor.dev/ext2tools/ext2tool/cmd/util"
	"gvisor.dev/ext2tools/ext2tool/config"
	"gvisor.dev/ext2tools/pkg/log"
)

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// Register with the main command line.
	config.RegisterFlags(flag.CommandLine)

	// An alias such as "ext2_cp" runs its command directly.
	os.Args = expandAlias(os.Args)

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	// Create a new Config from the flags.
	conf, err := config.NewFromFlags(flag.CommandLine)
	if err != nil {
		util.Fatalf("%v", err)
	}

	subcommand := flag.CommandLine.Arg(0)

	// Set up logging.
	if conf.Debug {
		log.SetLevel(log.Debug)
	}
	target := os.Stderr
	if conf.LogFilename != "" {
		f, err := log.OpenFile(conf.LogFilename, subcommand)
		if err != nil {
			util.Fatalf("error opening log file %q: %v", conf.LogFilename, err)
		}
		target = f
		util.ErrorLogger = f
	}
	if err := log.SetTarget(target, conf.LogFormat); err != nil {
		util.Fatalf("%v", err)
	}

	const delimString = `**************** ext2tool ****************`
	log.Infof(delimString)
	log.Infof("%s, %s, %s, PID %d, UID %d, GID %d", runtime.Version(), runtime.GOARCH, runtime.GOOS, os.Getpid(), os.Getuid(), os.Getgid())
	log.Infof("Args: %v", os.Args)
	conf.Log()
	log.Infof(delimString)

	// Call the subcommand and pass in the configuration.
	subcmdCode := subcommands.Execute(context.Background(), conf)
	if subcmdCode != subcommands.ExitSuccess {
		log.Infof("Exiting with status: %d", subcmdCode)
	}
	os.Exit(int(subcmdCode))
}

// expandAlias rewrites the arguments of a binary invoked under one of the
// names in cmd.Aliases into those of the matching command.
func expandAlias(args []string) []string {
	if len(args) == 0 {
		return args
	}
	name, ok := cmd.Aliases[filepath.Base(args[0])]
	if !ok {
		return args
	}
	rv := make([]string, 0, len(args)+1)
	rv = append(rv, args[0], name)
	return append(rv, args[1:]...)
}

// forEachCmd invokes the passed callback for each command supported by
// ext2tool.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")
	cb(subcommands.CommandsCommand(), "")

	// Commands that modify an image.
	cb(new(cmd.Cp), "")
	cb(new(cmd.Ln), "")
	cb(new(cmd.Mkdir), "")
	cb(new(cmd.Rm), "")
	cb(new(cmd.Restore), "")
	cb(new(cmd.Checker), "")

	// Helpers.
	const helperGroup = "helpers"
	cb(new(cmd.Mkfs), helperGroup)
	cb(new(cmd.Ls), helperGroup)
	cb(new(cmd.Cat), helperGroup)
	cb(new(cmd.Info), helperGroup)
}
