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

// Package util groups a bunch of common helper functions used by commands.
package util

import (
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/log"
)

// ErrorLogger is where error messages should be written to, in addition to
// stderr. It is set to the --log file, if any.
var ErrorLogger io.Writer

// Stderr is where user facing error messages are written.
var Stderr io.Writer = os.Stderr

func writeError(msg string) {
	fmt.Fprintln(Stderr, msg)
	if ErrorLogger != nil {
		fmt.Fprintln(ErrorLogger, msg)
	}
}

// Fatalf logs the same message to stderr and to ErrorLogger, then exits
// with status 128.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warningf("FATAL ERROR: %s", msg)
	writeError("ext2tool: " + msg)
	os.Exit(128)
}

// Errorf reports a failed command and returns subcommands.ExitFailure.
func Errorf(format string, args ...any) subcommands.ExitStatus {
	msg := fmt.Sprintf(format, args...)
	log.Warningf("%s", msg)
	writeError("ext2tool: " + msg)
	return subcommands.ExitFailure
}

// ErrnoStatus reports err and returns the errno it carries as the exit
// status, or subcommands.ExitFailure if it carries none.
func ErrnoStatus(err error) subcommands.ExitStatus {
	status := Errorf("%v", err)
	if e, ok := linuxerr.TranslateError(err); ok {
		if errno := linuxerr.ToUnix(e); errno != 0 {
			return subcommands.ExitStatus(errno)
		}
	}
	return status
}
