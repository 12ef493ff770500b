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

// Package cmd holds implementations of the ext2tool commands.
package cmd

import (
	"io"
	"os"

	"gvisor.dev/ext2tools/ext2tool/cmd/util"
	"gvisor.dev/ext2tools/ext2tool/config"
	"gvisor.dev/ext2tools/pkg/ext2"
)

// Stdout is where commands write their output.
var Stdout io.Writer = os.Stdout

// Aliases maps the names under which the binary may be installed to the
// command they run.
var Aliases = map[string]string{
	"ext2_cp":      "cp",
	"ext2_ln":      "ln",
	"ext2_mkdir":   "mkdir",
	"ext2_rm":      "rm",
	"ext2_restore": "restore",
	"ext2_checker": "checker",
}

// openImage opens the image at path and exits if that fails. Commands that
// do not modify the image pass readOnly.
func openImage(conf *config.Config, path string, readOnly bool) *ext2.Filesystem {
	fs, err := ext2.Open(path, ext2.Options{ReadOnly: readOnly, LockWait: conf.LockWait})
	if err != nil {
		util.Fatalf("opening image %q: %v", path, err)
	}
	return fs
}

// closeImage flushes and closes fs, exiting if that fails.
func closeImage(fs *ext2.Filesystem) {
	if err := fs.Close(); err != nil {
		util.Fatalf("closing image: %v", err)
	}
}
