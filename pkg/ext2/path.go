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

package ext2

import (
	"errors"
	"fmt"
	"strings"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
)

// errNoParent is returned by resolveParent for the root path.
var errNoParent = errors.New("root directory has no parent")

// splitPath returns the components of an absolute path. Empty components
// are dropped, so "/a//b/" is the same as "/a/b".
func splitPath(path string) []string {
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps
}

// isRoot reports whether path names the root directory.
func isRoot(path string) bool { return len(splitPath(path)) == 0 }

// resolveParent walks all but the last component of path and returns the
// directory holding the last component together with its name.
func (fs *Filesystem) resolveParent(path string) (uint32, string, error) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return 0, "", errNoParent
	}
	ino := uint32(disklayout.RootInode)
	for _, c := range comps[:len(comps)-1] {
		e, err := fs.lookup(ino, c, dirOnly)
		if err != nil {
			return 0, "", fmt.Errorf("resolving %q: %w", path, err)
		}
		ino = e.InodeNumber
	}
	return ino, comps[len(comps)-1], nil
}

// resolve returns the inode that path names. The last component must pass
// filter. The root path resolves to the root inode.
func (fs *Filesystem) resolve(path string, filter typeFilter) (uint32, error) {
	parent, name, err := fs.resolveParent(path)
	if err == errNoParent {
		return disklayout.RootInode, nil
	}
	if err != nil {
		return 0, err
	}
	e, err := fs.lookup(parent, name, filter)
	if err != nil {
		return 0, fmt.Errorf("resolving %q: %w", path, err)
	}
	return e.InodeNumber, nil
}

// createTarget decides where a new entry for dest goes. If dest names an
// existing directory the entry is created inside it as base; otherwise dest
// must not exist and its parent must. It fails with EEXIST if the chosen
// name is taken.
func (fs *Filesystem) createTarget(dest, base string) (uint32, string, error) {
	ino, err := fs.resolve(dest, anyType)
	switch {
	case err == nil:
		in, err := fs.Inode(ino)
		if err != nil {
			return 0, "", err
		}
		if !in.IsDir() {
			return 0, "", fmt.Errorf("%q: %w", dest, linuxerr.EEXIST)
		}
		if _, err := fs.lookup(ino, base, anyType); err == nil {
			return 0, "", fmt.Errorf("%q in %q: %w", base, dest, linuxerr.EEXIST)
		}
		return ino, base, nil
	case errors.Is(err, linuxerr.ENOENT):
		parent, name, err := fs.resolveParent(dest)
		if err != nil {
			return 0, "", err
		}
		return parent, name, nil
	default:
		return 0, "", err
	}
}
