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

	"golang.org/x/sys/unix"
	ext2errors "gvisor.dev/ext2tools/pkg/errors"
	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/log"
)

// ErrUnrecoverable is returned by Undelete when the deleted file's inode or
// one of its blocks has been allocated again since it was removed. It
// carries ENOENT.
var ErrUnrecoverable = ext2errors.New(unix.ENOENT, "deleted file's inode or blocks have been reused")

// Undelete restores the first hidden non-directory entry named by
// path and returns its inode. The inode and every block it references must
// still be free; nothing is restored otherwise.
//
// An entry that started a directory block has no predecessor to hide in.
// Remove clears its inode number instead, so it cannot be found and
// Undelete returns ENOENT.
func (fs *Filesystem) Undelete(path string) (uint32, error) {
	if err := fs.checkWritable(); err != nil {
		return 0, err
	}
	parent, name, err := fs.resolveParent(path)
	if err == errNoParent {
		return 0, fmt.Errorf("restore %q: %w", path, linuxerr.ENOENT)
	}
	if err != nil {
		return 0, err
	}
	if _, err := fs.lookup(parent, name, anyType); err == nil {
		return 0, fmt.Errorf("restore %q: %w", path, linuxerr.EEXIST)
	} else if !errors.Is(err, linuxerr.ENOENT) {
		return 0, err
	}
	h, err := fs.findHidden(parent, name)
	if err != nil {
		return 0, fmt.Errorf("restore %q: %w", path, err)
	}
	ino := h.InodeNumber
	if !fs.validInode(ino) || fs.inodeInUse(ino) {
		return 0, fmt.Errorf("restore %q: inode %d: %w", path, ino, ErrUnrecoverable)
	}
	in, err := fs.Inode(ino)
	if err != nil {
		return 0, err
	}
	blocks, err := fs.inodeBlocks(in)
	if err != nil {
		return 0, fmt.Errorf("restore %q: %v: %w", path, err, ErrUnrecoverable)
	}
	for _, b := range blocks {
		if !fs.validBlock(b) || fs.blockInUse(b) {
			return 0, fmt.Errorf("restore %q: block %d: %w", path, b, ErrUnrecoverable)
		}
	}

	if err := fs.unhide(h); err != nil {
		return 0, err
	}
	fs.markInode(ino)
	for _, b := range blocks {
		fs.markBlock(b)
	}
	in.SetDeletionTime(0)
	in.SetLinksCount(in.LinksCount() + 1)
	in.SetChangeTime(fs.timestamp())
	log.Infof("Restored %q in directory %d as inode %d with %d blocks", name, parent, ino, len(blocks))
	return ino, nil
}
