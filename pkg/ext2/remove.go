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
	"fmt"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/log"
)

// Remove unlinks the non-directory path; directories, including the root,
// are not found (ENOENT). The entry is folded into its predecessor so that
// Undelete can find it again. When the last link is
// dropped the inode is stamped with a deletion time and its inode bit, its
// data blocks and its indirect block are released. Released resources keep
// their contents.
func (fs *Filesystem) Remove(path string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}
	parent, name, err := fs.resolveParent(path)
	if err == errNoParent {
		return fmt.Errorf("remove %q: %w", path, linuxerr.ENOENT)
	}
	if err != nil {
		return err
	}
	e, err := fs.lookup(parent, name, anyType)
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	in, err := fs.Inode(e.InodeNumber)
	if err != nil {
		return err
	}
	if in.IsDir() || !notDir.match(e.FileTypeRaw) {
		return fmt.Errorf("remove %q: no such non-directory: %w", path, linuxerr.ENOENT)
	}
	blocks, err := fs.inodeBlocks(in)
	if err != nil {
		return err
	}

	if err := fs.spliceOut(parent, e); err != nil {
		return err
	}
	now := fs.timestamp()
	in.SetChangeTime(now)
	if links := in.LinksCount(); links > 0 {
		in.SetLinksCount(links - 1)
	}
	if in.LinksCount() > 0 {
		log.Infof("Removed %q from directory %d, inode %d has %d links left", name, parent, e.InodeNumber, in.LinksCount())
		return nil
	}
	in.SetDeletionTime(now)
	fs.releaseInode(e.InodeNumber)
	for _, b := range blocks {
		fs.releaseBlock(b)
	}
	log.Infof("Removed %q from directory %d, released inode %d and %d blocks", name, parent, e.InodeNumber, len(blocks))
	return nil
}
