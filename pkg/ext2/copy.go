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
	"os"
	"path/filepath"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// CopyIn copies the host file src into the image at dest and returns the
// new inode. If dest is an existing directory the file is created inside it
// under the base name of src.
//
// All checks happen before the image is modified: ENOENT if src or the
// parent of dest is missing, EEXIST if the name is taken, ENAMETOOLONG,
// EFBIG if src needs more blocks than an inode can address and ENOSPC if
// the image lacks an inode or the data and directory blocks.
func (fs *Filesystem) CopyIn(src, dest string) (uint32, error) {
	if err := fs.checkWritable(); err != nil {
		return 0, err
	}
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("source %q: %w", src, linuxerr.ENOENT)
		}
		return 0, fmt.Errorf("source %q: %w", src, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("source %q: %w", src, err)
	}
	switch {
	case st.IsDir():
		return 0, fmt.Errorf("source %q: %w", src, linuxerr.EISDIR)
	case !st.Mode().IsRegular():
		return 0, fmt.Errorf("source %q is not a regular file: %w", src, linuxerr.EINVAL)
	}
	size := st.Size()
	if size > disklayout.MaxFileBlocks*disklayout.BlockSize {
		return 0, fmt.Errorf("source %q is %d bytes, at most %d fit: %w", src, size, disklayout.MaxFileBlocks*disklayout.BlockSize, linuxerr.EFBIG)
	}

	parent, name, err := fs.createTarget(dest, filepath.Base(src))
	if err != nil {
		return 0, err
	}
	if err := checkName(name); err != nil {
		return 0, err
	}
	dataBlocks, indirect := blocksForSize(size)
	used := dataBlocks + boolToUint32(indirect)
	grow, err := fs.needsBlock(parent, name)
	if err != nil {
		return 0, err
	}
	if err := fs.checkSpace(1, max(used+boolToUint32(grow), 1)); err != nil {
		return 0, err
	}

	ino, err := fs.allocInode()
	if err != nil {
		return 0, err
	}
	in, err := fs.Inode(ino)
	if err != nil {
		return 0, err
	}
	for i := 0; i < disklayout.NumBlockPointers; i++ {
		in.SetBlock(i, 0)
	}
	in.SetMode(disklayout.ModeRegular | 0644)
	in.SetSize(uint32(size))
	in.SetTimes(fs.timestamp())
	if err := fs.writeData(in, dataBlocks, f); err != nil {
		return 0, err
	}
	in.SetSectors(used * disklayout.SectorsPerBlock)
	if err := fs.appendEntry(parent, ino, name, disklayout.FileTypeRegular); err != nil {
		return 0, err
	}
	log.Infof("Copied %q (%d bytes, %d blocks) to inode %d as %q in directory %d", src, size, dataBlocks, ino, name, parent)
	return ino, nil
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
