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
	"bytes"
	"fmt"
	"math"
	"path"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// Link creates linkPath referring to source. If linkPath is an existing
// directory the link is created inside it under the base name of source.
//
// A hard link requires source to exist and not be a directory (ENOENT); the
// new entry refers to the same inode, whose link count is incremented. A
// symbolic link stores source verbatim in the data blocks of a new inode;
// source need not exist but may not exceed 4096 bytes (ENAMETOOLONG).
func (fs *Filesystem) Link(source, linkPath string, symbolic bool) (uint32, error) {
	if err := fs.checkWritable(); err != nil {
		return 0, err
	}
	if symbolic {
		return fs.symlink(source, linkPath)
	}
	return fs.hardLink(source, linkPath)
}

func (fs *Filesystem) hardLink(source, linkPath string) (uint32, error) {
	if isRoot(source) {
		return 0, fmt.Errorf("hard link to %q: %w", source, linuxerr.ENOENT)
	}
	ino, err := fs.resolve(source, anyType)
	if err != nil {
		return 0, err
	}
	in, err := fs.Inode(ino)
	if err != nil {
		return 0, err
	}
	if in.IsDir() {
		return 0, fmt.Errorf("hard link to %q: no such non-directory: %w", source, linuxerr.ENOENT)
	}
	if in.LinksCount() == math.MaxUint16 {
		return 0, fmt.Errorf("hard link to %q: %w", source, linuxerr.EMLINK)
	}
	parent, name, err := fs.createTarget(linkPath, path.Base(source))
	if err != nil {
		return 0, err
	}
	if err := checkName(name); err != nil {
		return 0, err
	}
	grow, err := fs.needsBlock(parent, name)
	if err != nil {
		return 0, err
	}
	if err := fs.checkSpace(0, boolToUint32(grow)); err != nil {
		return 0, err
	}

	if err := fs.appendEntry(parent, ino, name, in.FileType()); err != nil {
		return 0, err
	}
	in.SetLinksCount(in.LinksCount() + 1)
	in.SetChangeTime(fs.timestamp())
	log.Infof("Linked %q in directory %d to inode %d (%d links)", name, parent, ino, in.LinksCount())
	return ino, nil
}

func (fs *Filesystem) symlink(target, linkPath string) (uint32, error) {
	switch {
	case len(target) == 0:
		return 0, fmt.Errorf("empty symlink target: %w", linuxerr.ENOENT)
	case len(target) > disklayout.MaxSymlinkTarget:
		return 0, fmt.Errorf("symlink target of %d bytes: %w", len(target), linuxerr.ENAMETOOLONG)
	}
	parent, name, err := fs.createTarget(linkPath, path.Base(target))
	if err != nil {
		return 0, err
	}
	if err := checkName(name); err != nil {
		return 0, err
	}
	dataBlocks, _ := blocksForSize(int64(len(target)))
	grow, err := fs.needsBlock(parent, name)
	if err != nil {
		return 0, err
	}
	if err := fs.checkSpace(1, dataBlocks+boolToUint32(grow)); err != nil {
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
	in.SetMode(disklayout.ModeSymlink | 0777)
	in.SetSize(uint32(len(target)))
	in.SetTimes(fs.timestamp())
	if err := fs.writeData(in, dataBlocks, bytes.NewReader([]byte(target))); err != nil {
		return 0, err
	}
	in.SetSectors(dataBlocks * disklayout.SectorsPerBlock)
	if err := fs.appendEntry(parent, ino, name, disklayout.FileTypeSymlink); err != nil {
		return 0, err
	}
	log.Infof("Created symlink %q in directory %d -> %q at inode %d", name, parent, target, ino)
	return ino, nil
}
