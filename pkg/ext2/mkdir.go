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
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// Mkdir creates the directory path and returns its inode. It fails with
// EEXIST if path is the root or its name is taken in the parent, and with
// ENOSPC unless an inode, a block for the new directory and, if the parent
// is full, a block for the parent's entry are free.
func (fs *Filesystem) Mkdir(path string) (uint32, error) {
	if err := fs.checkWritable(); err != nil {
		return 0, err
	}
	parent, name, err := fs.resolveParent(path)
	if err == errNoParent {
		return 0, fmt.Errorf("mkdir %q: %w", path, linuxerr.EEXIST)
	}
	if err != nil {
		return 0, err
	}
	if _, err := fs.lookup(parent, name, anyType); err == nil {
		return 0, fmt.Errorf("mkdir %q: %w", path, linuxerr.EEXIST)
	}
	if err := checkName(name); err != nil {
		return 0, err
	}
	parentIn, err := fs.dirInode(parent)
	if err != nil {
		return 0, err
	}
	grow, err := fs.needsBlock(parent, name)
	if err != nil {
		return 0, err
	}
	if err := fs.checkSpace(1, 1+boolToUint32(grow)); err != nil {
		return 0, err
	}

	ino, err := fs.allocInode()
	if err != nil {
		return 0, err
	}
	b, blk, err := fs.allocZeroedBlock()
	if err != nil {
		return 0, err
	}
	dot := disklayout.Dirent{
		InodeNumber:  ino,
		RecordLength: uint16(disklayout.DirentSize(1)),
		FileTypeRaw:  disklayout.FileTypeDirectory,
		Name:         ".",
	}
	dotdot := disklayout.Dirent{
		InodeNumber:  parent,
		RecordLength: uint16(len(blk) - disklayout.DirentSize(1)),
		FileTypeRaw:  disklayout.FileTypeDirectory,
		Name:         "..",
	}
	dot.Encode(blk, 0)
	dotdot.Encode(blk, int(dot.RecordLength))

	in, err := fs.Inode(ino)
	if err != nil {
		return 0, err
	}
	for i := 0; i < disklayout.NumBlockPointers; i++ {
		in.SetBlock(i, 0)
	}
	in.SetBlock(0, b)
	in.SetMode(disklayout.ModeDirectory | 0755)
	in.SetLinksCount(2)
	in.SetSize(disklayout.BlockSize)
	in.SetSectors(disklayout.SectorsPerBlock)
	in.SetTimes(fs.timestamp())

	if err := fs.appendEntry(parent, ino, name, disklayout.FileTypeDirectory); err != nil {
		return 0, err
	}
	parentIn.SetLinksCount(parentIn.LinksCount() + 1)
	fs.bg.SetUsedDirsCount(fs.bg.UsedDirsCount() + 1)
	log.Infof("Created directory %q at inode %d, block %d, in directory %d", name, ino, b, parent)
	return ino, nil
}
