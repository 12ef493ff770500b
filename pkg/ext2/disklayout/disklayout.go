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

// Package disklayout provides views of the ext2 on-disk structures.
//
// Every view is a byte slice aliasing the mapped image: getters decode the
// little-endian field in place and setters write it back immediately. No view
// copies data, so a change made through one view is visible through every
// other view of the same bytes.
//
// The layout follows Linux's fs/ext2/ext2.h. Only the revision 0 fields (and
// the few revision 1 fields needed to locate inodes) are exposed.
package disklayout

import (
	"encoding/binary"
)

const (
	// BlockSize is the only block size supported by this package.
	BlockSize = 1024

	// SuperBlockOffset is the byte offset of the superblock in the image.
	SuperBlockOffset = 1024

	// SuperBlockSize is the on-disk size of the superblock.
	SuperBlockSize = 1024

	// GroupDescBlock is the block holding the group descriptor table when
	// the block size is 1024.
	GroupDescBlock = 2

	// GroupDescSize is the on-disk size of one group descriptor.
	GroupDescSize = 32

	// OldInodeSize is the inode record size of revision 0 file systems.
	OldInodeSize = 128

	// RootInode is the inode number of the root directory.
	RootInode = 2

	// OldFirstInode is the first non-reserved inode of revision 0 file
	// systems.
	OldFirstInode = 11

	// Magic is the ext2 superblock magic number.
	Magic = 0xEF53

	// MaxFileName is the maximum length of a directory entry name.
	MaxFileName = 255

	// MaxSymlinkTarget is the maximum length of a symlink target.
	MaxSymlinkTarget = 4096

	// NumDirectBlocks is the number of direct block pointers in an inode.
	NumDirectBlocks = 12

	// IndirectBlockIdx is the index of the single indirect pointer in the
	// inode's block array.
	IndirectBlockIdx = 12

	// NumBlockPointers is the size of the inode's block array.
	NumBlockPointers = 15

	// PointersPerBlock is the number of block pointers held by an indirect
	// block.
	PointersPerBlock = BlockSize / 4

	// MaxFileBlocks is the number of data blocks addressable through the
	// direct pointers and the single indirect block.
	MaxFileBlocks = NumDirectBlocks + PointersPerBlock

	// SectorSize is the unit of the inode's block count field.
	SectorSize = 512

	// SectorsPerBlock is the number of sectors in one block.
	SectorsPerBlock = BlockSize / SectorSize
)

var le = binary.LittleEndian
