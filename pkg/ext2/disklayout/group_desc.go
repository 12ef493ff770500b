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

package disklayout

// GroupDesc is a view of a block group descriptor, struct ext2_group_desc in
// fs/ext2/ext2.h. Counters are 16 bits wide.
type GroupDesc []byte

const (
	bgBlockBitmap     = 0x00
	bgInodeBitmap     = 0x04
	bgInodeTable      = 0x08
	bgFreeBlocksCount = 0x0C
	bgFreeInodesCount = 0x0E
	bgUsedDirsCount   = 0x10
)

// BlockBitmap returns the block number of the block bitmap.
func (bg GroupDesc) BlockBitmap() uint32 { return le.Uint32(bg[bgBlockBitmap:]) }

// InodeBitmap returns the block number of the inode bitmap.
func (bg GroupDesc) InodeBitmap() uint32 { return le.Uint32(bg[bgInodeBitmap:]) }

// InodeTable returns the first block of the inode table.
func (bg GroupDesc) InodeTable() uint32 { return le.Uint32(bg[bgInodeTable:]) }

// FreeBlocksCount returns the group's free block counter.
func (bg GroupDesc) FreeBlocksCount() uint16 { return le.Uint16(bg[bgFreeBlocksCount:]) }

// SetFreeBlocksCount sets the group's free block counter.
func (bg GroupDesc) SetFreeBlocksCount(v uint16) { le.PutUint16(bg[bgFreeBlocksCount:], v) }

// FreeInodesCount returns the group's free inode counter.
func (bg GroupDesc) FreeInodesCount() uint16 { return le.Uint16(bg[bgFreeInodesCount:]) }

// SetFreeInodesCount sets the group's free inode counter.
func (bg GroupDesc) SetFreeInodesCount(v uint16) { le.PutUint16(bg[bgFreeInodesCount:], v) }

// UsedDirsCount returns the number of directories in the group.
func (bg GroupDesc) UsedDirsCount() uint16 { return le.Uint16(bg[bgUsedDirsCount:]) }

// SetUsedDirsCount sets the number of directories in the group.
func (bg GroupDesc) SetUsedDirsCount(v uint16) { le.PutUint16(bg[bgUsedDirsCount:], v) }

// Init zeroes the descriptor and records the metadata block locations.
func (bg GroupDesc) Init(blockBitmap, inodeBitmap, inodeTable uint32) {
	clear(bg[:GroupDescSize])
	le.PutUint32(bg[bgBlockBitmap:], blockBitmap)
	le.PutUint32(bg[bgInodeBitmap:], inodeBitmap)
	le.PutUint32(bg[bgInodeTable:], inodeTable)
}
