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

// SuperBlock is a view of the ext2 superblock, struct ext2_super_block in
// fs/ext2/ext2.h.
type SuperBlock []byte

// Field offsets within the superblock.
const (
	sbInodesCount     = 0x00
	sbBlocksCount     = 0x04
	sbFreeBlocksCount = 0x0C
	sbFreeInodesCount = 0x10
	sbFirstDataBlock  = 0x14
	sbLogBlockSize    = 0x18
	sbBlocksPerGroup  = 0x20
	sbInodesPerGroup  = 0x28
	sbWriteTime       = 0x30
	sbMagic           = 0x38
	sbState           = 0x3A
	sbRevLevel        = 0x4C
	sbFirstInode      = 0x54
	sbInodeSize       = 0x58
	sbVolumeName      = 0x78
)

// InodesCount returns the total number of inodes.
func (sb SuperBlock) InodesCount() uint32 { return le.Uint32(sb[sbInodesCount:]) }

// BlocksCount returns the total number of blocks.
func (sb SuperBlock) BlocksCount() uint32 { return le.Uint32(sb[sbBlocksCount:]) }

// FreeBlocksCount returns the free block counter.
func (sb SuperBlock) FreeBlocksCount() uint32 { return le.Uint32(sb[sbFreeBlocksCount:]) }

// SetFreeBlocksCount sets the free block counter.
func (sb SuperBlock) SetFreeBlocksCount(v uint32) { le.PutUint32(sb[sbFreeBlocksCount:], v) }

// FreeInodesCount returns the free inode counter.
func (sb SuperBlock) FreeInodesCount() uint32 { return le.Uint32(sb[sbFreeInodesCount:]) }

// SetFreeInodesCount sets the free inode counter.
func (sb SuperBlock) SetFreeInodesCount(v uint32) { le.PutUint32(sb[sbFreeInodesCount:], v) }

// FirstDataBlock returns the block number of the first data block. Block
// bitmap bit 0 describes this block.
func (sb SuperBlock) FirstDataBlock() uint32 { return le.Uint32(sb[sbFirstDataBlock:]) }

// BlockSize returns the block size in bytes.
func (sb SuperBlock) BlockSize() uint64 {
	return 1 << (10 + uint64(le.Uint32(sb[sbLogBlockSize:])))
}

// BlocksPerGroup returns the number of blocks in each block group.
func (sb SuperBlock) BlocksPerGroup() uint32 { return le.Uint32(sb[sbBlocksPerGroup:]) }

// InodesPerGroup returns the number of inodes in each block group.
func (sb SuperBlock) InodesPerGroup() uint32 { return le.Uint32(sb[sbInodesPerGroup:]) }

// Magic returns the magic signature.
func (sb SuperBlock) Magic() uint16 { return le.Uint16(sb[sbMagic:]) }

// RevLevel returns the revision level.
func (sb SuperBlock) RevLevel() uint32 { return le.Uint32(sb[sbRevLevel:]) }

// FirstInode returns the first non-reserved inode number.
func (sb SuperBlock) FirstInode() uint32 {
	if sb.RevLevel() == 0 {
		return OldFirstInode
	}
	return le.Uint32(sb[sbFirstInode:])
}

// InodeSize returns the size of an inode record.
func (sb SuperBlock) InodeSize() uint16 {
	if sb.RevLevel() == 0 {
		return OldInodeSize
	}
	return le.Uint16(sb[sbInodeSize:])
}

// VolumeName returns the volume label.
func (sb SuperBlock) VolumeName() string {
	return cString(sb[sbVolumeName : sbVolumeName+16])
}

// SuperBlockInit holds the fields written by Init.
type SuperBlockInit struct {
	InodesCount    uint32
	BlocksCount    uint32
	FirstDataBlock uint32
	BlocksPerGroup uint32
	InodesPerGroup uint32
	FirstInode     uint32
	InodeSize      uint16
	Time           uint32
	VolumeName     string
}

// Init zeroes the superblock and writes a revision 1 superblock with 1024
// byte blocks. Free counters are left at zero.
func (sb SuperBlock) Init(p SuperBlockInit) {
	clear(sb[:SuperBlockSize])
	le.PutUint32(sb[sbInodesCount:], p.InodesCount)
	le.PutUint32(sb[sbBlocksCount:], p.BlocksCount)
	le.PutUint32(sb[sbFirstDataBlock:], p.FirstDataBlock)
	le.PutUint32(sb[sbBlocksPerGroup:], p.BlocksPerGroup)
	// Fragments are the same size as blocks.
	le.PutUint32(sb[0x24:], p.BlocksPerGroup)
	le.PutUint32(sb[sbInodesPerGroup:], p.InodesPerGroup)
	le.PutUint32(sb[sbWriteTime:], p.Time)
	// Maximal mount count.
	le.PutUint16(sb[0x36:], 0xFFFF)
	le.PutUint16(sb[sbMagic:], Magic)
	// Cleanly unmounted.
	le.PutUint16(sb[sbState:], 1)
	// Continue on errors.
	le.PutUint16(sb[0x3C:], 1)
	le.PutUint32(sb[0x40:], p.Time)
	le.PutUint32(sb[sbRevLevel:], 1)
	le.PutUint32(sb[sbFirstInode:], p.FirstInode)
	le.PutUint16(sb[sbInodeSize:], p.InodeSize)
	// Incompatible feature: directory entries carry a file type.
	le.PutUint32(sb[0x60:], 0x0002)
	copy(sb[sbVolumeName:sbVolumeName+16], p.VolumeName)
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
