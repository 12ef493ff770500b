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

// Inode is a view of an ext2 inode record, struct ext2_inode in
// fs/ext2/ext2.h. Only the first OldInodeSize bytes are interpreted.
//
// All fields representing time are in seconds since the epoch.
type Inode []byte

const (
	inMode       = 0x00
	inUID        = 0x02
	inSize       = 0x04
	inAccessTime = 0x08
	inChangeTime = 0x0C
	inModTime    = 0x10
	inDelTime    = 0x14
	inGID        = 0x18
	inLinksCount = 0x1A
	inBlocks     = 0x1C
	inFlags      = 0x20
	inOSD1       = 0x24
	inBlock      = 0x28
	inGeneration = 0x64
	inFileACL    = 0x68
	inDirACL     = 0x6C
	inFaddr      = 0x70
)

// File type bits of the inode mode.
const (
	ModeTypeMask  = 0xF000
	ModeSocket    = 0xC000
	ModeSymlink   = 0xA000
	ModeRegular   = 0x8000
	ModeBlockDev  = 0x6000
	ModeDirectory = 0x4000
	ModeCharDev   = 0x2000
	ModeFIFO      = 0x1000
)

// Mode returns the file mode, type and permission bits.
func (in Inode) Mode() uint16 { return le.Uint16(in[inMode:]) }

// SetMode sets the file mode.
func (in Inode) SetMode(v uint16) { le.PutUint16(in[inMode:], v) }

// IsDir reports whether the inode is a directory.
func (in Inode) IsDir() bool { return in.Mode()&ModeTypeMask == ModeDirectory }

// IsFastSymlink reports whether the inode is a symlink whose target is
// stored in the block pointer array instead of a data block.
func (in Inode) IsFastSymlink() bool {
	return in.Mode()&ModeTypeMask == ModeSymlink && in.Sectors() == 0
}

// FileType returns the directory entry type tag matching the inode's mode.
func (in Inode) FileType() FileType { return FileTypeFromMode(in.Mode()) }

// UID returns the low 16 bits of the owner.
func (in Inode) UID() uint16 { return le.Uint16(in[inUID:]) }

// GID returns the low 16 bits of the group.
func (in Inode) GID() uint16 { return le.Uint16(in[inGID:]) }

// Size returns the file size in bytes. In ext2 the high half of the size
// field was named DirACL and is not used here.
func (in Inode) Size() uint32 { return le.Uint32(in[inSize:]) }

// SetSize sets the file size.
func (in Inode) SetSize(v uint32) { le.PutUint32(in[inSize:], v) }

// AccessTime returns the last access time.
func (in Inode) AccessTime() uint32 { return le.Uint32(in[inAccessTime:]) }

// ChangeTime returns the last inode change time.
func (in Inode) ChangeTime() uint32 { return le.Uint32(in[inChangeTime:]) }

// ModificationTime returns the last modification time.
func (in Inode) ModificationTime() uint32 { return le.Uint32(in[inModTime:]) }

// SetTimes sets the access, change and modification times.
func (in Inode) SetTimes(t uint32) {
	le.PutUint32(in[inAccessTime:], t)
	le.PutUint32(in[inChangeTime:], t)
	le.PutUint32(in[inModTime:], t)
}

// SetChangeTime sets the inode change time.
func (in Inode) SetChangeTime(t uint32) { le.PutUint32(in[inChangeTime:], t) }

// DeletionTime returns the deletion time. Zero means the inode is live.
func (in Inode) DeletionTime() uint32 { return le.Uint32(in[inDelTime:]) }

// SetDeletionTime sets the deletion time.
func (in Inode) SetDeletionTime(t uint32) { le.PutUint32(in[inDelTime:], t) }

// LinksCount returns the hard link count.
func (in Inode) LinksCount() uint16 { return le.Uint16(in[inLinksCount:]) }

// SetLinksCount sets the hard link count.
func (in Inode) SetLinksCount(v uint16) { le.PutUint16(in[inLinksCount:], v) }

// Sectors returns the number of 512 byte sectors allocated to the inode.
func (in Inode) Sectors() uint32 { return le.Uint32(in[inBlocks:]) }

// SetSectors sets the sector count.
func (in Inode) SetSectors(v uint32) { le.PutUint32(in[inBlocks:], v) }

// Block returns block pointer i, 0 <= i < NumBlockPointers.
func (in Inode) Block(i int) uint32 { return le.Uint32(in[inBlock+4*i:]) }

// SetBlock sets block pointer i.
func (in Inode) SetBlock(i int, v uint32) { le.PutUint32(in[inBlock+4*i:], v) }

// Data returns the raw block pointer array.
func (in Inode) Data() []byte { return in[inBlock : inBlock+4*NumBlockPointers] }

// ResetForAllocation clears the fields a freshly allocated inode must not
// inherit from a previous owner and sets its link count to 1.
func (in Inode) ResetForAllocation() {
	le.PutUint16(in[inUID:], 0)
	le.PutUint16(in[inGID:], 0)
	le.PutUint16(in[inLinksCount:], 1)
	le.PutUint32(in[inDelTime:], 0)
	le.PutUint32(in[inFlags:], 0)
	le.PutUint32(in[inOSD1:], 0)
	le.PutUint32(in[inGeneration:], 0)
	le.PutUint32(in[inFileACL:], 0)
	le.PutUint32(in[inDirACL:], 0)
	le.PutUint32(in[inFaddr:], 0)
}

// IndirectBlock is a view of a block of block pointers.
type IndirectBlock []byte

// Len returns the number of pointer slots.
func (ib IndirectBlock) Len() int { return len(ib) / 4 }

// Get returns pointer i.
func (ib IndirectBlock) Get(i int) uint32 { return le.Uint32(ib[4*i:]) }

// Set sets pointer i.
func (ib IndirectBlock) Set(i int, v uint32) { le.PutUint32(ib[4*i:], v) }
