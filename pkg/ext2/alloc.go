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

// Inode and block allocation. Both bitmaps hand out the lowest free id, and
// every bit change is mirrored in the free counters of the superblock and
// the group descriptor.

// FreeInodes returns the number of unset bits in the inode bitmap.
func (fs *Filesystem) FreeInodes() uint32 { return fs.inodeBitmap.GetNumZeros() }

// FreeBlocks returns the number of unset bits in the block bitmap.
func (fs *Filesystem) FreeBlocks() uint32 { return fs.blockBitmap.GetNumZeros() }

func (fs *Filesystem) adjustFreeInodes(delta int) {
	fs.sb.SetFreeInodesCount(uint32(int64(fs.sb.FreeInodesCount()) + int64(delta)))
	fs.bg.SetFreeInodesCount(uint16(int(fs.bg.FreeInodesCount()) + delta))
}

func (fs *Filesystem) adjustFreeBlocks(delta int) {
	fs.sb.SetFreeBlocksCount(uint32(int64(fs.sb.FreeBlocksCount()) + int64(delta)))
	fs.bg.SetFreeBlocksCount(uint16(int(fs.bg.FreeBlocksCount()) + delta))
}

// allocInode allocates the lowest free inode past the reserved ones and
// resets its transient fields. The rest of the inode, including its block pointers, is left as
// the previous owner wrote it.
func (fs *Filesystem) allocInode() (uint32, error) {
	bit, err := fs.inodeBitmap.FirstZero(fs.sb.FirstInode() - 1)
	if err != nil {
		return 0, fmt.Errorf("allocating inode: %w", linuxerr.ENOSPC)
	}
	ino := bit + 1
	in, err := fs.Inode(ino)
	if err != nil {
		return 0, err
	}
	fs.inodeBitmap.Add(bit)
	fs.adjustFreeInodes(-1)
	in.ResetForAllocation()
	log.Debugf("Allocated inode %d", ino)
	return ino, nil
}

// allocBlock allocates the lowest free block. Its contents are not cleared.
func (fs *Filesystem) allocBlock() (uint32, error) {
	bit, err := fs.blockBitmap.FirstZero(0)
	if err != nil {
		return 0, fmt.Errorf("allocating block: %w", linuxerr.ENOSPC)
	}
	fs.blockBitmap.Add(bit)
	fs.adjustFreeBlocks(-1)
	blk := bit + fs.sb.FirstDataBlock()
	log.Debugf("Allocated block %d", blk)
	return blk, nil
}

// allocZeroedBlock allocates a block and zeroes it.
func (fs *Filesystem) allocZeroedBlock() (uint32, []byte, error) {
	n, err := fs.allocBlock()
	if err != nil {
		return 0, nil, err
	}
	b, err := fs.Block(n)
	if err != nil {
		return 0, nil, err
	}
	clear(b)
	return n, b, nil
}

// releaseInode clears the bit of ino. The inode record is not touched.
func (fs *Filesystem) releaseInode(ino uint32) {
	if !fs.validInode(ino) {
		log.Warningf("Not releasing out of range inode %d", ino)
		return
	}
	if fs.inodeBitmap.Remove(ino - 1) {
		fs.adjustFreeInodes(1)
	}
}

// releaseBlock clears the bit of block n. The block contents are not
// touched.
func (fs *Filesystem) releaseBlock(n uint32) {
	if !fs.validBlock(n) {
		log.Warningf("Not releasing out of range block %d", n)
		return
	}
	if fs.blockBitmap.Remove(n - fs.sb.FirstDataBlock()) {
		fs.adjustFreeBlocks(1)
	}
}

// markInode sets the bit of ino. It returns false if the bit was already
// set.
func (fs *Filesystem) markInode(ino uint32) bool {
	if !fs.validInode(ino) || !fs.inodeBitmap.Add(ino-1) {
		return false
	}
	fs.adjustFreeInodes(-1)
	return true
}

// markBlock sets the bit of block n. It returns false if the bit was
// already set.
func (fs *Filesystem) markBlock(n uint32) bool {
	if !fs.validBlock(n) || !fs.blockBitmap.Add(n-fs.sb.FirstDataBlock()) {
		return false
	}
	fs.adjustFreeBlocks(-1)
	return true
}

func (fs *Filesystem) inodeInUse(ino uint32) bool {
	return fs.inodeBitmap.IsSet(ino - 1)
}

func (fs *Filesystem) blockInUse(n uint32) bool {
	return fs.validBlock(n) && fs.blockBitmap.IsSet(n-fs.sb.FirstDataBlock())
}

// checkSpace fails with ENOSPC unless inodes inodes and blocks blocks can
// be allocated.
func (fs *Filesystem) checkSpace(inodes, blocks uint32) error {
	if free := fs.FreeInodes(); free < inodes {
		return fmt.Errorf("need %d inodes, %d free: %w", inodes, free, linuxerr.ENOSPC)
	}
	if free := fs.FreeBlocks(); free < blocks {
		return fmt.Errorf("need %d blocks, %d free: %w", blocks, free, linuxerr.ENOSPC)
	}
	return nil
}

func (fs *Filesystem) checkWritable() error {
	if fs.readOnly {
		return linuxerr.EROFS
	}
	return nil
}
