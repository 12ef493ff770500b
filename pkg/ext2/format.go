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
	"time"

	"gvisor.dev/ext2tools/pkg/bitmap"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// Defaults for FormatOptions.
const (
	DefaultBlocks = 128
	DefaultInodes = 32
)

// LostAndFoundInode is the inode Format gives the lost+found directory.
const LostAndFoundInode = disklayout.OldFirstInode

// FormatOptions configures Format.
type FormatOptions struct {
	// Blocks is the image size in blocks.
	Blocks uint32

	// Inodes is the number of inodes. It is rounded up to a multiple of 8.
	Inodes uint32

	// VolumeName is the volume label, at most 16 bytes.
	VolumeName string

	// Overwrite allows replacing an existing file.
	Overwrite bool
}

// Format writes a new single block group ext2 image to path. The image
// holds a root directory and a lost+found directory. Inodes below
// lost+found are reserved.
//
// The layout is: boot block, superblock, group descriptor, block bitmap,
// inode bitmap, inode table, then data blocks.
func Format(path string, opts FormatOptions) error {
	if opts.Blocks == 0 {
		opts.Blocks = DefaultBlocks
	}
	if opts.Inodes == 0 {
		opts.Inodes = DefaultInodes
	}
	opts.Inodes = (opts.Inodes + 7) &^ 7
	const (
		firstDataBlock = 1
		blockBitmap    = disklayout.GroupDescBlock + 1
		inodeBitmap    = blockBitmap + 1
		inodeTable     = inodeBitmap + 1
		bitsPerBlock   = disklayout.BlockSize * 8
	)
	tableBlocks := (opts.Inodes*disklayout.OldInodeSize + disklayout.BlockSize - 1) / disklayout.BlockSize
	dataStart := inodeTable + tableBlocks
	switch {
	case opts.Inodes <= LostAndFoundInode || opts.Inodes > bitsPerBlock:
		return fmt.Errorf("inode count %d outside (%d, %d]", opts.Inodes, LostAndFoundInode, bitsPerBlock)
	case opts.Blocks-firstDataBlock > bitsPerBlock:
		return fmt.Errorf("%d blocks do not fit in one block group of %d", opts.Blocks, bitsPerBlock)
	case opts.Blocks < dataStart+2:
		return fmt.Errorf("%d blocks cannot hold %d metadata blocks and two directories", opts.Blocks, dataStart)
	case len(opts.VolumeName) > 16:
		return fmt.Errorf("volume name %q longer than 16 bytes", opts.VolumeName)
	}

	img := make([]byte, int(opts.Blocks)*disklayout.BlockSize)
	block := func(n uint32) []byte {
		return img[int(n)*disklayout.BlockSize : int(n+1)*disklayout.BlockSize]
	}
	inode := func(ino uint32) disklayout.Inode {
		off := int(inodeTable)*disklayout.BlockSize + int(ino-1)*disklayout.OldInodeSize
		return disklayout.Inode(img[off : off+disklayout.OldInodeSize])
	}
	now := uint32(time.Now().Unix())

	sb := disklayout.SuperBlock(img[disklayout.SuperBlockOffset : disklayout.SuperBlockOffset+disklayout.SuperBlockSize])
	sb.Init(disklayout.SuperBlockInit{
		InodesCount:    opts.Inodes,
		BlocksCount:    opts.Blocks,
		FirstDataBlock: firstDataBlock,
		BlocksPerGroup: bitsPerBlock,
		InodesPerGroup: opts.Inodes,
		FirstInode:     disklayout.OldFirstInode,
		InodeSize:      disklayout.OldInodeSize,
		Time:           now,
		VolumeName:     opts.VolumeName,
	})
	bg := disklayout.GroupDesc(block(disklayout.GroupDescBlock))
	bg.Init(blockBitmap, inodeBitmap, inodeTable)

	// Padding bits past the end of each bitmap are set, as mke2fs does.
	blockBits := opts.Blocks - firstDataBlock
	bbuf := block(blockBitmap)
	for i := blockBits; i < bitsPerBlock; i++ {
		bbuf[i/8] |= 1 << (i % 8)
	}
	ibuf := block(inodeBitmap)
	for i := opts.Inodes; i < bitsPerBlock; i++ {
		ibuf[i/8] |= 1 << (i % 8)
	}
	bbm, err := bitmap.New(bbuf, blockBits)
	if err != nil {
		return err
	}
	ibm, err := bitmap.New(ibuf, opts.Inodes)
	if err != nil {
		return err
	}

	rootBlock, lfBlock := dataStart, dataStart+1
	for b := uint32(firstDataBlock); b <= lfBlock; b++ {
		bbm.Add(b - firstDataBlock)
	}
	for ino := uint32(1); ino <= LostAndFoundInode; ino++ {
		ibm.Add(ino - 1)
	}

	root := inode(disklayout.RootInode)
	root.SetMode(disklayout.ModeDirectory | 0755)
	root.SetLinksCount(3)
	root.SetSize(disklayout.BlockSize)
	root.SetSectors(disklayout.SectorsPerBlock)
	root.SetTimes(now)
	root.SetBlock(0, rootBlock)
	writeDirents(block(rootBlock), []disklayout.Dirent{
		{InodeNumber: disklayout.RootInode, FileTypeRaw: disklayout.FileTypeDirectory, Name: "."},
		{InodeNumber: disklayout.RootInode, FileTypeRaw: disklayout.FileTypeDirectory, Name: ".."},
		{InodeNumber: LostAndFoundInode, FileTypeRaw: disklayout.FileTypeDirectory, Name: "lost+found"},
	})

	lf := inode(LostAndFoundInode)
	lf.SetMode(disklayout.ModeDirectory | 0700)
	lf.SetLinksCount(2)
	lf.SetSize(disklayout.BlockSize)
	lf.SetSectors(disklayout.SectorsPerBlock)
	lf.SetTimes(now)
	lf.SetBlock(0, lfBlock)
	writeDirents(block(lfBlock), []disklayout.Dirent{
		{InodeNumber: LostAndFoundInode, FileTypeRaw: disklayout.FileTypeDirectory, Name: "."},
		{InodeNumber: disklayout.RootInode, FileTypeRaw: disklayout.FileTypeDirectory, Name: ".."},
	})

	sb.SetFreeBlocksCount(bbm.GetNumZeros())
	sb.SetFreeInodesCount(ibm.GetNumZeros())
	bg.SetFreeBlocksCount(uint16(bbm.GetNumZeros()))
	bg.SetFreeInodesCount(uint16(ibm.GetNumZeros()))
	bg.SetUsedDirsCount(2)

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("creating image: %w", err)
	}
	if _, err := f.Write(img); err != nil {
		f.Close()
		return fmt.Errorf("writing image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	log.Infof("Formatted %q: %d blocks, %d inodes, data from block %d", path, opts.Blocks, opts.Inodes, dataStart)
	return nil
}

// writeDirents packs ents into blk, giving the last entry the rest of the
// block.
func writeDirents(blk []byte, ents []disklayout.Dirent) {
	off := 0
	for i := range ents {
		d := &ents[i]
		d.RecordLength = uint16(d.MinSize())
		if i == len(ents)-1 {
			d.RecordLength = uint16(len(blk) - off)
		}
		d.Encode(blk, off)
		off += int(d.RecordLength)
	}
}
