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
	"io"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// inodeBlocks lists the blocks referenced by in: every non-zero direct
// pointer, then the indirect block and the pointers it holds up to the first
// zero. Block numbers are not validated.
func (fs *Filesystem) inodeBlocks(in disklayout.Inode) ([]uint32, error) {
	if in.IsFastSymlink() {
		return nil, nil
	}
	var blocks []uint32
	for i := 0; i < disklayout.NumDirectBlocks; i++ {
		if b := in.Block(i); b != 0 {
			blocks = append(blocks, b)
		}
	}
	ind := in.Block(disklayout.IndirectBlockIdx)
	if ind == 0 {
		return blocks, nil
	}
	blocks = append(blocks, ind)
	blk, err := fs.Block(ind)
	if err != nil {
		return blocks, err
	}
	ib := disklayout.IndirectBlock(blk)
	for i := 0; i < ib.Len(); i++ {
		b := ib.Get(i)
		if b == 0 {
			break
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// blocksForSize returns the number of data blocks holding size bytes and
// whether an indirect block is needed to address them.
func blocksForSize(size int64) (uint32, bool) {
	n := uint32((size + disklayout.BlockSize - 1) / disklayout.BlockSize)
	return n, n > disklayout.NumDirectBlocks
}

// writeData allocates n data blocks for in and fills them from r, zero
// padding the last one. Direct blocks are allocated first, then the
// indirect block, then the blocks it lists. The caller has verified that
// enough blocks are free.
func (fs *Filesystem) writeData(in disklayout.Inode, n uint32, r io.Reader) error {
	var ib disklayout.IndirectBlock
	for i := uint32(0); i < n; i++ {
		if i == disklayout.NumDirectBlocks {
			ind, blk, err := fs.allocZeroedBlock()
			if err != nil {
				return err
			}
			in.SetBlock(disklayout.IndirectBlockIdx, ind)
			ib = disklayout.IndirectBlock(blk)
		}
		b, blk, err := fs.allocZeroedBlock()
		if err != nil {
			return err
		}
		if i < disklayout.NumDirectBlocks {
			in.SetBlock(int(i), b)
		} else {
			ib.Set(int(i-disklayout.NumDirectBlocks), b)
		}
		if _, err := io.ReadFull(r, blk); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return fmt.Errorf("reading data for block %d: %w", b, err)
		}
		if log.IsLogging(log.Debug) {
			log.Debugf("Wrote data block %d (%d of %d), indirect block %d", b, i+1, n, in.Block(disklayout.IndirectBlockIdx))
		}
	}
	return nil
}

// readData returns the first Size() bytes of the blocks of in.
func (fs *Filesystem) readData(in disklayout.Inode) ([]byte, error) {
	size := int(in.Size())
	if size > disklayout.MaxFileBlocks*disklayout.BlockSize {
		return nil, fmt.Errorf("%w: size %d exceeds the addressable %d bytes", linuxerr.EIO, size, disklayout.MaxFileBlocks*disklayout.BlockSize)
	}
	if in.IsFastSymlink() {
		return append([]byte(nil), in.Data()[:min(size, len(in.Data()))]...), nil
	}
	n, _ := blocksForSize(int64(size))
	data := make([]byte, 0, size)
	ptr := func(i uint32) (uint32, error) {
		if i < disklayout.NumDirectBlocks {
			return in.Block(int(i)), nil
		}
		blk, err := fs.Block(in.Block(disklayout.IndirectBlockIdx))
		if err != nil {
			return 0, err
		}
		return disklayout.IndirectBlock(blk).Get(int(i - disklayout.NumDirectBlocks)), nil
	}
	for i := uint32(0); i < n; i++ {
		b, err := ptr(i)
		if err != nil {
			return nil, err
		}
		want := min(size-len(data), disklayout.BlockSize)
		if b == 0 {
			// Sparse block.
			data = append(data, make([]byte, want)...)
			continue
		}
		blk, err := fs.Block(b)
		if err != nil {
			return nil, err
		}
		data = append(data, blk[:want]...)
	}
	return data, nil
}
