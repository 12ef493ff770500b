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
	"strings"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// typeFilter restricts which entries lookup accepts.
type typeFilter int

const (
	anyType typeFilter = iota
	dirOnly
	notDir
)

func (f typeFilter) match(t disklayout.FileType) bool {
	switch f {
	case dirOnly:
		return t == disklayout.FileTypeDirectory
	case notDir:
		return t != disklayout.FileTypeDirectory
	default:
		return true
	}
}

// dirent is a decoded directory entry together with its location.
type dirent struct {
	disklayout.Dirent

	// block is the directory data block holding the entry.
	block uint32

	// off is the offset of the entry in block.
	off int

	// prev is the offset of the preceding entry in block, or -1 for the
	// first entry.
	prev int
}

// direntCursor walks the records of one directory block in on-disk order.
type direntCursor struct {
	block uint32
	blk   []byte
	off   int
	prev  int
}

func newDirentCursor(block uint32, blk []byte) *direntCursor {
	return &direntCursor{block: block, blk: blk, prev: -1}
}

// remaining returns the number of bytes not yet visited.
func (c *direntCursor) remaining() int { return len(c.blk) - c.off }

// next decodes the record at the cursor and advances past it. It returns
// io.EOF once the end of the block is reached.
func (c *direntCursor) next() (dirent, error) {
	if c.remaining() == 0 {
		return dirent{}, io.EOF
	}
	d, err := disklayout.DecodeDirent(c.blk, c.off)
	if err != nil {
		return dirent{}, fmt.Errorf("%w: directory block %d: %v", linuxerr.EIO, c.block, err)
	}
	e := dirent{Dirent: d, block: c.block, off: c.off, prev: c.prev}
	c.prev = c.off
	c.off += int(d.RecordLength)
	return e, nil
}

// dirBlocks returns the data blocks of directory dir in order. Directories
// only use direct blocks; the list ends at the first zero pointer.
func dirBlocks(dir disklayout.Inode) []uint32 {
	var blocks []uint32
	for i := 0; i < disklayout.NumDirectBlocks; i++ {
		b := dir.Block(i)
		if b == 0 {
			break
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// dirInode returns the inode of directory ino, failing with ENOTDIR if it
// is something else.
func (fs *Filesystem) dirInode(ino uint32) (disklayout.Inode, error) {
	in, err := fs.Inode(ino)
	if err != nil {
		return nil, err
	}
	if !in.IsDir() {
		return nil, fmt.Errorf("inode %d: %w", ino, linuxerr.ENOTDIR)
	}
	return in, nil
}

// forEachRecord calls fn for every record of directory ino, including
// records whose inode number is zero. Iteration stops early if fn returns
// true.
func (fs *Filesystem) forEachRecord(ino uint32, fn func(blk []byte, e dirent) bool) error {
	dir, err := fs.dirInode(ino)
	if err != nil {
		return err
	}
	for _, b := range dirBlocks(dir) {
		blk, err := fs.Block(b)
		if err != nil {
			return err
		}
		c := newDirentCursor(b, blk)
		for {
			e, err := c.next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			if fn(blk, e) {
				return nil
			}
		}
	}
	return nil
}

// forEachDirent is forEachRecord restricted to live entries.
func (fs *Filesystem) forEachDirent(ino uint32, fn func(blk []byte, e dirent) bool) error {
	return fs.forEachRecord(ino, func(blk []byte, e dirent) bool {
		if e.InodeNumber == 0 {
			return false
		}
		return fn(blk, e)
	})
}

// lookup returns the first live entry of directory ino named name whose
// type passes filter.
func (fs *Filesystem) lookup(ino uint32, name string, filter typeFilter) (dirent, error) {
	var (
		found dirent
		ok    bool
	)
	err := fs.forEachDirent(ino, func(_ []byte, e dirent) bool {
		if e.Name == name && filter.match(e.FileTypeRaw) {
			found, ok = e, true
		}
		return ok
	})
	if err != nil {
		return dirent{}, err
	}
	if !ok {
		return dirent{}, fmt.Errorf("%q: %w", name, linuxerr.ENOENT)
	}
	return found, nil
}

// checkName validates the final component of a new entry.
func checkName(name string) error {
	switch {
	case len(name) == 0 || name == "." || name == ".." || strings.ContainsRune(name, '/'):
		return fmt.Errorf("%q: %w", name, linuxerr.EINVAL)
	case len(name) > disklayout.MaxFileName:
		return fmt.Errorf("%.16q...: %w", name, linuxerr.ENAMETOOLONG)
	}
	return nil
}

// appendSlot describes where a new entry would go in a directory.
type appendSlot struct {
	// idx is the index of the directory's last used block pointer, or -1
	// if the directory has no blocks.
	idx int

	// last is the last entry of that block. Only valid when idx >= 0.
	last dirent
}

func (fs *Filesystem) findAppendSlot(ino uint32) (disklayout.Inode, appendSlot, error) {
	dir, err := fs.dirInode(ino)
	if err != nil {
		return nil, appendSlot{}, err
	}
	blocks := dirBlocks(dir)
	slot := appendSlot{idx: len(blocks) - 1}
	if slot.idx < 0 {
		return dir, slot, nil
	}
	b := blocks[slot.idx]
	blk, err := fs.Block(b)
	if err != nil {
		return nil, appendSlot{}, err
	}
	c := newDirentCursor(b, blk)
	for {
		e, err := c.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appendSlot{}, err
		}
		slot.last = e
	}
	return dir, slot, nil
}

// fits reports whether an entry named name fits in the slack of the slot's
// last entry.
func (s appendSlot) fits(name string) bool {
	return s.idx >= 0 && s.last.Slack() >= disklayout.DirentSize(len(name))
}

// needsBlock reports whether appending an entry named name to directory ino
// would allocate a new directory block. It fails with ENOSPC if the
// directory has no direct pointer left for that block.
func (fs *Filesystem) needsBlock(ino uint32, name string) (bool, error) {
	_, slot, err := fs.findAppendSlot(ino)
	if err != nil {
		return false, err
	}
	if slot.fits(name) {
		return false, nil
	}
	if slot.idx+1 >= disklayout.NumDirectBlocks {
		return false, fmt.Errorf("directory inode %d is full: %w", ino, linuxerr.ENOSPC)
	}
	return true, nil
}

// appendEntry adds an entry for child named name to directory ino. The
// entry is placed in the slack of the last entry of the directory's last
// block when it fits, and in a newly allocated block otherwise.
func (fs *Filesystem) appendEntry(ino, child uint32, name string, ft disklayout.FileType) error {
	if err := checkName(name); err != nil {
		return err
	}
	dir, slot, err := fs.findAppendSlot(ino)
	if err != nil {
		return err
	}
	need := disklayout.DirentSize(len(name))
	if slot.fits(name) {
		blk, err := fs.Block(slot.last.block)
		if err != nil {
			return err
		}
		keep := slot.last.MinSize()
		d := disklayout.Dirent{
			InodeNumber:  child,
			RecordLength: slot.last.RecordLength - uint16(keep),
			FileTypeRaw:  ft,
			Name:         name,
		}
		disklayout.SetRecordLength(blk, slot.last.off, uint16(keep))
		d.Encode(blk, slot.last.off+keep)
		log.Debugf("Added %q -> %d to directory %d, block %d offset %d", name, child, ino, slot.last.block, slot.last.off+keep)
		return nil
	}

	idx := slot.idx + 1
	if idx >= disklayout.NumDirectBlocks {
		return fmt.Errorf("directory inode %d is full: %w", ino, linuxerr.ENOSPC)
	}
	b, blk, err := fs.allocZeroedBlock()
	if err != nil {
		return err
	}
	d := disklayout.Dirent{
		InodeNumber:  child,
		RecordLength: uint16(len(blk)),
		FileTypeRaw:  ft,
		Name:         name,
	}
	d.Encode(blk, 0)
	dir.SetBlock(idx, b)
	dir.SetSize(dir.Size() + disklayout.BlockSize)
	dir.SetSectors(dir.Sectors() + disklayout.SectorsPerBlock)
	log.Debugf("Added %q -> %d to directory %d in new block %d (need %d bytes)", name, child, ino, b, need)
	return nil
}

// spliceOut removes entry e of directory ino by folding its record into the
// preceding record. The entry's bytes are left in place. An entry that
// starts a block has no predecessor and is cleared by zeroing its inode
// number instead.
func (fs *Filesystem) spliceOut(ino uint32, e dirent) error {
	blk, err := fs.Block(e.block)
	if err != nil {
		return err
	}
	if e.prev < 0 {
		disklayout.SetInodeNumber(blk, e.off, 0)
		log.Debugf("Cleared first entry %q of directory %d block %d", e.Name, ino, e.block)
		return nil
	}
	prev, err := disklayout.DecodeDirent(blk, e.prev)
	if err != nil {
		return fmt.Errorf("%w: directory %d: %v", linuxerr.EIO, ino, err)
	}
	disklayout.SetRecordLength(blk, e.prev, prev.RecordLength+e.RecordLength)
	log.Debugf("Spliced %q out of directory %d block %d", e.Name, ino, e.block)
	return nil
}

// hiddenEntry is a deleted entry found in the slack of a live record.
type hiddenEntry struct {
	disklayout.Dirent

	// host is the live record whose slack holds the entry.
	host dirent

	// rel is the offset of the entry relative to host.
	rel int
}

// findHidden searches the slack of every record of directory ino for a
// deleted entry named name that is not a directory. Within a slack region
// entries are visited by stepping over each entry's minimum size.
func (fs *Filesystem) findHidden(ino uint32, name string) (hiddenEntry, error) {
	var (
		found hiddenEntry
		ok    bool
	)
	err := fs.forEachRecord(ino, func(blk []byte, e dirent) bool {
		end := e.off + int(e.RecordLength)
		region := blk[:end]
		for rel := e.MinSize(); e.off+rel+disklayout.DirentHeaderSize <= end; {
			h, valid := disklayout.PeekDirent(region, e.off+rel)
			if !valid || len(h.Name) == 0 {
				break
			}
			if h.InodeNumber != 0 && h.Name == name && h.FileTypeRaw != disklayout.FileTypeDirectory {
				found, ok = hiddenEntry{Dirent: h, host: e, rel: rel}, true
				return true
			}
			rel += h.MinSize()
		}
		return false
	})
	if err != nil {
		return hiddenEntry{}, err
	}
	if !ok {
		return hiddenEntry{}, fmt.Errorf("no deleted entry %q: %w", name, linuxerr.ENOENT)
	}
	return found, nil
}

// unhide makes h reachable again. The host record keeps the bytes up to h
// and h receives the rest of the host's record.
func (fs *Filesystem) unhide(h hiddenEntry) error {
	blk, err := fs.Block(h.host.block)
	if err != nil {
		return err
	}
	disklayout.SetRecordLength(blk, h.host.off+h.rel, h.host.RecordLength-uint16(h.rel))
	disklayout.SetRecordLength(blk, h.host.off, uint16(h.rel))
	return nil
}
