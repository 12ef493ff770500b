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

	"github.com/google/btree"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// RepairKind identifies the kind of inconsistency a Repair fixed.
type RepairKind int

const (
	// RepairFreeInodes is a free inode counter disagreeing with the bitmap.
	RepairFreeInodes RepairKind = iota
	// RepairFreeBlocks is a free block counter disagreeing with the bitmap.
	RepairFreeBlocks
	// RepairEntryType is a directory entry type disagreeing with the inode.
	RepairEntryType
	// RepairInodeBitmap is a reachable inode not marked in use.
	RepairInodeBitmap
	// RepairDeletionTime is a reachable inode carrying a deletion time.
	RepairDeletionTime
	// RepairBlockBitmap is a referenced block not marked in use.
	RepairBlockBitmap
)

var repairKindNames = map[RepairKind]string{
	RepairFreeInodes:   "free-inodes",
	RepairFreeBlocks:   "free-blocks",
	RepairEntryType:    "entry-type",
	RepairInodeBitmap:  "inode-bitmap",
	RepairDeletionTime: "deletion-time",
	RepairBlockBitmap:  "block-bitmap",
}

// String implements fmt.Stringer.String.
func (k RepairKind) String() string {
	if s, ok := repairKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("RepairKind(%d)", int(k))
}

// Repair is one fixed inconsistency.
type Repair struct {
	Kind RepairKind

	// Inode is the inode concerned, zero for counter repairs.
	Inode uint32

	// Count is the number of inconsistencies fixed: the number of blocks
	// for RepairBlockBitmap and 1 for every other kind.
	Count int

	// Message describes the repair.
	Message string
}

// Report is the outcome of Check.
type Report struct {
	Repairs []Repair
}

// Total returns the number of inconsistencies repaired.
func (r *Report) Total() int {
	var n int
	for _, rep := range r.Repairs {
		n += rep.Count
	}
	return n
}

// Summary returns the closing line of a check.
func (r *Report) Summary() string {
	if n := r.Total(); n > 0 {
		return fmt.Sprintf("%d file system inconsistencies repaired!", n)
	}
	return "No file system inconsistencies detected!"
}

func (r *Report) add(kind RepairKind, ino uint32, count int, format string, args ...any) {
	rep := Repair{
		Kind:    kind,
		Inode:   ino,
		Count:   count,
		Message: fmt.Sprintf(format, args...),
	}
	entry := log.WithField("repair", kind.String())
	if ino != 0 {
		entry = entry.WithField("inode", ino)
	}
	entry.Info(rep.Message)
	r.Repairs = append(r.Repairs, rep)
}

// checker holds the state of one Check.
type checker struct {
	fs     *Filesystem
	report *Report

	// visited holds the directories already walked.
	visited *btree.BTreeG[uint32]
}

// Check makes one pass over the image and repairs what it finds: free
// counters are recomputed from the bitmaps, then every inode reachable from
// the root is marked in use, loses any deletion time, has its entry type set
// from its mode and has its blocks marked in use.
func (fs *Filesystem) Check() (*Report, error) {
	if err := fs.checkWritable(); err != nil {
		return nil, err
	}
	c := &checker{
		fs:      fs,
		report:  &Report{},
		visited: btree.NewG[uint32](2, func(a, b uint32) bool { return a < b }),
	}
	c.recountInodes()
	c.recountBlocks()
	c.fixFile(disklayout.RootInode, nil, nil)
	c.walk(disklayout.RootInode)
	return c.report, nil
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func (c *checker) recountInodes() {
	free := c.fs.inodeBitmap.GetNumZeros()
	if got := c.fs.sb.FreeInodesCount(); got != free {
		c.fs.sb.SetFreeInodesCount(free)
		c.report.add(RepairFreeInodes, 0, 1, "Fixed: superblock's free inodes counter was off by %d compared to the bitmap", absDiff(got, free))
	}
	if got := uint32(c.fs.bg.FreeInodesCount()); got != free {
		c.fs.bg.SetFreeInodesCount(uint16(free))
		c.report.add(RepairFreeInodes, 0, 1, "Fixed: block group's free inodes counter was off by %d compared to the bitmap", absDiff(got, free))
	}
}

func (c *checker) recountBlocks() {
	free := c.fs.blockBitmap.GetNumZeros()
	if got := c.fs.sb.FreeBlocksCount(); got != free {
		c.fs.sb.SetFreeBlocksCount(free)
		c.report.add(RepairFreeBlocks, 0, 1, "Fixed: superblock's free blocks counter was off by %d compared to the bitmap", absDiff(got, free))
	}
	if got := uint32(c.fs.bg.FreeBlocksCount()); got != free {
		c.fs.bg.SetFreeBlocksCount(uint16(free))
		c.report.add(RepairFreeBlocks, 0, 1, "Fixed: block group's free blocks counter was off by %d compared to the bitmap", absDiff(got, free))
	}
}

// fixFile repairs inode ino, reached through entry e at the given block.
// The root is checked with a nil entry.
func (c *checker) fixFile(ino uint32, e *dirent, blk []byte) {
	fs := c.fs
	in, err := fs.Inode(ino)
	if err != nil {
		log.Warningf("Skipping entry with invalid inode: %v", err)
		return
	}
	// Entries of inodes with no recognizable type are left alone.
	if e != nil {
		if want := in.FileType(); want != disklayout.FileTypeUnknown && e.FileTypeRaw != want {
			disklayout.SetFileType(blk, e.off, want)
			e.FileTypeRaw = want
			c.report.add(RepairEntryType, ino, 1, "Fixed: Entry type vs inode mismatch: inode %d", ino)
		}
	}
	if fs.markInode(ino) {
		c.report.add(RepairInodeBitmap, ino, 1, "Fixed: inode %d not marked as in-use", ino)
	}
	if in.DeletionTime() != 0 {
		in.SetDeletionTime(0)
		if in.IsDir() {
			fs.bg.SetUsedDirsCount(fs.bg.UsedDirsCount() + 1)
		}
		c.report.add(RepairDeletionTime, ino, 1, "Fixed: valid inode marked for deletion: %d", ino)
	}
	blocks, err := fs.inodeBlocks(in)
	if err != nil {
		log.WithField("inode", ino).Warnf("Listing blocks: %v", err)
	}
	var marked int
	for _, b := range blocks {
		if !fs.validBlock(b) {
			log.WithField("inode", ino).Warnf("Block %d is outside the image", b)
			continue
		}
		if fs.markBlock(b) {
			marked++
		}
	}
	if marked > 0 {
		c.report.add(RepairBlockBitmap, ino, marked, "Fixed: %d in-use data blocks not marked in data bitmap for inode: %d", marked, ino)
	}
}

// walk checks every entry of directory ino and descends into each
// subdirectory as it is found. Each directory is walked once.
func (c *checker) walk(ino uint32) {
	if _, found := c.visited.ReplaceOrInsert(ino); found {
		return
	}
	err := c.fs.forEachDirent(ino, func(blk []byte, e dirent) bool {
		c.fixFile(e.InodeNumber, &e, blk)
		if e.Name != "." && e.Name != ".." && e.FileTypeRaw == disklayout.FileTypeDirectory {
			c.walk(e.InodeNumber)
		}
		return false
	})
	if err != nil {
		// A corrupt directory block ends the walk of that directory only.
		log.Warningf("Directory inode %d: %v", ino, err)
	}
}
