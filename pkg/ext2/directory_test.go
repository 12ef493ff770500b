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
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
)

func TestAppendEntry(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	root := inode(t, fs, disklayout.RootInode)
	// lost+found leaves 980 bytes of slack in the root block, enough for
	// 81 entries of 12 bytes.
	for i := 0; i < 81; i++ {
		name := fmt.Sprintf("e%03d", i)
		grow, err := fs.needsBlock(disklayout.RootInode, name)
		if err != nil || grow {
			t.Fatalf("needsBlock(%q) = %t, %v, want false", name, grow, err)
		}
		if err := fs.appendEntry(disklayout.RootInode, LostAndFoundInode, name, disklayout.FileTypeRegular); err != nil {
			t.Fatalf("appendEntry(%q) failed: %v", name, err)
		}
	}
	if got := root.Block(1); got != 0 {
		t.Fatalf("root grew to block %d before its first block was full", got)
	}
	freeBefore := fs.FreeBlocks()

	grow, err := fs.needsBlock(disklayout.RootInode, "e081")
	if err != nil || !grow {
		t.Fatalf("needsBlock(e081) = %t, %v, want true", grow, err)
	}
	if err := fs.appendEntry(disklayout.RootInode, LostAndFoundInode, "e081", disklayout.FileTypeRegular); err != nil {
		t.Fatalf("appendEntry(e081) failed: %v", err)
	}
	if got, want := root.Block(1), uint32(11); got != want {
		t.Errorf("root block 1 = %d, want %d", got, want)
	}
	if root.Size() != 2*disklayout.BlockSize || root.Sectors() != 2*disklayout.SectorsPerBlock {
		t.Errorf("root size = %d, sectors = %d after growing", root.Size(), root.Sectors())
	}
	if got := fs.FreeBlocks(); got != freeBefore-1 {
		t.Errorf("FreeBlocks() = %d, want %d", got, freeBefore-1)
	}
	e, err := fs.lookup(disklayout.RootInode, "e081", anyType)
	if err != nil {
		t.Fatalf("lookup(e081) failed: %v", err)
	}
	if e.block != 11 || e.off != 0 || e.prev != -1 || e.RecordLength != disklayout.BlockSize {
		t.Errorf("e081 at block %d offset %d prev %d reclen %d, want block 11 offset 0 prev -1 reclen 1024", e.block, e.off, e.prev, e.RecordLength)
	}
	checkConsistent(t, fs)
}

func TestAppendEntrySplicesSlack(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	if err := fs.appendEntry(LostAndFoundInode, 20, "new-entry", disklayout.FileTypeSymlink); err != nil {
		t.Fatalf("appendEntry failed: %v", err)
	}
	var got []disklayout.Dirent
	if err := fs.forEachRecord(LostAndFoundInode, func(_ []byte, e dirent) bool {
		got = append(got, e.Dirent)
		return false
	}); err != nil {
		t.Fatalf("forEachRecord failed: %v", err)
	}
	want := []disklayout.Dirent{
		{InodeNumber: LostAndFoundInode, RecordLength: 12, FileTypeRaw: disklayout.FileTypeDirectory, Name: "."},
		{InodeNumber: disklayout.RootInode, RecordLength: 12, FileTypeRaw: disklayout.FileTypeDirectory, Name: ".."},
		{InodeNumber: 20, RecordLength: 1000, FileTypeRaw: disklayout.FileTypeSymlink, Name: "new-entry"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendEntryFullDirectory(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		name := fmt.Sprintf("%03d%s", i, strings.Repeat("x", 197))
		err = fs.appendEntry(LostAndFoundInode, LostAndFoundInode, name, disklayout.FileTypeRegular)
	}
	if !errors.Is(err, linuxerr.ENOSPC) {
		t.Fatalf("filling a directory ended with %v, want %v", err, linuxerr.ENOSPC)
	}
	if got := len(dirBlocks(inode(t, fs, LostAndFoundInode))); got != disklayout.NumDirectBlocks {
		t.Errorf("full directory has %d blocks, want %d", got, disklayout.NumDirectBlocks)
	}
	if _, err := fs.needsBlock(LostAndFoundInode, strings.Repeat("y", 200)); !errors.Is(err, linuxerr.ENOSPC) {
		t.Errorf("needsBlock on a full directory = %v, want %v", err, linuxerr.ENOSPC)
	}
	checkConsistent(t, fs)
}

func TestAppendEntryBadName(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	before := snapshot(fs)
	for _, tc := range []struct {
		name string
		want error
	}{
		{name: strings.Repeat("n", disklayout.MaxFileName+1), want: linuxerr.ENAMETOOLONG},
		{name: "", want: linuxerr.EINVAL},
		{name: "..", want: linuxerr.EINVAL},
		{name: "/", want: linuxerr.EINVAL},
		{name: "a/b", want: linuxerr.EINVAL},
	} {
		if err := fs.appendEntry(disklayout.RootInode, 12, tc.name, disklayout.FileTypeRegular); !errors.Is(err, tc.want) {
			t.Errorf("appendEntry(%.10q) = %v, want %v", tc.name, err, tc.want)
		}
	}
	if diff := cmp.Diff(before, snapshot(fs)); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}
	if err := fs.appendEntry(disklayout.RootInode, 12, strings.Repeat("n", disklayout.MaxFileName), disklayout.FileTypeRegular); err != nil {
		t.Errorf("appendEntry with a %d byte name failed: %v", disklayout.MaxFileName, err)
	}
	checkConsistent(t, fs)
}

func TestLookupFilters(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	if _, err := fs.lookup(disklayout.RootInode, "lost+found", notDir); !errors.Is(err, linuxerr.ENOENT) {
		t.Errorf("lookup(lost+found, notDir) = %v, want %v", err, linuxerr.ENOENT)
	}
	if e, err := fs.lookup(disklayout.RootInode, "lost+found", dirOnly); err != nil || e.InodeNumber != LostAndFoundInode {
		t.Errorf("lookup(lost+found, dirOnly) = %d, %v", e.InodeNumber, err)
	}
	// Names match exactly, not by prefix.
	if _, err := fs.lookup(disklayout.RootInode, "lost", anyType); !errors.Is(err, linuxerr.ENOENT) {
		t.Errorf("lookup(lost) = %v, want %v", err, linuxerr.ENOENT)
	}
	if _, err := fs.lookup(12, "x", anyType); !errors.Is(err, linuxerr.ENOTDIR) {
		t.Errorf("lookup in a non-directory = %v, want %v", err, linuxerr.ENOTDIR)
	}
}

func TestSpliceOutFirstInBlock(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	// Fill the root with long names until an entry starts a new block.
	var last string
	for i := 0; ; i++ {
		last = fmt.Sprintf("%03d%s", i, strings.Repeat("z", 240))
		if err := fs.appendEntry(disklayout.RootInode, LostAndFoundInode, last, disklayout.FileTypeRegular); err != nil {
			t.Fatalf("appendEntry failed: %v", err)
		}
		if inode(t, fs, disklayout.RootInode).Block(1) != 0 {
			break
		}
	}
	e, err := fs.lookup(disklayout.RootInode, last, anyType)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if e.prev != -1 {
		t.Fatalf("entry %d bytes into block %d, want it to start the block", e.off, e.block)
	}
	if err := fs.spliceOut(disklayout.RootInode, e); err != nil {
		t.Fatalf("spliceOut failed: %v", err)
	}
	if _, err := fs.lookup(disklayout.RootInode, last, anyType); !errors.Is(err, linuxerr.ENOENT) {
		t.Errorf("lookup after spliceOut = %v, want %v", err, linuxerr.ENOENT)
	}
	checkConsistent(t, fs)
}

func TestCorruptDirectory(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	blk, err := fs.Block(inode(t, fs, disklayout.RootInode).Block(0))
	if err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	// lost+found is the third record.
	disklayout.SetRecordLength(blk, 24, 0)
	if _, err := fs.lookup(disklayout.RootInode, "missing", anyType); !errors.Is(err, linuxerr.EIO) {
		t.Errorf("lookup in a corrupt directory = %v, want %v", err, linuxerr.EIO)
	}
	// Entries before the corruption are still found.
	if e, err := fs.lookup(disklayout.RootInode, "..", anyType); err != nil || e.InodeNumber != disklayout.RootInode {
		t.Errorf("lookup(..) = %d, %v", e.InodeNumber, err)
	}
}
