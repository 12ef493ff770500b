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
	"encoding/binary"
	"errors"
	"testing"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
)

func TestAllocDeterminism(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	ino, err := fs.allocInode()
	if err != nil {
		t.Fatalf("allocInode failed: %v", err)
	}
	if ino != 12 {
		t.Errorf("allocInode() = %d, want 12, the lowest free inode", ino)
	}
	blk, err := fs.allocBlock()
	if err != nil {
		t.Fatalf("allocBlock failed: %v", err)
	}
	if blk != 11 {
		t.Errorf("allocBlock() = %d, want 11, the lowest free block", blk)
	}
	checkConsistent(t, fs)

	for i := 0; i < 3; i++ {
		fs.releaseInode(ino)
		fs.releaseBlock(blk)
		checkConsistent(t, fs)
		gotIno, err := fs.allocInode()
		if err != nil || gotIno != ino {
			t.Errorf("allocInode() after release = %d, %v, want %d", gotIno, err, ino)
		}
		gotBlk, err := fs.allocBlock()
		if err != nil || gotBlk != blk {
			t.Errorf("allocBlock() after release = %d, %v, want %d", gotBlk, err, blk)
		}
	}
	checkConsistent(t, fs)
}

func TestAllocResetsInode(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	in := inode(t, fs, 12)
	in.SetLinksCount(7)
	in.SetDeletionTime(1234)
	binary.LittleEndian.PutUint16(in[2:], 1000) // i_uid
	ino, err := fs.allocInode()
	if err != nil {
		t.Fatalf("allocInode failed: %v", err)
	}
	if ino != 12 {
		t.Fatalf("allocInode() = %d, want 12", ino)
	}
	if in.LinksCount() != 1 || in.DeletionTime() != 0 || in.UID() != 0 {
		t.Errorf("allocated inode has links=%d dtime=%d uid=%d, want 1, 0, 0", in.LinksCount(), in.DeletionTime(), in.UID())
	}
}

func TestAllocSkipsReservedInodes(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	// A cleared bit for a reserved inode must not be handed out.
	fs.inodeBitmap.Remove(5)
	ino, err := fs.allocInode()
	if err != nil {
		t.Fatalf("allocInode failed: %v", err)
	}
	if ino != 12 {
		t.Errorf("allocInode() = %d, want 12", ino)
	}
	if fs.inodeInUse(6) {
		t.Errorf("reserved inode 6 was allocated")
	}
}

func TestAllocExhaustion(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{Inodes: 16})
	defer tearDown()

	free := fs.FreeInodes()
	if free != 5 {
		t.Fatalf("FreeInodes() = %d, want 5", free)
	}
	for i := uint32(0); i < free; i++ {
		if _, err := fs.allocInode(); err != nil {
			t.Fatalf("allocInode %d failed: %v", i, err)
		}
	}
	if _, err := fs.allocInode(); !errors.Is(err, linuxerr.ENOSPC) {
		t.Errorf("allocInode() on a full bitmap = %v, want %v", err, linuxerr.ENOSPC)
	}
	if got := snapshot(fs); got.SuperFreeInodes != 0 || got.GroupFreeInodes != 0 {
		t.Errorf("free inode counters = %d/%d after exhaustion, want 0/0", got.SuperFreeInodes, got.GroupFreeInodes)
	}
	checkConsistent(t, fs)
}

func TestReleaseTwice(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	blk, err := fs.allocBlock()
	if err != nil {
		t.Fatalf("allocBlock failed: %v", err)
	}
	fs.releaseBlock(blk)
	fs.releaseBlock(blk)
	fs.releaseBlock(0)
	fs.releaseInode(0)
	checkConsistent(t, fs)
}
