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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
)

// testTime is the clock of every Filesystem opened by setUp.
var testTime = time.Unix(1700000000, 0)

// setUp formats a new image with opts and opens it. The returned tear down
// function closes the image and must be called after the test is run.
func setUp(t *testing.T, opts FormatOptions) (*Filesystem, string, func()) {
	t.Helper()
	imagePath := filepath.Join(t.TempDir(), "test.img")
	if err := Format(imagePath, opts); err != nil {
		t.Fatalf("Format(%+v) failed: %v", opts, err)
	}
	fs, err := Open(imagePath, Options{})
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", imagePath, err)
	}
	fs.now = func() time.Time { return testTime }
	tearDown := func() {
		if err := fs.Close(); err != nil {
			t.Fatalf("tearDown failed: %v", err)
		}
	}
	return fs, imagePath, tearDown
}

// hostFile writes data to a new file named name on the host.
func hostFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatalf("WriteFile(%q) failed: %v", p, err)
	}
	return p
}

// pattern returns n bytes that differ from block to block.
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/disklayout.BlockSize)
	}
	return b
}

// mustCopy copies n pattern bytes into the image at dest.
func mustCopy(t *testing.T, fs *Filesystem, dest string, n int) uint32 {
	t.Helper()
	src := hostFile(t, filepath.Base(dest), pattern(n))
	ino, err := fs.CopyIn(src, dest)
	if err != nil {
		t.Fatalf("CopyIn(%q) failed: %v", dest, err)
	}
	return ino
}

// state captures everything an allocation changes.
type state struct {
	InodeBitmap     []byte
	BlockBitmap     []byte
	SuperFreeInodes uint32
	SuperFreeBlocks uint32
	GroupFreeInodes uint16
	GroupFreeBlocks uint16
	UsedDirs        uint16
}

func snapshot(fs *Filesystem) state {
	return state{
		InodeBitmap:     bytes.Clone(fs.blockBytes(fs.bg.InodeBitmap())),
		BlockBitmap:     bytes.Clone(fs.blockBytes(fs.bg.BlockBitmap())),
		SuperFreeInodes: fs.sb.FreeInodesCount(),
		SuperFreeBlocks: fs.sb.FreeBlocksCount(),
		GroupFreeInodes: fs.bg.FreeInodesCount(),
		GroupFreeBlocks: fs.bg.FreeBlocksCount(),
		UsedDirs:        fs.bg.UsedDirsCount(),
	}
}

// checkConsistent verifies that the free counters match the bitmaps and
// that the records of every reachable directory block add up to exactly
// one block.
func checkConsistent(t *testing.T, fs *Filesystem) {
	t.Helper()
	inodes, blocks := fs.FreeInodes(), fs.FreeBlocks()
	if got := fs.sb.FreeInodesCount(); got != inodes {
		t.Errorf("superblock free inodes = %d, bitmap has %d", got, inodes)
	}
	if got := uint32(fs.bg.FreeInodesCount()); got != inodes {
		t.Errorf("group free inodes = %d, bitmap has %d", got, inodes)
	}
	if got := fs.sb.FreeBlocksCount(); got != blocks {
		t.Errorf("superblock free blocks = %d, bitmap has %d", got, blocks)
	}
	if got := uint32(fs.bg.FreeBlocksCount()); got != blocks {
		t.Errorf("group free blocks = %d, bitmap has %d", got, blocks)
	}

	visited := map[uint32]bool{}
	var walk func(ino uint32)
	walk = func(ino uint32) {
		if visited[ino] {
			return
		}
		visited[ino] = true
		sums := map[uint32]int{}
		var subdirs []uint32
		err := fs.forEachRecord(ino, func(_ []byte, e dirent) bool {
			sums[e.block] += int(e.RecordLength)
			if e.InodeNumber != 0 && e.FileTypeRaw == disklayout.FileTypeDirectory && e.Name != "." && e.Name != ".." {
				subdirs = append(subdirs, e.InodeNumber)
			}
			return false
		})
		if err != nil {
			t.Errorf("directory %d: %v", ino, err)
			return
		}
		for b, sum := range sums {
			if sum != disklayout.BlockSize {
				t.Errorf("directory %d block %d: record lengths sum to %d", ino, b, sum)
			}
		}
		for _, sub := range subdirs {
			walk(sub)
		}
	}
	walk(disklayout.RootInode)
}

// names returns the names of live entries of the directory at path.
func names(t *testing.T, fs *Filesystem, path string) []string {
	t.Helper()
	ents, err := fs.ReadDir(path, false)
	if err != nil {
		t.Fatalf("ReadDir(%q) failed: %v", path, err)
	}
	var ns []string
	for _, e := range ents {
		ns = append(ns, e.Name)
	}
	return ns
}

func inode(t *testing.T, fs *Filesystem, ino uint32) disklayout.Inode {
	t.Helper()
	in, err := fs.Inode(ino)
	if err != nil {
		t.Fatalf("Inode(%d) failed: %v", ino, err)
	}
	return in
}

func TestFormat(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{VolumeName: "tiny"})
	defer tearDown()

	want := Stats{
		VolumeName:      "tiny",
		BlockSize:       1024,
		BlocksCount:     128,
		InodesCount:     32,
		FreeBlocks:      117,
		FreeInodes:      21,
		SuperFreeBlocks: 117,
		SuperFreeInodes: 21,
		GroupFreeBlocks: 117,
		GroupFreeInodes: 21,
		UsedDirs:        2,
		BlockBitmap:     3,
		InodeBitmap:     4,
		InodeTable:      5,
	}
	if diff := cmp.Diff(want, fs.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
	wantRoot := []DirEntry{
		{Name: ".", Inode: 2, Type: disklayout.FileTypeDirectory},
		{Name: "..", Inode: 2, Type: disklayout.FileTypeDirectory},
		{Name: "lost+found", Inode: LostAndFoundInode, Type: disklayout.FileTypeDirectory},
	}
	got, err := fs.ReadDir("/", false)
	if err != nil {
		t.Fatalf("ReadDir(/) failed: %v", err)
	}
	if diff := cmp.Diff(wantRoot, got); diff != "" {
		t.Errorf("ReadDir(/) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{".", ".."}, names(t, fs, "/lost+found")); diff != "" {
		t.Errorf("ReadDir(/lost+found) mismatch (-want +got):\n%s", diff)
	}
	if got := inode(t, fs, disklayout.RootInode).LinksCount(); got != 3 {
		t.Errorf("root links = %d, want 3", got)
	}
	checkConsistent(t, fs)
}

func TestFormatErrors(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		name string
		opts FormatOptions
	}{
		{name: "too few inodes", opts: FormatOptions{Inodes: 8}},
		{name: "too many blocks", opts: FormatOptions{Blocks: 9000}},
		{name: "too few blocks", opts: FormatOptions{Blocks: 10}},
		{name: "long volume name", opts: FormatOptions{VolumeName: "a volume name that is too long"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := Format(filepath.Join(dir, tc.name), tc.opts); err == nil {
				t.Errorf("Format(%+v) succeeded, want error", tc.opts)
			}
		})
	}

	existing := hostFile(t, "existing.img", []byte("data"))
	if err := Format(existing, FormatOptions{}); err == nil {
		t.Errorf("Format over an existing file succeeded without Overwrite")
	}
	if err := Format(existing, FormatOptions{Overwrite: true}); err != nil {
		t.Errorf("Format with Overwrite failed: %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{name: "too small", data: make([]byte, 1024)},
		{name: "bad magic", data: make([]byte, 128*1024)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := filepath.Join(dir, tc.name)
			if err := os.WriteFile(p, tc.data, 0644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			if fs, err := Open(p, Options{}); err == nil {
				fs.Close()
				t.Errorf("Open(%q) succeeded, want error", tc.name)
			}
		})
	}
	if _, err := Open(filepath.Join(dir, "missing"), Options{}); err == nil {
		t.Errorf("Open of a missing image succeeded")
	}
	if _, err := os.Stat(filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Errorf("Open created the missing image: %v", err)
	}
}

func TestOpenTruncated(t *testing.T) {
	_, imagePath, tearDown := setUp(t, FormatOptions{})
	tearDown()
	if err := os.Truncate(imagePath, 64*1024); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if fs, err := Open(imagePath, Options{}); err == nil {
		fs.Close()
		t.Errorf("Open of a truncated image succeeded")
	}
}

func TestOpenLocked(t *testing.T) {
	_, imagePath, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	_, err := Open(imagePath, Options{})
	if !errors.Is(err, linuxerr.EBUSY) {
		t.Fatalf("second Open() = %v, want %v", err, linuxerr.EBUSY)
	}
	_, err = Open(imagePath, Options{ReadOnly: true})
	if !errors.Is(err, linuxerr.EBUSY) {
		t.Fatalf("read-only Open() while locked = %v, want %v", err, linuxerr.EBUSY)
	}
	fs, err := Open(imagePath, Options{NoLock: true})
	if err != nil {
		t.Fatalf("Open() without lock failed: %v", err)
	}
	fs.Close()
}

func TestOpenLockWait(t *testing.T) {
	_, imagePath, tearDown := setUp(t, FormatOptions{})

	start := time.Now()
	if _, err := Open(imagePath, Options{LockWait: 50 * time.Millisecond}); !errors.Is(err, linuxerr.EBUSY) {
		t.Fatalf("Open() = %v, want %v", err, linuxerr.EBUSY)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Open() gave up after %v, want at least 50ms", elapsed)
	}

	released := make(chan struct{})
	go func() {
		time.Sleep(100 * time.Millisecond)
		tearDown()
		close(released)
	}()
	fs, err := Open(imagePath, Options{LockWait: 10 * time.Second})
	if err != nil {
		t.Fatalf("Open() while waiting for the lock failed: %v", err)
	}
	<-released
	fs.Close()
}

func TestPersistence(t *testing.T) {
	fs, imagePath, tearDown := setUp(t, FormatOptions{})
	data := pattern(3000)
	ino, err := fs.CopyIn(hostFile(t, "f", data), "/f")
	if err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	tearDown()

	fs, err = Open(imagePath, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer fs.Close()
	got, err := fs.ReadFile("/f")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("ReadFile after reopen returned %d bytes differing from the %d written", len(got), len(data))
	}
	if gotIno, err := fs.Lookup("/f"); err != nil || gotIno != ino {
		t.Errorf("Lookup(/f) = %d, %v, want %d", gotIno, err, ino)
	}
	if _, err := fs.Mkdir("/d"); !errors.Is(err, linuxerr.EROFS) {
		t.Errorf("Mkdir on a read-only image = %v, want %v", err, linuxerr.EROFS)
	}
}
