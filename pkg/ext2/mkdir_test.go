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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
)

func TestMkdir(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	freeBlocks, freeInodes := fs.FreeBlocks(), fs.FreeInodes()
	d, err := fs.Mkdir("/d")
	if err != nil {
		t.Fatalf("Mkdir(/d) failed: %v", err)
	}
	if d != 12 {
		t.Errorf("Mkdir(/d) = %d, want 12", d)
	}
	in := inode(t, fs, d)
	if !in.IsDir() || in.LinksCount() != 2 || in.Size() != disklayout.BlockSize || in.Sectors() != 2 {
		t.Errorf("inode mode = %#o, links = %d, size = %d, sectors = %d", in.Mode(), in.LinksCount(), in.Size(), in.Sectors())
	}
	if got := in.Block(0); got != 11 {
		t.Errorf("directory block = %d, want 11", got)
	}
	var recs []uint16
	if err := fs.forEachRecord(d, func(_ []byte, e dirent) bool {
		recs = append(recs, e.RecordLength)
		return false
	}); err != nil {
		t.Fatalf("forEachRecord failed: %v", err)
	}
	if diff := cmp.Diff([]uint16{12, 1012}, recs); diff != "" {
		t.Errorf("record lengths mismatch (-want +got):\n%s", diff)
	}
	want := []DirEntry{
		{Name: ".", Inode: d, Type: disklayout.FileTypeDirectory},
		{Name: "..", Inode: disklayout.RootInode, Type: disklayout.FileTypeDirectory},
	}
	got, err := fs.ReadDir("/d", false)
	if err != nil {
		t.Fatalf("ReadDir(/d) failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadDir(/d) mismatch (-want +got):\n%s", diff)
	}
	if got := inode(t, fs, disklayout.RootInode).LinksCount(); got != 4 {
		t.Errorf("root links = %d, want 4", got)
	}
	if got := fs.bg.UsedDirsCount(); got != 3 {
		t.Errorf("used dirs = %d, want 3", got)
	}
	if fs.FreeBlocks() != freeBlocks-1 || fs.FreeInodes() != freeInodes-1 {
		t.Errorf("free blocks, inodes = %d, %d, want %d, %d", fs.FreeBlocks(), fs.FreeInodes(), freeBlocks-1, freeInodes-1)
	}

	e, err := fs.Mkdir("/d/e")
	if err != nil {
		t.Fatalf("Mkdir(/d/e) failed: %v", err)
	}
	if got := inode(t, fs, d).LinksCount(); got != 3 {
		t.Errorf("/d links = %d, want 3", got)
	}
	if got, err := fs.Lookup("/d/e/.."); err != nil || got != d {
		t.Errorf("Lookup(/d/e/..) = %d, %v, want %d", got, err, d)
	}
	if got, err := fs.Lookup("/d/e/."); err != nil || got != e {
		t.Errorf("Lookup(/d/e/.) = %d, %v, want %d", got, err, e)
	}
	mustCopy(t, fs, "/d/e/f", 100)
	checkConsistent(t, fs)
}

func TestMkdirErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts FormatOptions
		path string
		prep func(t *testing.T, fs *Filesystem)
		want error
	}{
		{name: "root", path: "/", want: linuxerr.EEXIST},
		{name: "existing directory", path: "/lost+found", want: linuxerr.EEXIST},
		{
			name: "existing file",
			path: "/f",
			prep: func(t *testing.T, fs *Filesystem) { mustCopy(t, fs, "/f", 10) },
			want: linuxerr.EEXIST,
		},
		{name: "missing parent", path: "/missing/d", want: linuxerr.ENOENT},
		{
			name: "parent is a file",
			path: "/f/d",
			prep: func(t *testing.T, fs *Filesystem) { mustCopy(t, fs, "/f", 10) },
			want: linuxerr.ENOENT,
		},
		{name: "name too long", path: "/" + strings.Repeat("d", 256), want: linuxerr.ENAMETOOLONG},
		{
			name: "no inodes",
			opts: FormatOptions{Inodes: 16},
			path: "/d",
			prep: func(t *testing.T, fs *Filesystem) {
				for fs.FreeInodes() > 0 {
					if _, err := fs.allocInode(); err != nil {
						t.Fatalf("allocInode failed: %v", err)
					}
				}
			},
			want: linuxerr.ENOSPC,
		},
		{
			name: "no blocks",
			opts: FormatOptions{Blocks: 20},
			path: "/d",
			prep: func(t *testing.T, fs *Filesystem) {
				mustCopy(t, fs, "/f", int(fs.FreeBlocks())*disklayout.BlockSize)
			},
			want: linuxerr.ENOSPC,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fs, _, tearDown := setUp(t, tc.opts)
			defer tearDown()

			if tc.prep != nil {
				tc.prep(t, fs)
			}
			before := snapshot(fs)
			rootLinks := inode(t, fs, disklayout.RootInode).LinksCount()
			if _, err := fs.Mkdir(tc.path); !errors.Is(err, tc.want) {
				t.Fatalf("Mkdir(%q) = %v, want %v", tc.path, err, tc.want)
			}
			if diff := cmp.Diff(before, snapshot(fs)); diff != "" {
				t.Errorf("failed Mkdir changed the image (-want +got):\n%s", diff)
			}
			if got := inode(t, fs, disklayout.RootInode).LinksCount(); got != rootLinks {
				t.Errorf("root links = %d, want %d", got, rootLinks)
			}
		})
	}
}
