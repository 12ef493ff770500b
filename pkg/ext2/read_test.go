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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
)

func TestStatInode(t *testing.T) {
	fs, _, tearDown := setUp(t, FormatOptions{})
	defer tearDown()

	f := mustCopy(t, fs, "/f", 1500)
	got, err := fs.StatInode(f)
	if err != nil {
		t.Fatalf("StatInode(%d) failed: %v", f, err)
	}
	want := InodeInfo{
		Inode:            f,
		Mode:             disklayout.ModeRegular | 0644,
		Links:            1,
		Size:             1500,
		Sectors:          2 * disklayout.SectorsPerBlock,
		AccessTime:       testTime,
		ChangeTime:       testTime,
		ModificationTime: testTime,
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("StatInode mismatch (-want +got):\n%s", diff)
	}

	if err := fs.Remove("/f"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got, err = fs.StatInode(f)
	if err != nil {
		t.Fatalf("StatInode(%d) failed: %v", f, err)
	}
	if got.Links != 0 || !got.DeletionTime.Equal(testTime) {
		t.Errorf("removed inode has links %d, deletion time %v, want 0, %v", got.Links, got.DeletionTime, testTime)
	}

	if _, err := fs.StatInode(0); !errors.Is(err, linuxerr.EIO) {
		t.Errorf("StatInode(0) = %v, want %v", err, linuxerr.EIO)
	}
}
