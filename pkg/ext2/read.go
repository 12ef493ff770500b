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
	"time"

	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
)

// DirEntry describes one directory entry as returned by ReadDir.
type DirEntry struct {
	Name  string
	Inode uint32
	Type  disklayout.FileType

	// Deleted is set for entries found in the slack of a live record.
	Deleted bool
}

// ReadDir lists the directory at path in on-disk order. With deleted set,
// entries hidden in record slack are listed after the record hosting them.
func (fs *Filesystem) ReadDir(path string, deleted bool) ([]DirEntry, error) {
	ino, err := fs.resolve(path, dirOnly)
	if err != nil {
		return nil, err
	}
	var ents []DirEntry
	err = fs.forEachRecord(ino, func(blk []byte, e dirent) bool {
		if e.InodeNumber != 0 {
			ents = append(ents, DirEntry{Name: e.Name, Inode: e.InodeNumber, Type: e.FileTypeRaw})
		}
		if !deleted {
			return false
		}
		end := e.off + int(e.RecordLength)
		for rel := e.MinSize(); e.off+rel+disklayout.DirentHeaderSize <= end; {
			h, ok := disklayout.PeekDirent(blk[:end], e.off+rel)
			if !ok || len(h.Name) == 0 {
				break
			}
			if h.InodeNumber != 0 {
				ents = append(ents, DirEntry{Name: h.Name, Inode: h.InodeNumber, Type: h.FileTypeRaw, Deleted: true})
			}
			rel += h.MinSize()
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return ents, nil
}

// ReadFile returns the contents of the non-directory at path. For a
// symlink this is its target.
func (fs *Filesystem) ReadFile(path string) ([]byte, error) {
	ino, err := fs.resolve(path, anyType)
	if err != nil {
		return nil, err
	}
	return fs.ReadInode(ino)
}

// ReadInode returns the contents of inode ino.
func (fs *Filesystem) ReadInode(ino uint32) ([]byte, error) {
	in, err := fs.Inode(ino)
	if err != nil {
		return nil, err
	}
	if in.IsDir() {
		return nil, fmt.Errorf("inode %d: %w", ino, linuxerr.EISDIR)
	}
	return fs.readData(in)
}

// Lookup returns the inode path names.
func (fs *Filesystem) Lookup(path string) (uint32, error) {
	return fs.resolve(path, anyType)
}

// InodeInfo describes an inode as returned by StatInode.
type InodeInfo struct {
	Inode uint32
	Mode  uint16
	Links uint16
	UID   uint16
	GID   uint16
	Size  uint32

	// Sectors is the number of 512-byte sectors charged to the inode.
	Sectors uint32

	AccessTime       time.Time
	ChangeTime       time.Time
	ModificationTime time.Time

	// DeletionTime is the zero time for live inodes.
	DeletionTime time.Time
}

func unixTime(t uint32) time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.Unix(int64(t), 0)
}

// StatInode returns the attributes of inode ino.
func (fs *Filesystem) StatInode(ino uint32) (InodeInfo, error) {
	in, err := fs.Inode(ino)
	if err != nil {
		return InodeInfo{}, err
	}
	return InodeInfo{
		Inode:            ino,
		Mode:             in.Mode(),
		Links:            in.LinksCount(),
		UID:              in.UID(),
		GID:              in.GID(),
		Size:             in.Size(),
		Sectors:          in.Sectors(),
		AccessTime:       unixTime(in.AccessTime()),
		ChangeTime:       unixTime(in.ChangeTime()),
		ModificationTime: unixTime(in.ModificationTime()),
		DeletionTime:     unixTime(in.DeletionTime()),
	}, nil
}

// Stats summarizes an image.
type Stats struct {
	VolumeName      string
	BlockSize       uint64
	BlocksCount     uint32
	InodesCount     uint32
	FreeBlocks      uint32
	FreeInodes      uint32
	SuperFreeBlocks uint32
	SuperFreeInodes uint32
	GroupFreeBlocks uint16
	GroupFreeInodes uint16
	UsedDirs        uint16
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
}

// Stats returns the image summary. Free counts are computed from the
// bitmaps; the stored counters are reported separately.
func (fs *Filesystem) Stats() Stats {
	return Stats{
		VolumeName:      fs.sb.VolumeName(),
		BlockSize:       fs.sb.BlockSize(),
		BlocksCount:     fs.sb.BlocksCount(),
		InodesCount:     fs.sb.InodesCount(),
		FreeBlocks:      fs.FreeBlocks(),
		FreeInodes:      fs.FreeInodes(),
		SuperFreeBlocks: fs.sb.FreeBlocksCount(),
		SuperFreeInodes: fs.sb.FreeInodesCount(),
		GroupFreeBlocks: fs.bg.FreeBlocksCount(),
		GroupFreeInodes: fs.bg.FreeInodesCount(),
		UsedDirs:        fs.bg.UsedDirsCount(),
		BlockBitmap:     fs.bg.BlockBitmap(),
		InodeBitmap:     fs.bg.InodeBitmap(),
		InodeTable:      fs.bg.InodeTable(),
	}
}
