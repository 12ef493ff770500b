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

package disklayout

import (
	"fmt"
)

// FileType is the file type tag stored in a directory entry.
type FileType uint8

// Directory entry file types, see EXT2_FT_* in fs/ext2/ext2.h.
const (
	FileTypeUnknown FileType = iota
	FileTypeRegular
	FileTypeDirectory
	FileTypeCharDev
	FileTypeBlockDev
	FileTypeFIFO
	FileTypeSocket
	FileTypeSymlink
)

var fileTypeByMode = map[uint16]FileType{
	ModeRegular:   FileTypeRegular,
	ModeDirectory: FileTypeDirectory,
	ModeCharDev:   FileTypeCharDev,
	ModeBlockDev:  FileTypeBlockDev,
	ModeFIFO:      FileTypeFIFO,
	ModeSocket:    FileTypeSocket,
	ModeSymlink:   FileTypeSymlink,
}

// FileTypeFromMode returns the entry type matching an inode mode.
func FileTypeFromMode(mode uint16) FileType {
	return fileTypeByMode[mode&ModeTypeMask]
}

// String implements fmt.Stringer.String.
func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeCharDev:
		return "chardev"
	case FileTypeBlockDev:
		return "blockdev"
	case FileTypeFIFO:
		return "fifo"
	case FileTypeSocket:
		return "socket"
	case FileTypeSymlink:
		return "symlink"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// DirentHeaderSize is the size of the fixed part of a directory entry.
const DirentHeaderSize = 8

// Dirent represents the ext2 directory entry struct, struct
// ext2_dir_entry_2 in fs/ext2/ext2.h. On disk it is followed by NameLength
// bytes of name and padding up to RecordLength.
type Dirent struct {
	InodeNumber  uint32
	RecordLength uint16
	FileTypeRaw  FileType
	Name         string
}

// DirentSize returns the minimum record length of an entry with a name of
// nameLen bytes: the header plus the name, rounded up to 4 bytes.
func DirentSize(nameLen int) int {
	return (DirentHeaderSize + nameLen + 3) &^ 3
}

// MinSize returns the minimum record length of d.
func (d *Dirent) MinSize() int { return DirentSize(len(d.Name)) }

// Slack returns the number of bytes past d's minimum size that its record
// covers. Deleted entries may be hidden there.
func (d *Dirent) Slack() int { return int(d.RecordLength) - d.MinSize() }

// DecodeDirent decodes the entry at off in blk. It fails if the header or
// the name would run past the end of blk, if the record length is not a
// multiple of 4 or is smaller than the entry, or if it runs past the end of
// blk.
func DecodeDirent(blk []byte, off int) (Dirent, error) {
	if off < 0 || off+DirentHeaderSize > len(blk) {
		return Dirent{}, fmt.Errorf("dirent header at %d runs past block end %d", off, len(blk))
	}
	recLen := le.Uint16(blk[off+4:])
	nameLen := int(blk[off+6])
	if off+DirentHeaderSize+nameLen > len(blk) {
		return Dirent{}, fmt.Errorf("dirent name at %d (len %d) runs past block end %d", off, nameLen, len(blk))
	}
	d := Dirent{
		InodeNumber:  le.Uint32(blk[off:]),
		RecordLength: recLen,
		FileTypeRaw:  FileType(blk[off+7]),
		Name:         string(blk[off+DirentHeaderSize : off+DirentHeaderSize+nameLen]),
	}
	switch {
	case recLen%4 != 0:
		return d, fmt.Errorf("dirent at %d has unaligned record length %d", off, recLen)
	case int(recLen) < d.MinSize():
		return d, fmt.Errorf("dirent at %d has record length %d smaller than its size %d", off, recLen, d.MinSize())
	case off+int(recLen) > len(blk):
		return d, fmt.Errorf("dirent at %d with record length %d runs past block end %d", off, recLen, len(blk))
	}
	return d, nil
}

// PeekDirent decodes the entry at off in blk without validating its record
// length. It is used on the stale bytes of deleted entries, whose record
// length may no longer describe anything. It fails only if the header or
// name would run past the end of blk.
func PeekDirent(blk []byte, off int) (Dirent, bool) {
	if off < 0 || off+DirentHeaderSize > len(blk) {
		return Dirent{}, false
	}
	nameLen := int(blk[off+6])
	if off+DirentHeaderSize+nameLen > len(blk) {
		return Dirent{}, false
	}
	return Dirent{
		InodeNumber:  le.Uint32(blk[off:]),
		RecordLength: le.Uint16(blk[off+4:]),
		FileTypeRaw:  FileType(blk[off+7]),
		Name:         string(blk[off+DirentHeaderSize : off+DirentHeaderSize+nameLen]),
	}, true
}

// Encode writes d at off in blk. The caller guarantees the record fits.
func (d *Dirent) Encode(blk []byte, off int) {
	le.PutUint32(blk[off:], d.InodeNumber)
	le.PutUint16(blk[off+4:], d.RecordLength)
	blk[off+6] = uint8(len(d.Name))
	blk[off+7] = uint8(d.FileTypeRaw)
	copy(blk[off+DirentHeaderSize:], d.Name)
}

// SetRecordLength rewrites only the record length of the entry at off.
func SetRecordLength(blk []byte, off int, recLen uint16) {
	le.PutUint16(blk[off+4:], recLen)
}

// SetFileType rewrites only the file type tag of the entry at off.
func SetFileType(blk []byte, off int, t FileType) {
	blk[off+7] = uint8(t)
}

// SetInodeNumber rewrites only the inode number of the entry at off.
func SetInodeNumber(blk []byte, off int, ino uint32) {
	le.PutUint32(blk[off:], ino)
}
