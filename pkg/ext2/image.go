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

// Package ext2 implements in-place manipulation of single block group ext2
// images.
//
// An image is opened with Open, which maps the whole file shared and
// read-write. Every structure is accessed through views of that mapping, so
// all mutations are written through to the file as they happen. The
// *Filesystem returned by Open carries all state for one invocation; there is
// no package-level state.
package ext2

import (
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
	"gvisor.dev/ext2tools/pkg/bitmap"
	"gvisor.dev/ext2tools/pkg/errors/linuxerr"
	"gvisor.dev/ext2tools/pkg/ext2/disklayout"
	"gvisor.dev/ext2tools/pkg/log"
)

// Options configures Open.
type Options struct {
	// ReadOnly maps the image read-only and takes a shared lock. Mutating
	// operations fail with EROFS.
	ReadOnly bool

	// NoLock skips the advisory lock on the image file.
	NoLock bool

	// LockWait is how long Open keeps retrying while another process
	// holds the lock. Zero fails at once.
	LockWait time.Duration
}

// Filesystem is an open ext2 image.
//
// Filesystem is not safe for concurrent use.
type Filesystem struct {
	path string
	file *os.File
	lock *flock.Flock

	// data is the whole image, mapped shared.
	data []byte

	sb          disklayout.SuperBlock
	bg          disklayout.GroupDesc
	inodeBitmap bitmap.Bitmap
	blockBitmap bitmap.Bitmap

	inodeTable uint32
	inodeSize  int
	readOnly   bool

	// now returns the current time. It is replaced in tests.
	now func() time.Time
}

// acquireLock takes the advisory lock on the image file: shared for
// read-only images, exclusive otherwise. It fails with EBUSY if the lock is
// still held by another process after opts.LockWait.
func (fs *Filesystem) acquireLock(opts Options) error {
	lock := flock.New(fs.path)
	tryLock := lock.TryLock
	if opts.ReadOnly {
		tryLock = lock.TryRLock
	}
	var b backoff.BackOff = &backoff.StopBackOff{}
	if opts.LockWait > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 10 * time.Millisecond
		eb.MaxInterval = time.Second
		eb.MaxElapsedTime = opts.LockWait
		b = eb
	}
	op := func() error {
		locked, err := tryLock()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("locking image: %w", err))
		}
		if !locked {
			return fmt.Errorf("image %q is in use by another process: %w", fs.path, linuxerr.EBUSY)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		log.Debugf("%v, retrying in %v", err, next)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return err
	}
	fs.lock = lock
	return nil
}

// Open opens and maps the image at path. Errors returned by Open mean the
// image is unusable.
func Open(path string, opts Options) (*Filesystem, error) {
	flags := os.O_RDWR
	if opts.ReadOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	fs := &Filesystem{
		path:     path,
		file:     f,
		readOnly: opts.ReadOnly,
		now:      time.Now,
	}
	if err := fs.init(opts); err != nil {
		fs.release()
		return nil, err
	}
	log.Debugf("Opened image %q: %d blocks, %d inodes, %d free blocks, %d free inodes",
		path, fs.sb.BlocksCount(), fs.sb.InodesCount(), fs.sb.FreeBlocksCount(), fs.sb.FreeInodesCount())
	return fs, nil
}

func (fs *Filesystem) init(opts Options) error {
	if !opts.NoLock {
		if err := fs.acquireLock(opts); err != nil {
			return err
		}
	}

	st, err := fs.file.Stat()
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	size := st.Size()
	if size < disklayout.BlockSize*(disklayout.GroupDescBlock+1) {
		return fmt.Errorf("image is %d bytes, too small to hold a superblock and group descriptor", size)
	}
	if size != int64(int(size)) {
		return fmt.Errorf("image of %d bytes cannot be mapped", size)
	}
	prot := unix.PROT_READ | unix.PROT_WRITE
	if opts.ReadOnly {
		prot = unix.PROT_READ
	}
	fs.data, err = unix.Mmap(int(fs.file.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mapping image: %w", err)
	}

	fs.sb = disklayout.SuperBlock(fs.data[disklayout.SuperBlockOffset : disklayout.SuperBlockOffset+disklayout.SuperBlockSize])
	if m := fs.sb.Magic(); m != disklayout.Magic {
		return fmt.Errorf("bad superblock magic %#x", m)
	}
	if bs := fs.sb.BlockSize(); bs != disklayout.BlockSize {
		return fmt.Errorf("unsupported block size %d", bs)
	}
	blocks, inodes := fs.sb.BlocksCount(), fs.sb.InodesCount()
	if int64(blocks)*disklayout.BlockSize > size {
		return fmt.Errorf("superblock claims %d blocks but the image holds %d", blocks, size/disklayout.BlockSize)
	}
	if blocks <= fs.sb.FirstDataBlock() || blocks-fs.sb.FirstDataBlock() > fs.sb.BlocksPerGroup() || inodes > fs.sb.InodesPerGroup() {
		return fmt.Errorf("image has more than one block group (%d blocks, %d per group)", blocks, fs.sb.BlocksPerGroup())
	}
	if inodes < disklayout.RootInode {
		return fmt.Errorf("image has only %d inodes", inodes)
	}
	if fi := fs.sb.FirstInode(); fi <= disklayout.RootInode || fi > inodes {
		return fmt.Errorf("first non-reserved inode %d outside (%d, %d]", fi, disklayout.RootInode, inodes)
	}
	fs.inodeSize = int(fs.sb.InodeSize())
	if fs.inodeSize < disklayout.OldInodeSize || fs.inodeSize > disklayout.BlockSize || fs.inodeSize&(fs.inodeSize-1) != 0 {
		return fmt.Errorf("unsupported inode size %d", fs.inodeSize)
	}

	gdOff := (fs.sb.FirstDataBlock() + 1) * disklayout.BlockSize
	fs.bg = disklayout.GroupDesc(fs.data[gdOff : gdOff+disklayout.GroupDescSize])
	for _, b := range []uint32{fs.bg.BlockBitmap(), fs.bg.InodeBitmap(), fs.bg.InodeTable()} {
		if b == 0 || b >= blocks {
			return fmt.Errorf("group descriptor points at block %d outside the image", b)
		}
	}
	fs.inodeTable = fs.bg.InodeTable()
	tableBlocks := (uint64(inodes)*uint64(fs.inodeSize) + disklayout.BlockSize - 1) / disklayout.BlockSize
	if uint64(fs.inodeTable)+tableBlocks > uint64(blocks) {
		return fmt.Errorf("inode table at block %d (%d blocks) runs past the image", fs.inodeTable, tableBlocks)
	}

	if fs.inodeBitmap, err = bitmap.New(fs.blockBytes(fs.bg.InodeBitmap()), inodes); err != nil {
		return fmt.Errorf("inode bitmap: %w", err)
	}
	if fs.blockBitmap, err = bitmap.New(fs.blockBytes(fs.bg.BlockBitmap()), blocks-fs.sb.FirstDataBlock()); err != nil {
		return fmt.Errorf("block bitmap: %w", err)
	}
	return nil
}

// Close flushes the mapping to the image file, unmaps it and releases the
// lock. The Filesystem and every view obtained from it must not be used
// afterwards.
func (fs *Filesystem) Close() error {
	var err error
	if fs.data != nil && !fs.readOnly {
		if serr := unix.Msync(fs.data, unix.MS_SYNC); serr != nil {
			err = fmt.Errorf("syncing image: %w", serr)
		}
	}
	if rerr := fs.release(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func (fs *Filesystem) release() error {
	var err error
	if fs.data != nil {
		if merr := unix.Munmap(fs.data); merr != nil {
			err = fmt.Errorf("unmapping image: %w", merr)
		}
		fs.data = nil
	}
	if fs.lock != nil {
		if uerr := fs.lock.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("unlocking image: %w", uerr)
		}
		fs.lock = nil
	}
	if cerr := fs.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// SuperBlock returns the superblock view.
func (fs *Filesystem) SuperBlock() disklayout.SuperBlock { return fs.sb }

// GroupDesc returns the view of the only group descriptor.
func (fs *Filesystem) GroupDesc() disklayout.GroupDesc { return fs.bg }

// InodeBitmap returns the inode bitmap. Bit i describes inode i+1.
func (fs *Filesystem) InodeBitmap() bitmap.Bitmap { return fs.inodeBitmap }

// BlockBitmap returns the block bitmap. Bit i describes block
// i+FirstDataBlock.
func (fs *Filesystem) BlockBitmap() bitmap.Bitmap { return fs.blockBitmap }

// blockBytes returns block n without range checks. It is only used for
// blocks validated by init.
func (fs *Filesystem) blockBytes(n uint32) []byte {
	off := int(n) * disklayout.BlockSize
	return fs.data[off : off+disklayout.BlockSize]
}

// validBlock reports whether n names a block that can hold file data.
func (fs *Filesystem) validBlock(n uint32) bool {
	return n >= fs.sb.FirstDataBlock() && n < fs.sb.BlocksCount()
}

// Block returns a view of block n.
func (fs *Filesystem) Block(n uint32) ([]byte, error) {
	if !fs.validBlock(n) {
		return nil, fmt.Errorf("%w: block %d outside [%d, %d)", linuxerr.EIO, n, fs.sb.FirstDataBlock(), fs.sb.BlocksCount())
	}
	return fs.blockBytes(n), nil
}

// validInode reports whether ino names an inode of the image.
func (fs *Filesystem) validInode(ino uint32) bool {
	return ino >= 1 && ino <= fs.sb.InodesCount()
}

// Inode returns a view of inode ino. Inodes are numbered from 1.
func (fs *Filesystem) Inode(ino uint32) (disklayout.Inode, error) {
	if !fs.validInode(ino) {
		return nil, fmt.Errorf("%w: inode %d outside [1, %d]", linuxerr.EIO, ino, fs.sb.InodesCount())
	}
	off := int(fs.inodeTable)*disklayout.BlockSize + int(ino-1)*fs.inodeSize
	return disklayout.Inode(fs.data[off : off+fs.inodeSize]), nil
}

// timestamp returns the current time in the on-disk format.
func (fs *Filesystem) timestamp() uint32 {
	return uint32(fs.now().Unix())
}
