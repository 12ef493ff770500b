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

// Package bitmap provides a bitmap view over on-disk bytes.
//
// Bit i of the bitmap is bit i%8 of byte i/8, the layout used by ext2 block
// and inode bitmaps. A Bitmap does not own its storage: every mutation is
// made directly to the underlying byte slice.
package bitmap

import (
	"fmt"
	"math"
	"math/bits"
)

// MaxBitEntryLimit defines the upper limit on how many bit entries are
// supported by this Bitmap implementation.
const MaxBitEntryLimit uint32 = math.MaxInt32

// Bitmap is a view of size bits stored in a byte slice.
type Bitmap struct {
	// size is the number of meaningful bits. Bits past size in the last
	// byte are never reported or modified.
	size uint32

	// bitBlock holds the bits, eight per byte.
	bitBlock []byte
}

// New returns a Bitmap of size bits backed by buf. It fails if buf is too
// short to hold size bits.
func New(buf []byte, size uint32) (Bitmap, error) {
	if size > MaxBitEntryLimit {
		return Bitmap{}, fmt.Errorf("requested bitmap size %d too large", size)
	}
	if need := (uint64(size) + 7) / 8; uint64(len(buf)) < need {
		return Bitmap{}, fmt.Errorf("bitmap of %d bits needs %d bytes, have %d", size, need, len(buf))
	}
	return Bitmap{size: size, bitBlock: buf}, nil
}

// Size returns the total number of bits in the bitmap.
func (b Bitmap) Size() uint32 {
	return b.size
}

// IsSet reports whether bit i is set. Bits outside the bitmap are reported
// as unset.
func (b Bitmap) IsSet(i uint32) bool {
	if i >= b.size {
		return false
	}
	return b.bitBlock[i/8]&(1<<(i%8)) != 0
}

// Add sets bit i. It returns false if the bit was already set.
func (b Bitmap) Add(i uint32) bool {
	if i >= b.size {
		panic(fmt.Sprintf("bit %d out of range [0, %d)", i, b.size))
	}
	mask := byte(1) << (i % 8)
	if b.bitBlock[i/8]&mask != 0 {
		return false
	}
	b.bitBlock[i/8] |= mask
	return true
}

// Remove clears bit i. It returns false if the bit was already clear.
func (b Bitmap) Remove(i uint32) bool {
	if i >= b.size {
		panic(fmt.Sprintf("bit %d out of range [0, %d)", i, b.size))
	}
	mask := byte(1) << (i % 8)
	if b.bitBlock[i/8]&mask == 0 {
		return false
	}
	b.bitBlock[i/8] &^= mask
	return true
}

// word returns byte n with the bits past size forced on, so that they are
// never returned as free.
func (b Bitmap) word(n uint32) byte {
	w := b.bitBlock[n]
	if end := (n + 1) * 8; end > b.size {
		w |= ^byte(0) << (8 - (end - b.size))
	}
	return w
}

// FirstZero returns the first unset bit from the range [start, size).
func (b Bitmap) FirstZero(start uint32) (bit uint32, err error) {
	if start >= b.size {
		return MaxBitEntryLimit, fmt.Errorf("given start of range exceeds bitmap size")
	}
	i, nbit := start/8, start%8
	n := (b.size + 7) / 8
	w := b.word(i) | ((1 << nbit) - 1)
	for {
		if w != 0xff {
			return uint32(bits.TrailingZeros8(^w)) + i*8, nil
		}
		i++
		if i == n {
			break
		}
		w = b.word(i)
	}
	return MaxBitEntryLimit, fmt.Errorf("bitmap has no unset bits")
}

// GetNumOnes returns the number of set bits.
func (b Bitmap) GetNumOnes() uint32 {
	var ones int
	full := b.size / 8
	for _, w := range b.bitBlock[:full] {
		ones += bits.OnesCount8(w)
	}
	if rem := b.size % 8; rem != 0 {
		ones += bits.OnesCount8(b.bitBlock[full] & (0xff >> (8 - rem)))
	}
	return uint32(ones)
}

// GetNumZeros returns the number of unset bits.
func (b Bitmap) GetNumZeros() uint32 {
	return b.size - b.GetNumOnes()
}
