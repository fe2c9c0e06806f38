//
// Copyright (c) SAS Institute Inc.
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
//

// Package apksig locates the APK Signing Block of an Android package,
// classifies the signature schemes it carries and extracts the signing
// certificate. Signatures are not cryptographically verified.
package apksig

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Linmuge/apkextractor-sub000/lib/zipslicer"
)

// https://source.android.com/security/apksigning/v2#apk-signing-block-format

const (
	sigMagic = "APK Sig Block 42"
	// size field + magic at the tail of the block
	blockFooterLen = 8 + len(sigMagic)
	// smallest central directory offset that leaves room for a footer
	minCDOffset = 32
	// pair length + id
	pairHeaderLen = 12
)

var ErrNoEndRecord = zipslicer.ErrNoEndRecord

// SigningBlock is the location of an APK Signing Block. The block spans
// [Offset, Offset+Size+8) and ends where the central directory begins.
type SigningBlock struct {
	Offset   int64
	Size     uint64
	CDOffset int64
}

// End returns the offset just past the block, which is the central directory
func (b *SigningBlock) End() int64 {
	return b.Offset + int64(b.Size) + 8
}

// LocateSigningBlock finds the APK Signing Block immediately preceding the
// central directory. It returns nil and no error when the archive has no
// block, and ErrNoEndRecord when r is not a ZIP archive at all.
func LocateSigningBlock(r io.ReaderAt, size int64) (*SigningBlock, error) {
	rec, err := zipslicer.FindEndRecord(r, size)
	if err != nil {
		return nil, err
	}
	cdOffset := rec.CDOffset
	if cdOffset < minCDOffset || cdOffset > size {
		return nil, nil
	}
	var footer [blockFooterLen]byte
	if _, err := r.ReadAt(footer[:], cdOffset-int64(blockFooterLen)); err != nil {
		return nil, fmt.Errorf("reading signing block footer: %w", err)
	}
	blockSize := binary.LittleEndian.Uint64(footer[:8])
	if blockSize == 0 || blockSize > uint64(cdOffset-8) {
		return nil, nil
	}
	if string(footer[8:]) != sigMagic {
		return nil, nil
	}
	return &SigningBlock{
		Offset:   cdOffset - int64(blockSize) - 8,
		Size:     blockSize,
		CDOffset: cdOffset,
	}, nil
}

// Pair is one ID-value entry of the signing block
type Pair struct {
	ID     uint32
	Length uint64
	// ValueOffset is the file offset of the Length-4 value bytes
	ValueOffset int64
}

// ValueLength is the size of the value, excluding the ID
func (p Pair) ValueLength() int64 {
	return int64(p.Length) - 4
}

// ReadPairs walks the ID-value pairs of a located block. Walking stops
// quietly at the first pair whose length is impossible, so a damaged block
// yields the pairs that precede the damage.
func ReadPairs(r io.ReaderAt, block *SigningBlock) ([]Pair, error) {
	if block == nil {
		return nil, nil
	}
	start := block.Offset + 8
	end := block.End() - int64(blockFooterLen)
	if end <= start {
		return nil, nil
	}
	region := make([]byte, end-start)
	if _, err := r.ReadAt(region, start); err != nil {
		return nil, fmt.Errorf("reading signing block: %w", err)
	}
	var pairs []Pair
	pos := 0
	for len(region)-pos >= pairHeaderLen {
		length := binary.LittleEndian.Uint64(region[pos:])
		if length < 4 || length > uint64(len(region)-pos-8) {
			break
		}
		pairs = append(pairs, Pair{
			ID:          binary.LittleEndian.Uint32(region[pos+8:]),
			Length:      length,
			ValueOffset: start + int64(pos) + pairHeaderLen,
		})
		pos += 8 + int(length)
	}
	return pairs, nil
}

// ReadValue returns the value bytes of a pair
func ReadValue(r io.ReaderAt, p Pair) ([]byte, error) {
	if p.Length < 4 {
		return nil, nil
	}
	value := make([]byte, p.ValueLength())
	if _, err := r.ReadAt(value, p.ValueOffset); err != nil {
		return nil, fmt.Errorf("reading signing block pair 0x%08x: %w", p.ID, err)
	}
	return value, nil
}
