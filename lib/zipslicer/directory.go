/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package zipslicer locates the structural records at the tail of a ZIP
// archive without parsing the rest of it.
package zipslicer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	directoryEndSignature   = 0x06054b50
	directory64LocSignature = 0x07064b50
	directory64EndSignature = 0x06064b50

	directoryEndLen   = 22
	directory64LocLen = 20
	directory64EndLen = 56

	// end record plus the largest possible comment
	maxEndSearch = directoryEndLen + 0xFFFF

	uint16Max = 0xFFFF
	uint32Max = 0xFFFFFFFF
)

var ErrNoEndRecord = errors.New("zip end of central directory not found")

type zipEndRecord struct {
	Signature     uint32
	DiskNumber    uint16
	DiskCD        uint16
	DiskCDCount   uint16
	TotalCDCount  uint16
	CDSize        uint32
	CDOffset      uint32
	CommentLength uint16
}

type zip64Loc struct {
	Signature uint32
	Disk      uint32
	Offset    uint64
	DiskCount uint32
}

type zip64End struct {
	Signature      uint32
	RecordSize     uint64
	CreatorVersion uint16
	ReaderVersion  uint16
	Disk           uint32
	DiskCD         uint32
	DiskCDCount    uint64
	TotalCDCount   uint64
	CDSize         uint64
	CDOffset       uint64
}

// EndRecord describes where the central directory of an archive lives
type EndRecord struct {
	// Offset of the end of central directory record itself
	Offset int64
	// Offset and size of the central directory
	CDOffset int64
	CDSize   int64
	Entries  uint64
	Comment  uint16
	Zip64    bool
}

// FindEndRecord scans backward from the end of the file for the end of
// central directory record. Only the last 65557 bytes are searched, the most
// a record plus its comment can occupy. When the record's offset fields are
// saturated and a ZIP64 locator precedes it, the ZIP64 values are used.
func FindEndRecord(r io.ReaderAt, size int64) (*EndRecord, error) {
	if size < directoryEndLen {
		return nil, ErrNoEndRecord
	}
	n := size
	if n > maxEndSearch {
		n = maxEndSearch
	}
	tailStart := size - n
	tail := make([]byte, n)
	if _, err := r.ReadAt(tail, tailStart); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading zip tail: %w", err)
	}
	pos := -1
	for i := len(tail) - directoryEndLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(tail[i:]) == directoryEndSignature {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, ErrNoEndRecord
	}
	var end zipEndRecord
	if err := binary.Read(bytes.NewReader(tail[pos:]), binary.LittleEndian, &end); err != nil {
		return nil, fmt.Errorf("reading zip end record: %w", err)
	}
	rec := &EndRecord{
		Offset:   tailStart + int64(pos),
		CDOffset: int64(end.CDOffset),
		CDSize:   int64(end.CDSize),
		Entries:  uint64(end.TotalCDCount),
		Comment:  end.CommentLength,
	}
	if end.TotalCDCount == uint16Max || end.CDSize == uint32Max || end.CDOffset == uint32Max {
		if end64, ok := readZip64End(r, rec.Offset); ok {
			rec.CDOffset = int64(end64.CDOffset)
			rec.CDSize = int64(end64.CDSize)
			rec.Entries = end64.TotalCDCount
			rec.Zip64 = true
		}
	}
	return rec, nil
}

// readZip64End follows the ZIP64 locator immediately preceding the end record
func readZip64End(r io.ReaderAt, endOffset int64) (zip64End, bool) {
	var loc64 zip64Loc
	var end64 zip64End
	if endOffset < directory64LocLen {
		return end64, false
	}
	var locb [directory64LocLen]byte
	if _, err := r.ReadAt(locb[:], endOffset-directory64LocLen); err != nil {
		return end64, false
	}
	_ = binary.Read(bytes.NewReader(locb[:]), binary.LittleEndian, &loc64)
	if loc64.Signature != directory64LocSignature || loc64.Offset > uint64(endOffset) {
		return end64, false
	}
	var end64b [directory64EndLen]byte
	if _, err := r.ReadAt(end64b[:], int64(loc64.Offset)); err != nil {
		return end64, false
	}
	_ = binary.Read(bytes.NewReader(end64b[:]), binary.LittleEndian, &end64)
	if end64.Signature != directory64EndSignature {
		return end64, false
	}
	return end64, true
}

// FindDirectory returns the offset of the zip central directory
func FindDirectory(r io.ReaderAt, size int64) (int64, error) {
	rec, err := FindEndRecord(r, size)
	if err != nil {
		return 0, err
	}
	if rec.CDOffset > rec.Offset {
		return 0, errors.New("zip central directory offset is past the end record")
	}
	return rec.CDOffset, nil
}
