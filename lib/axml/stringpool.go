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

package axml

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/Linmuge/apkextractor-sub000/lib/binreader"
)

const stringPoolUTF8 = 1 << 8

// StringPool is the decoded, read-only string table of a document
type StringPool struct {
	strings []string
	utf8    bool
}

// Get returns the string at index i, or "" if there is no such string
func (p *StringPool) Get(i uint32) string {
	if p == nil || uint64(i) >= uint64(len(p.strings)) {
		return ""
	}
	return p.strings[i]
}

func (p *StringPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.strings)
}

// IsUTF8 reports whether the pool was stored as UTF-8 rather than UTF-16
func (p *StringPool) IsUTF8() bool {
	return p != nil && p.utf8
}

// ReadStringPool decodes a string pool chunk. The cursor must be positioned
// just past the 8-byte chunk header that started at chunkStart. On return the
// cursor is at chunkStart+chunkSize no matter how much of the pool could be
// decoded.
func ReadStringPool(c *binreader.Cursor, chunkStart int, chunkSize uint32) *StringPool {
	stringCount := c.ReadU32()
	styleCount := c.ReadU32()
	flags := c.ReadU32()
	stringsStart := c.ReadU32()
	c.ReadU32() // stylesStart, styles are not interpreted

	end := clampEnd(chunkStart, chunkSize, c.Len())
	// a count larger than the offsets table could possibly hold is garbage
	if avail := end - c.Pos(); avail < 0 {
		stringCount = 0
	} else if uint64(stringCount) > uint64(avail/4) {
		stringCount = uint32(avail / 4)
	}
	offsets := make([]uint32, stringCount)
	for i := range offsets {
		offsets[i] = c.ReadU32()
	}
	if uint64(styleCount) <= uint64(c.Remaining()/4) {
		c.Skip(int(styleCount) * 4)
	}

	pool := &StringPool{
		utf8:    flags&stringPoolUTF8 != 0,
		strings: make([]string, stringCount),
	}
	raw := c.Buffer()[:end]
	base := int64(chunkStart) + int64(stringsStart)
	var dec *encoding.Decoder
	if !pool.utf8 {
		dec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	}
	for i, off := range offsets {
		pos := base + int64(off)
		if pos < 0 || pos >= int64(len(raw)) {
			continue
		}
		if pool.utf8 {
			pool.strings[i] = decodeUTF8(raw, int(pos))
		} else {
			pool.strings[i] = decodeUTF16(dec, raw, int(pos))
		}
	}
	c.Seek(int(clampEnd(chunkStart, chunkSize, c.Len())))
	return pool
}

// clampEnd computes start+size without overflowing and limits it to n
func clampEnd(start int, size uint32, n int) int {
	end := int64(start) + int64(size)
	if end > int64(n) {
		return n
	}
	return int(end)
}

func decodeUTF16(dec *encoding.Decoder, raw []byte, pos int) string {
	if len(raw)-pos < 2 {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(raw[pos:]))
	pos += 2
	if n&0x8000 != 0 {
		if len(raw)-pos < 2 {
			return ""
		}
		n = (n&0x7FFF)<<16 | int(binary.LittleEndian.Uint16(raw[pos:]))
		pos += 2
	}
	if n > (len(raw)-pos)/2 {
		return ""
	}
	s, err := dec.Bytes(raw[pos : pos+n*2])
	if err != nil {
		return ""
	}
	return string(s)
}

func decodeUTF8(raw []byte, pos int) string {
	// character count, unused beyond skipping it
	_, pos, ok := readLength8(raw, pos)
	if !ok {
		return ""
	}
	n, pos, ok := readLength8(raw, pos)
	if !ok || n > len(raw)-pos {
		return ""
	}
	return strings.ToValidUTF8(string(raw[pos:pos+n]), "\uFFFD")
}

// readLength8 reads a 1 or 2 byte length where a set high bit on the first
// byte means a second byte follows.
func readLength8(raw []byte, pos int) (n, next int, ok bool) {
	if pos >= len(raw) {
		return 0, pos, false
	}
	n = int(raw[pos])
	pos++
	if n&0x80 != 0 {
		if pos >= len(raw) {
			return 0, pos, false
		}
		n = (n&0x7F)<<8 | int(raw[pos])
		pos++
	}
	return n, pos, true
}
