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

// Package binreader provides a forgiving, position-tracking reader over an
// in-memory buffer. Reads past the end of the buffer yield zero instead of an
// error so that decoders of damaged files can keep going.
package binreader

import "encoding/binary"

type Cursor struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// New returns a little-endian cursor positioned at the start of buf
func New(buf []byte) *Cursor {
	return NewWithOrder(buf, binary.LittleEndian)
}

func NewWithOrder(buf []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{buf: buf, order: order}
}

func (c *Cursor) Pos() int       { return c.pos }
func (c *Cursor) Len() int       { return len(c.buf) }
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }
func (c *Cursor) EOF() bool      { return c.pos >= len(c.buf) }

// Buffer returns the whole underlying buffer
func (c *Cursor) Buffer() []byte { return c.buf }

// take returns the next n bytes and advances past them. If fewer than n bytes
// remain the cursor moves to the end and nil is returned.
func (c *Cursor) take(n int) []byte {
	if n < 0 || n > len(c.buf)-c.pos {
		c.pos = len(c.buf)
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *Cursor) ReadU8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *Cursor) ReadU16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return c.order.Uint16(b)
}

func (c *Cursor) ReadU32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return c.order.Uint32(b)
}

func (c *Cursor) ReadU64() uint64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return c.order.Uint64(b)
}

// Bytes returns the next n bytes without copying, or nil if the buffer is too
// short.
func (c *Cursor) Bytes(n int) []byte {
	return c.take(n)
}

// Skip advances by n bytes. Negative counts are ignored and skipping past the
// end stops at the end.
func (c *Cursor) Skip(n int) {
	if n <= 0 {
		return
	}
	if n > len(c.buf)-c.pos {
		c.pos = len(c.buf)
		return
	}
	c.pos += n
}

// Seek moves to an absolute position, clamped to the buffer
func (c *Cursor) Seek(pos int) {
	switch {
	case pos < 0:
		c.pos = 0
	case pos > len(c.buf):
		c.pos = len(c.buf)
	default:
		c.pos = pos
	}
}
