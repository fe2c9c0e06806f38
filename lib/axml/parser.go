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
	"github.com/rs/zerolog"

	"github.com/Linmuge/apkextractor-sub000/lib/binreader"
)

type EventType int

const (
	StartTag EventType = iota + 1
	EndTag
	Text
)

func (t EventType) String() string {
	switch t {
	case StartTag:
		return "StartTag"
	case EndTag:
		return "EndTag"
	case Text:
		return "Text"
	default:
		return "Unknown"
	}
}

// Attribute of a start tag. The index fields are the raw string pool
// references; Name, URI, Prefix and RawValue are those references resolved.
type Attribute struct {
	NamespaceIndex uint32
	NameIndex      uint32
	RawValueIndex  uint32
	Type           ValueType
	Data           int32

	Name     string
	URI      string
	Prefix   string
	RawValue string
}

// QualifiedName returns prefix:name, or just name when unprefixed
func (a Attribute) QualifiedName() string {
	return qualify(a.Prefix, a.Name)
}

type Event struct {
	Type   EventType
	Line   uint32
	Name   string
	URI    string
	Prefix string
	// start tags only
	Attributes []Attribute
	// bindings declared since the previous start tag
	Namespaces []Namespace
	// text events only
	Text string
}

func (e Event) QualifiedName() string {
	return qualify(e.Prefix, e.Name)
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}

// Parser walks the chunk sequence of a binary XML document and produces
// structural events. It never fails: unknown chunks are skipped, unreadable
// fields read as zero and the stream ends at the first chunk that cannot be
// framed.
type Parser struct {
	cur         *binreader.Cursor
	pool        *StringPool
	ns          NamespaceStack
	pending     []Namespace
	resourceIDs []uint32
	log         zerolog.Logger
}

type Option func(*Parser)

// WithLogger sends debug traces about skipped or damaged chunks to l
func WithLogger(l zerolog.Logger) Option {
	return func(p *Parser) { p.log = l }
}

func NewParser(blob []byte, opts ...Option) *Parser {
	p := &Parser{
		cur:  binreader.New(blob),
		pool: &StringPool{},
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Strings returns the most recently decoded string pool
func (p *Parser) Strings() *StringPool { return p.pool }

// ResourceIDs returns the attribute resource ID map, if the document had one
func (p *Parser) ResourceIDs() []uint32 {
	return append([]uint32(nil), p.resourceIDs...)
}

// Next returns the next renderable event. The second return is false once
// the end of the input is reached.
func (p *Parser) Next() (Event, bool) {
	for p.cur.Remaining() >= chunkHeaderSize {
		start := p.cur.Pos()
		typ := p.cur.ReadU32()
		size := p.cur.ReadU32()
		if typ == chunkXML {
			// document wrapper, its body is the rest of the chunk stream
			continue
		}
		if size < chunkHeaderSize {
			p.log.Debug().
				Int("offset", start).
				Uint32("type", typ).
				Uint32("size", size).
				Msg("axml: chunk smaller than its header, stopping")
			p.cur.Seek(p.cur.Len())
			break
		}
		end := clampEnd(start, size, p.cur.Len())
		var ev Event
		emit := false
		switch typ {
		case chunkStringPool:
			p.pool = ReadStringPool(p.cur, start, size)
		case chunkResourceMap:
			p.readResourceMap(end)
		case chunkNsStart:
			p.pushNamespace()
		case chunkNsEnd:
			p.popNamespace()
		case chunkTagStart:
			ev, emit = p.readStartTag(end), true
		case chunkTagEnd:
			ev, emit = p.readEndTag(), true
		case chunkText:
			ev, emit = p.readText(), true
		default:
			p.log.Debug().
				Int("offset", start).
				Uint32("type", typ).
				Uint32("size", size).
				Msg("axml: skipping unknown chunk")
		}
		if end < int(int64(start)+int64(size)) {
			p.log.Debug().Int("offset", start).Uint32("type", typ).Msg("axml: chunk truncated")
		}
		p.cur.Seek(end)
		if emit {
			return ev, true
		}
	}
	return Event{}, false
}

func (p *Parser) readResourceMap(end int) {
	p.resourceIDs = p.resourceIDs[:0]
	for end-p.cur.Pos() >= 4 {
		p.resourceIDs = append(p.resourceIDs, p.cur.ReadU32())
	}
}

func (p *Parser) readNamespace() Namespace {
	p.cur.Skip(nodeHeaderSize)
	prefix := p.pool.Get(p.cur.ReadU32())
	uri := p.pool.Get(p.cur.ReadU32())
	return Namespace{Prefix: prefix, URI: uri}
}

func (p *Parser) pushNamespace() {
	ns := p.readNamespace()
	p.ns.Push(ns)
	p.pending = append(p.pending, ns)
}

func (p *Parser) popNamespace() {
	p.readNamespace()
	if _, ok := p.ns.Pop(); !ok {
		p.log.Debug().Msg("axml: namespace end without matching start")
	}
}

func (p *Parser) prefixFor(uri string) string {
	prefix, _ := p.ns.PrefixFor(uri)
	return prefix
}

func (p *Parser) readStartTag(end int) Event {
	line := p.cur.ReadU32()
	p.cur.Skip(4) // comment
	uri := p.pool.Get(p.cur.ReadU32())
	name := p.pool.Get(p.cur.ReadU32())
	p.cur.ReadU16() // attributeStart
	p.cur.ReadU16() // attributeSize
	count := int(p.cur.ReadU16())
	p.cur.Skip(3 * 2) // id, class and style attribute indexes
	if avail := (end - p.cur.Pos()) / attributeSize; count > avail {
		p.log.Debug().Int("declared", count).Int("available", avail).Msg("axml: attribute list truncated")
		count = max(avail, 0)
	}
	ev := Event{
		Type:       StartTag,
		Line:       line,
		Name:       name,
		URI:        uri,
		Prefix:     p.prefixFor(uri),
		Namespaces: p.pending,
	}
	p.pending = nil
	if count > 0 {
		ev.Attributes = make([]Attribute, count)
	}
	for i := range ev.Attributes {
		a := Attribute{
			NamespaceIndex: p.cur.ReadU32(),
			NameIndex:      p.cur.ReadU32(),
			RawValueIndex:  p.cur.ReadU32(),
		}
		// Res_value: u16 size, u8 reserved, u8 type, then the data word
		a.Type = ValueType(p.cur.ReadU32() >> 24)
		a.Data = int32(p.cur.ReadU32())
		a.Name = p.pool.Get(a.NameIndex)
		a.URI = p.pool.Get(a.NamespaceIndex)
		a.Prefix = p.prefixFor(a.URI)
		a.RawValue = p.pool.Get(a.RawValueIndex)
		ev.Attributes[i] = a
	}
	return ev
}

func (p *Parser) readEndTag() Event {
	line := p.cur.ReadU32()
	p.cur.Skip(4)
	uri := p.pool.Get(p.cur.ReadU32())
	name := p.pool.Get(p.cur.ReadU32())
	return Event{
		Type:   EndTag,
		Line:   line,
		Name:   name,
		URI:    uri,
		Prefix: p.prefixFor(uri),
	}
}

func (p *Parser) readText() Event {
	line := p.cur.ReadU32()
	p.cur.Skip(4)
	return Event{
		Type: Text,
		Line: line,
		Text: p.pool.Get(p.cur.ReadU32()),
	}
}
