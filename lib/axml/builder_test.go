package axml

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"
)

// axmlBuilder assembles binary XML documents for tests
type axmlBuilder struct {
	utf8    bool
	strings []string
	index   map[string]uint32
	body    bytes.Buffer
}

type testAttr struct {
	ns, name string
	raw      string
	typ      ValueType
	data     uint32
}

func newBuilder(utf8Pool bool) *axmlBuilder {
	return &axmlBuilder{utf8: utf8Pool, index: make(map[string]uint32)}
}

func (b *axmlBuilder) str(s string) uint32 {
	if s == "" {
		return noIndex
	}
	if i, ok := b.index[s]; ok {
		return i
	}
	i := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	b.index[s] = i
	return i
}

func (b *axmlBuilder) u16(v uint16) { _ = binary.Write(&b.body, binary.LittleEndian, v) }
func (b *axmlBuilder) u32(v uint32) { _ = binary.Write(&b.body, binary.LittleEndian, v) }

func (b *axmlBuilder) node(typ, size, line uint32) {
	b.u32(typ)
	b.u32(size)
	b.u32(line)
	b.u32(noIndex)
}

func (b *axmlBuilder) StartNamespace(prefix, uri string) *axmlBuilder {
	b.node(chunkNsStart, 24, 1)
	b.u32(b.str(prefix))
	b.u32(b.str(uri))
	return b
}

func (b *axmlBuilder) EndNamespace(prefix, uri string) *axmlBuilder {
	b.node(chunkNsEnd, 24, 1)
	b.u32(b.str(prefix))
	b.u32(b.str(uri))
	return b
}

func (b *axmlBuilder) Start(ns, name string, attrs ...testAttr) *axmlBuilder {
	b.node(chunkTagStart, uint32(36+attributeSize*len(attrs)), 2)
	b.u32(b.str(ns))
	b.u32(b.str(name))
	b.u16(0x14)
	b.u16(attributeSize)
	b.u16(uint16(len(attrs)))
	b.u16(0)
	b.u16(0)
	b.u16(0)
	for _, a := range attrs {
		b.u32(b.str(a.ns))
		b.u32(b.str(a.name))
		if a.typ == TypeString {
			idx := b.str(a.raw)
			b.u32(idx)
			b.u32(8 | uint32(a.typ)<<24)
			b.u32(idx)
		} else {
			b.u32(noIndex)
			b.u32(8 | uint32(a.typ)<<24)
			b.u32(a.data)
		}
	}
	return b
}

func (b *axmlBuilder) End(ns, name string) *axmlBuilder {
	b.node(chunkTagEnd, 24, 3)
	b.u32(b.str(ns))
	b.u32(b.str(name))
	return b
}

func (b *axmlBuilder) Text(text string) *axmlBuilder {
	b.node(chunkText, 28, 4)
	b.u32(b.str(text))
	b.u32(8)
	b.u32(0)
	return b
}

// Raw appends an arbitrary chunk
func (b *axmlBuilder) Raw(typ uint32, payload []byte) *axmlBuilder {
	b.u32(typ)
	b.u32(uint32(8 + len(payload)))
	b.body.Write(payload)
	return b
}

// Pool encodes the string pool chunk for the strings interned so far
func (b *axmlBuilder) Pool() []byte {
	var data bytes.Buffer
	offsets := make([]uint32, len(b.strings))
	for i, s := range b.strings {
		offsets[i] = uint32(data.Len())
		if b.utf8 {
			writeLength8(&data, utf8.RuneCountInString(s))
			writeLength8(&data, len(s))
			data.WriteString(s)
			data.WriteByte(0)
		} else {
			units := utf16.Encode([]rune(s))
			writeLength16(&data, len(units))
			for _, u := range units {
				_ = binary.Write(&data, binary.LittleEndian, u)
			}
			data.Write([]byte{0, 0})
		}
	}
	for data.Len()%4 != 0 {
		data.WriteByte(0)
	}
	headerSize := 28 + 4*len(b.strings)
	var flags uint32
	if b.utf8 {
		flags = stringPoolUTF8
	}
	var out bytes.Buffer
	w := func(v uint32) { _ = binary.Write(&out, binary.LittleEndian, v) }
	w(chunkStringPool)
	w(uint32(headerSize + data.Len()))
	w(uint32(len(b.strings)))
	w(0)
	w(flags)
	w(uint32(headerSize))
	w(0)
	for _, off := range offsets {
		w(off)
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

// Bytes produces the complete document
func (b *axmlBuilder) Bytes() []byte {
	pool := b.Pool()
	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, chunkXML)
	_ = binary.Write(&out, binary.LittleEndian, uint32(8+len(pool)+b.body.Len()))
	out.Write(pool)
	out.Write(b.body.Bytes())
	return out.Bytes()
}

func writeLength8(buf *bytes.Buffer, n int) {
	if n > 0x7F {
		buf.WriteByte(byte(n>>8) | 0x80)
	}
	buf.WriteByte(byte(n))
}

func writeLength16(buf *bytes.Buffer, n int) {
	if n > 0x7FFF {
		_ = binary.Write(buf, binary.LittleEndian, uint16(n>>16)|0x8000)
	}
	_ = binary.Write(buf, binary.LittleEndian, uint16(n))
}

// sampleManifest is a small but representative document
func sampleManifest(utf8Pool bool) []byte {
	const android = "http://schemas.android.com/apk/res/android"
	b := newBuilder(utf8Pool)
	b.StartNamespace("android", android).
		Start("", "manifest",
			testAttr{ns: android, name: "versionCode", typ: TypeIntDec, data: 42},
			testAttr{name: "package", typ: TypeString, raw: "com.example.app"},
		).
		Start("", "application",
			testAttr{ns: android, name: "label", typ: TypeReference, data: 0x7f0b0001},
			testAttr{ns: android, name: "debuggable", typ: TypeIntBool, data: 1},
		).
		Start("", "activity",
			testAttr{ns: android, name: "name", typ: TypeString, raw: ".Main"},
		).
		End("", "activity").
		End("", "application").
		End("", "manifest").
		EndNamespace("android", android)
	return b.Bytes()
}
