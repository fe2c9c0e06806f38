package axml

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(p *Parser) []Event {
	var events []Event
	for {
		ev, ok := p.Next()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func TestParserEvents(t *testing.T) {
	t.Parallel()
	p := NewParser(sampleManifest(false))
	events := collect(p)
	require.Len(t, events, 6)

	manifest := events[0]
	assert.Equal(t, StartTag, manifest.Type)
	assert.Equal(t, "manifest", manifest.Name)
	assert.Equal(t, []Namespace{{Prefix: "android", URI: "http://schemas.android.com/apk/res/android"}}, manifest.Namespaces)
	require.Len(t, manifest.Attributes, 2)
	assert.Equal(t, "android:versionCode", manifest.Attributes[0].QualifiedName())
	assert.Equal(t, TypeIntDec, manifest.Attributes[0].Type)
	assert.Equal(t, int32(42), manifest.Attributes[0].Data)
	assert.Equal(t, "package", manifest.Attributes[1].QualifiedName())
	assert.Equal(t, "com.example.app", manifest.Attributes[1].RawValue)

	application := events[1]
	assert.Empty(t, application.Namespaces)
	assert.Equal(t, "android:label", application.Attributes[0].QualifiedName())

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{StartTag, StartTag, StartTag, EndTag, EndTag, EndTag}, types)
	assert.Equal(t, "activity", events[3].Name)
	assert.Equal(t, "manifest", events[5].Name)

	// stream stays ended
	_, ok := p.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, p.ns.Len())
}

func TestParserPrefixedTag(t *testing.T) {
	t.Parallel()
	const tools = "http://schemas.android.com/tools"
	b := newBuilder(true)
	b.StartNamespace("tools", tools).
		Start(tools, "ignore").
		End(tools, "ignore").
		EndNamespace("tools", tools).
		Start(tools, "after").
		End(tools, "after")
	events := collect(NewParser(b.Bytes()))
	require.Len(t, events, 4)
	assert.Equal(t, "tools:ignore", events[0].QualifiedName())
	assert.Equal(t, "tools:ignore", events[1].QualifiedName())
	// binding is out of scope once its end chunk was seen
	assert.Equal(t, "after", events[2].QualifiedName())
}

func TestParserResourceMap(t *testing.T) {
	t.Parallel()
	ids := make([]byte, 8)
	binary.LittleEndian.PutUint32(ids, 0x0101021b)
	binary.LittleEndian.PutUint32(ids[4:], 0x0101021c)
	b := newBuilder(false)
	b.Raw(chunkResourceMap, ids).Start("", "manifest").End("", "manifest")
	p := NewParser(b.Bytes())
	assert.Len(t, collect(p), 2)
	assert.Equal(t, []uint32{0x0101021b, 0x0101021c}, p.ResourceIDs())
}

func TestParserUnknownChunk(t *testing.T) {
	t.Parallel()
	plain := newBuilder(false)
	plain.Start("", "a").Text("hello").End("", "a")
	withJunk := newBuilder(false)
	withJunk.Start("", "a").
		Raw(0x00FF0200, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}).
		Text("hello").
		Raw(0x00000000, nil).
		End("", "a")
	assert.Equal(t, collect(NewParser(plain.Bytes())), collect(NewParser(withJunk.Bytes())))
}

func TestParserUndersizedChunk(t *testing.T) {
	t.Parallel()
	b := newBuilder(false)
	b.Start("", "a")
	b.u32(0x00FF0200)
	b.u32(4)
	b.End("", "a")
	events := collect(NewParser(b.Bytes()))
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Name)
}

func TestParserAttributeOverrun(t *testing.T) {
	t.Parallel()
	b := newBuilder(false)
	b.Start("", "a", testAttr{name: "x", typ: TypeIntDec, data: 1})
	doc := b.Bytes()
	// claim far more attributes than the chunk holds
	start := len(doc) - (36 + attributeSize)
	binary.LittleEndian.PutUint16(doc[start+28:], 5000)
	events := collect(NewParser(doc))
	require.Len(t, events, 1)
	assert.Len(t, events[0].Attributes, 1)
}

func TestParserTruncation(t *testing.T) {
	t.Parallel()
	doc := sampleManifest(false)
	for i := 1; i <= 10; i++ {
		cut := len(doc) * i / 11
		assert.NotPanics(t, func() {
			out := Decode(doc[:cut])
			assert.NotContains(t, out, "</manifest>")
		}, "cut at %d", cut)
	}
	assert.NotPanics(t, func() { Decode(nil) })
	assert.NotPanics(t, func() { Decode([]byte{0x03, 0x00}) })
}

func TestNamespaceStack(t *testing.T) {
	t.Parallel()
	var s NamespaceStack
	_, ok := s.Pop()
	assert.False(t, ok)
	s.Push(Namespace{Prefix: "a", URI: "u1"})
	s.Push(Namespace{Prefix: "b", URI: "u2"})
	s.Push(Namespace{Prefix: "c", URI: "u1"})
	prefix, ok := s.PrefixFor("u1")
	assert.True(t, ok)
	assert.Equal(t, "c", prefix)
	_, ok = s.PrefixFor("")
	assert.False(t, ok)
	ns, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, "c", ns.Prefix)
	prefix, _ = s.PrefixFor("u1")
	assert.Equal(t, "a", prefix)
	assert.Equal(t, 2, s.Len())
}
