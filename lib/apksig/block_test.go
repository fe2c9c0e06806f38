package apksig

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Linmuge/apkextractor-sub000/internal/apktest"
	"github.com/Linmuge/apkextractor-sub000/lib/zipslicer"
)

func locate(t *testing.T, blob []byte) *SigningBlock {
	t.Helper()
	block, err := LocateSigningBlock(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	return block
}

func TestLocateSigningBlock(t *testing.T) {
	t.Parallel()
	for _, comment := range []string{"", "x", strings.Repeat("c", 65000)} {
		unsigned := apktest.Build(t, apktest.Options{Comment: comment})
		signed := apktest.Build(t, apktest.Options{
			Comment: comment,
			Pairs:   []apktest.Pair{{ID: apktest.IDv2, Value: []byte("dummy")}},
		})
		assert.Nil(t, locate(t, unsigned))
		block := locate(t, signed)
		require.NotNil(t, block)
		// the unsigned archive's central directory starts where the block does
		plainCD, err := zipslicer.FindDirectory(bytes.NewReader(unsigned), int64(len(unsigned)))
		require.NoError(t, err)
		assert.Equal(t, plainCD, block.Offset)
		assert.Equal(t, block.CDOffset, block.End())
		assert.Equal(t, "APK Sig Block 42", string(signed[block.End()-16:block.End()]))
		assert.Equal(t, block.Size, binary.LittleEndian.Uint64(signed[block.Offset:]))
	}
}

func TestLocateSigningBlockRejects(t *testing.T) {
	t.Parallel()
	good := apktest.Build(t, apktest.Options{Pairs: []apktest.Pair{{ID: apktest.IDv2, Value: []byte("v")}}})
	block := locate(t, good)
	require.NotNil(t, block)

	t.Run("BadMagic", func(t *testing.T) {
		blob := bytes.Clone(good)
		blob[block.End()-1] ^= 0xff
		assert.Nil(t, locate(t, blob))
	})
	t.Run("ZeroSize", func(t *testing.T) {
		blob := bytes.Clone(good)
		binary.LittleEndian.PutUint64(blob[block.End()-24:], 0)
		assert.Nil(t, locate(t, blob))
	})
	t.Run("OversizedBlock", func(t *testing.T) {
		blob := bytes.Clone(good)
		binary.LittleEndian.PutUint64(blob[block.End()-24:], uint64(block.CDOffset))
		assert.Nil(t, locate(t, blob))
	})
	t.Run("NotZip", func(t *testing.T) {
		blob := bytes.Repeat([]byte("APK Sig Block 42"), 8)
		_, err := LocateSigningBlock(bytes.NewReader(blob), int64(len(blob)))
		assert.ErrorIs(t, err, ErrNoEndRecord)
	})
}

func TestReadPairs(t *testing.T) {
	t.Parallel()
	const verityPadding = 0x42726577
	blob := apktest.Build(t, apktest.Options{Pairs: []apktest.Pair{
		{ID: apktest.IDv2, Value: []byte("two")},
		{ID: verityPadding, Value: make([]byte, 100)},
		{ID: apktest.IDv3, Value: []byte("three")},
	}})
	r := bytes.NewReader(blob)
	block := locate(t, blob)
	pairs, err := ReadPairs(r, block)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, uint32(verityPadding), pairs[1].ID)
	assert.Equal(t, uint64(104), pairs[1].Length)
	value, err := ReadValue(r, pairs[2])
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), value)
	assert.Equal(t, SchemeSet(0).With(V2).With(V3), BlockSchemes(pairs))

	// an impossible length ends the walk after the pairs before it
	damaged := bytes.Clone(blob)
	binary.LittleEndian.PutUint64(damaged[pairs[1].ValueOffset-12:], 1<<40)
	pairs, err = ReadPairs(bytes.NewReader(damaged), block)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, apktest.IDv2, pairs[0].ID)

	pairs, err = ReadPairs(r, nil)
	assert.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestLengthPrefixed(t *testing.T) {
	t.Parallel()
	t.Run("Truncated", func(t *testing.T) {
		// prefix claims more bytes than are present
		p := &prefixed{buf: []byte{0x10, 0, 0, 0, 1, 2, 3}}
		_, err := p.bytes()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		p = &prefixed{buf: []byte{1, 0}}
		_, err = p.items()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("TrailingData", func(t *testing.T) {
		p := &prefixed{buf: []byte{1, 0, 0, 0, 9, 7}}
		v, err := p.bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte{9}, v)
		assert.ErrorIs(t, p.end(), errTrailingData)
	})
	t.Run("Items", func(t *testing.T) {
		p := &prefixed{buf: []byte{11, 0, 0, 0, 1, 0, 0, 0, 'a', 2, 0, 0, 0, 'b', 'c'}}
		items, err := p.items()
		require.NoError(t, err)
		assert.Equal(t, [][]byte{{'a'}, {'b', 'c'}}, items)
		assert.NoError(t, p.end())
	})
	t.Run("Signer", func(t *testing.T) {
		cert := apktest.NewSigner(t, "framed", 1).Cert
		signer, err := parseFirstSigner(V3, apktest.V3Value(cert))
		require.NoError(t, err)
		assert.Equal(t, [][]byte{cert.Raw}, signer.Certificates)
		assert.Equal(t, uint32(24), signer.MinSDK)
		assert.Equal(t, uint32(0x7fffffff), signer.MaxSDK)

		_, err = parseFirstSigner(V2, apktest.V3Value(cert))
		assert.Error(t, err)
		_, err = parseFirstSigner(V2, append(apktest.V2Value(cert), 0))
		assert.ErrorIs(t, err, errTrailingData)
		_, err = parseFirstSigner(V4, apktest.V2Value(cert))
		assert.Error(t, err)
	})
}
