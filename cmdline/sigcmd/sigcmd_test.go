package sigcmd

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Linmuge/apkextractor-sub000/config"
	"github.com/Linmuge/apkextractor-sub000/internal/apktest"
	"github.com/Linmuge/apkextractor-sub000/lib/apksig"
	"github.com/Linmuge/apkextractor-sub000/lib/x509tools"
)

func writeAPK(t *testing.T, dir, name string, opts apktest.Options) (string, []byte) {
	t.Helper()
	blob := apktest.Build(t, opts)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, blob, 0o644))
	return path, blob
}

func TestInspectAll(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	signer := apktest.NewSigner(t, "release", 77)
	v1, blob := writeAPK(t, dir, "v1.apk", apktest.Options{V1: signer})
	v2, _ := writeAPK(t, dir, "v2.apk", apktest.Options{
		Pairs: []apktest.Pair{{ID: apktest.IDv2, Value: apktest.V2Value(signer.Cert)}},
	})
	unsigned, _ := writeAPK(t, dir, "unsigned.apk", apktest.Options{})
	missing := filepath.Join(dir, "missing.apk")

	paths := []string{v1, v2, unsigned, missing}
	infos := inspectAll(paths, inspectOptions{Concurrency: 2, FileDigest: true})
	require.Len(t, infos, len(paths))
	for i, info := range infos {
		assert.Equal(t, paths[i], info.Path)
	}
	assert.True(t, infos[0].Valid)
	assert.Equal(t, "77", infos[0].SerialNumber)
	sum := sha256.Sum256(blob)
	assert.Equal(t, "sha256:"+hex.EncodeToString(sum[:]), infos[0].FileDigest)
	assert.True(t, infos[1].Valid)
	assert.Equal(t, "v2", infos[1].CertificateSource)
	assert.False(t, infos[2].Valid)
	assert.NotEmpty(t, infos[2].FileDigest)
	assert.False(t, infos[3].Valid)
	assert.Empty(t, infos[3].FileDigest)
	assert.Contains(t, infos[3].Error, "; ")
}

func TestWriteReport(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	signer := apktest.NewSigner(t, "report", 9)
	path, _ := writeAPK(t, dir, "app.apk", apktest.Options{
		V1:    signer,
		Pairs: []apktest.Pair{{ID: apktest.IDv2, Value: apktest.V2Value(signer.Cert)}},
	})
	infos := inspectAll([]string{path}, inspectOptions{})

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, config.FormatText, infos))
	text := buf.String()
	assert.Contains(t, text, path+"\n")
	assert.Contains(t, text, "  Schemes:     JAR Signing (v1), APK Signature Scheme v2\n")
	assert.Contains(t, text, "  Subject:     CN=report, O=Example Org, C=US\n")
	assert.Contains(t, text, "  Serial:      9\n")
	assert.Contains(t, text, "  Not before:  2020-01-01T00:00:00Z\n")
	assert.NotContains(t, text, "Error:")

	buf.Reset()
	require.NoError(t, writeReport(&buf, config.FormatJSON, infos))
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "v1,v2", decoded[0]["schemes"])
	assert.Equal(t, "9", decoded[0]["serial_number"])
	assert.Equal(t, true, decoded[0]["valid"])

	buf.Reset()
	require.NoError(t, writeReport(&buf, config.FormatYAML, infos))
	var fromYAML []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, "v1,v2", fromYAML[0]["schemes"])
	assert.Equal(t, infos[0].SHA256, fromYAML[0]["sha256"])

	assert.Error(t, writeReport(&buf, "xml", infos))
}

func TestInspectAllNameStyle(t *testing.T) {
	t.Parallel()
	signer := apktest.NewSigner(t, "styled", 3)
	path, _ := writeAPK(t, t.TempDir(), "app.apk", apktest.Options{V1: signer})
	infos := inspectAll([]string{path}, inspectOptions{NameStyle: x509tools.NameStyleMsOsco})
	require.Len(t, infos, 1)
	assert.Equal(t, "CN=styled, O=Example Org, C=US", infos[0].Subject)

	infos = inspectAll([]string{path}, inspectOptions{NameStyle: x509tools.NameStyleOpenSsl})
	assert.Equal(t, "/C=US/O=Example Org/CN=styled", infos[0].Subject)
}

func TestWriteTextFailure(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	writeText(&buf, apksig.Info{Path: "broken.apk", Error: "opening archive: zip: not a valid zip file"})
	assert.Equal(t, "broken.apk\n  Schemes:     none\n  Error:       opening archive: zip: not a valid zip file\n", buf.String())
}

func TestListBlocks(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path, _ := writeAPK(t, dir, "app.apk", apktest.Options{Pairs: []apktest.Pair{
		{ID: apktest.IDv2, Value: []byte("two")},
		{ID: 0x42726577, Value: make([]byte, 10)},
	}})
	var buf bytes.Buffer
	require.NoError(t, listBlocks(&buf, path))
	out := buf.String()
	assert.Contains(t, out, "Schemes: v2\n")
	assert.Contains(t, out, "  0x7109871a          3  APK Signature Scheme v2\n")
	assert.Contains(t, out, "  0x42726577         10  unknown\n")

	plain, blob := writeAPK(t, dir, "plain.apk", apktest.Options{})
	buf.Reset()
	require.NoError(t, listBlocks(&buf, plain))
	// end record has no comment, so the directory offset is its last field but one
	cdOffset := binary.LittleEndian.Uint32(blob[len(blob)-6:])
	assert.Equal(t, fmt.Sprintf("Schemes: none\nCentral directory at offset %d\nNo APK Signing Block\n", cdOffset), buf.String())
	assert.Error(t, listBlocks(&buf, filepath.Join(dir, "missing.apk")))
}
