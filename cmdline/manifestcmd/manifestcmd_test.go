package manifestcmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Linmuge/apkextractor-sub000/internal/apktest"
	"github.com/Linmuge/apkextractor-sub000/lib/axml"
)

func decodeFile(path, entry string) (string, error) {
	blob, err := readDocument(path, entry)
	if err != nil {
		return "", err
	}
	return axml.Decode(blob), nil
}

func TestDecodeFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	signer := apktest.NewSigner(t, "manifest", 1)
	apk := filepath.Join(dir, "app.apk")
	require.NoError(t, os.WriteFile(apk, apktest.Build(t, apktest.Options{
		Entries: append(apktest.DefaultEntries(), apktest.Entry{Name: "res/xml/paths.xml", Data: apktest.SimpleAXML("paths")}),
		V1:      signer,
	}), 0o644))
	raw := filepath.Join(dir, "AndroidManifest.xml")
	require.NoError(t, os.WriteFile(raw, apktest.SimpleAXML("manifest"), 0o644))
	junk := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(junk, []byte("hello"), 0o644))

	text, err := decodeFile(apk, "AndroidManifest.xml")
	require.NoError(t, err)
	assert.Equal(t, "<manifest>\n</manifest>\n", text)

	text, err = decodeFile(apk, "res/xml/paths.xml")
	require.NoError(t, err)
	assert.Equal(t, "<paths>\n</paths>\n", text)

	text, err = decodeFile(raw, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "<manifest>\n</manifest>\n", text)

	_, err = decodeFile(apk, "res/xml/missing.xml")
	assert.ErrorContains(t, err, "no entry named res/xml/missing.xml")
	_, err = decodeFile(junk, "AndroidManifest.xml")
	assert.ErrorContains(t, err, "unknown filetype")
	_, err = decodeFile(filepath.Join(dir, "gone.apk"), "AndroidManifest.xml")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	t.Parallel()
	blob := apktest.SimpleAXML("manifest")
	text, err := query(blob, "/manifest", "")
	require.NoError(t, err)
	assert.Equal(t, "<manifest/>", strings.TrimSpace(text))

	text, err = query(blob, "//activity", "")
	require.NoError(t, err)
	assert.Empty(t, text)

	// the element has no attributes
	text, err = query(blob, "/manifest", "package")
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = query(blob, "/manifest[", "")
	assert.Error(t, err)
}

func TestWriteOutput(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "manifest.xml")
	require.NoError(t, writeOutput(out, "<manifest>\n</manifest>\n"))
	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<manifest>\n</manifest>\n", string(blob))
}
