package signjar

import (
	"crypto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	t.Parallel()
	t.Run("Full", func(t *testing.T) {
		const manifest = `Manifest-Version: 1.0
Built-By: nobody
Long-Header-Line: 0123456789abcdef0123456789abcdef0123456789abcdef
 0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef

Name: res/layout/a_rather_long_layout_name_that_does_not_fit_on_one_li
 ne.xml
SHA-256-Digest: 47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=
SHA1-Digest: 2jmj7l5rSw0yVb/vlWAYkK/YBwk=
X-Custom-Digest: ignored

Name: classes.dex
sha-512-digest: z4PhNX7vuL3xVChQ1m2AB9Yg5AULVxXcg/SpIdNs6c5H0NE8XYXys
 P+DGNKHfuwvY7kxvUdBeoGlODJ6+SfaPg==

`
		want := map[string]map[crypto.Hash]string{
			"res/layout/a_rather_long_layout_name_that_does_not_fit_on_one_line.xml": {
				crypto.SHA256: "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=",
				crypto.SHA1:   "2jmj7l5rSw0yVb/vlWAYkK/YBwk=",
			},
			"classes.dex": {
				crypto.SHA512: "z4PhNX7vuL3xVChQ1m2AB9Yg5AULVxXcg/SpIdNs6c5H0NE8XYXysP+DGNKHfuwvY7kxvUdBeoGlODJ6+SfaPg==",
			},
		}
		for _, blob := range []string{manifest, strings.ReplaceAll(manifest, "\n", "\r\n")} {
			m, err := ParseManifest([]byte(blob))
			require.NoError(t, err)
			assert.Equal(t, want, m.entries)
			assert.Equal(t, want["classes.dex"], m.EntryDigests("classes.dex"))
			assert.Nil(t, m.EntryDigests("Manifest-Version"))
		}
	})
	t.Run("MainOnly", func(t *testing.T) {
		m, err := ParseManifest([]byte("Manifest-Version: 1.0\n"))
		require.NoError(t, err)
		assert.Empty(t, m.entries)
	})
	t.Run("Truncated", func(t *testing.T) {
		m, err := ParseManifest([]byte("Manifest-Version: 1.0\n\nName: foo\nSHA-256-Digest: AAAA"))
		require.NoError(t, err)
		assert.Equal(t, map[crypto.Hash]string{crypto.SHA256: "AAAA"}, m.EntryDigests("foo"))
	})
	t.Run("ExtraBlankLines", func(t *testing.T) {
		m, err := ParseManifest([]byte("Manifest-Version: 1.0\n\n\n\nName: foo\n\n\n"))
		require.NoError(t, err)
		assert.Equal(t, map[crypto.Hash]string{}, m.EntryDigests("foo"))
	})
	t.Run("Invalid", func(t *testing.T) {
		for name, blob := range map[string]string{
			"NoName":  "Manifest-Version: 1.0\n\nFoo: bar\n\n",
			"NoColon": "Manifest-Version: 1.0\n\nName: foo\nbroken line\n\n",
			"BadMain": "Manifest-Version 1.0\n",
			"Empty":   "\r\n\r\n",
		} {
			_, err := ParseManifest([]byte(blob))
			assert.Error(t, err, name)
		}
	})
}
