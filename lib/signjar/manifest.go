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

package signjar

import (
	"bytes"
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"errors"
	"strings"
)

// See https://docs.oracle.com/javase/8/docs/technotes/guides/jar/jar.html#JAR_Manifest

const (
	metaInf      = "META-INF/"
	manifestName = metaInf + "MANIFEST.MF"
)

// digest attribute prefixes as spelled in manifests
var digestNames = map[string]crypto.Hash{
	"MD5":     crypto.MD5,
	"SHA1":    crypto.SHA1,
	"SHA-1":   crypto.SHA1,
	"SHA-256": crypto.SHA256,
	"SHA-384": crypto.SHA384,
	"SHA-512": crypto.SHA512,
}

// Manifest holds the base64 entry digests recorded by META-INF/MANIFEST.MF.
// Attributes of the main section are not kept.
type Manifest struct {
	entries map[string]map[crypto.Hash]string
}

// ParseManifest reads a manifest with LF or CRLF line endings. A missing or
// doubled blank line between sections is accepted.
func ParseManifest(blob []byte) (*Manifest, error) {
	m := &Manifest{entries: make(map[string]map[crypto.Hash]string)}
	var section []string
	sections := 0
	flush := func() error {
		if len(section) == 0 {
			return nil
		}
		sections++
		var err error
		if sections == 1 {
			err = eachAttribute(section, func(string, string) {})
		} else {
			err = m.addEntry(section)
		}
		section = section[:0]
		return err
	}
	for _, line := range manifestLines(blob) {
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		section = append(section, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if sections == 0 {
		return nil, errors.New("manifest has no sections")
	}
	return m, nil
}

// manifestLines splits a manifest into logical lines, joining continuations
// that start with a single space onto the line before
func manifestLines(blob []byte) []string {
	blob = bytes.ReplaceAll(blob, []byte("\r\n"), []byte{'\n'})
	var lines []string
	for _, line := range strings.Split(string(blob), "\n") {
		if strings.HasPrefix(line, " ") && len(lines) > 0 && lines[len(lines)-1] != "" {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func eachAttribute(section []string, fn func(key, value string)) error {
	for _, line := range section {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return errors.New("jar manifest is malformed")
		}
		fn(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return nil
}

func (m *Manifest) addEntry(section []string) error {
	var name string
	digests := make(map[crypto.Hash]string)
	err := eachAttribute(section, func(key, value string) {
		if strings.EqualFold(key, "Name") {
			name = value
			return
		}
		alg, ok := strings.CutSuffix(strings.ToUpper(key), "-DIGEST")
		if !ok {
			return
		}
		if hash, ok := digestNames[alg]; ok && hash.Available() {
			digests[hash] = value
		}
	})
	if err != nil {
		return err
	} else if name == "" {
		return errors.New("manifest has section with no \"Name\" attribute")
	}
	m.entries[name] = digests
	return nil
}

// EntryDigests returns the digests the manifest records for name, keyed by
// hash. It is nil for entries without a section.
func (m *Manifest) EntryDigests(name string) map[crypto.Hash]string {
	return m.entries[name]
}
