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

package apksig

import (
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/Linmuge/apkextractor-sub000/lib/signjar"
)

// Scheme is an APK signature scheme
type Scheme int

const (
	V1 Scheme = iota
	V2
	V3
	V31
	V4
)

var allSchemes = []Scheme{V1, V2, V3, V31, V4}

// signing block pair IDs
const (
	sigApkV2  uint32 = 0x7109871a
	sigApkV3  uint32 = 0xf05368c0
	sigApkV31 uint32 = 0x1b93ad61
)

// v4 signature files start with this version word
const idsigVersion = 2

var schemeNames = map[Scheme]struct{ short, display string }{
	V1:  {"v1", "JAR Signing (v1)"},
	V2:  {"v2", "APK Signature Scheme v2"},
	V3:  {"v3", "APK Signature Scheme v3"},
	V31: {"v3.1", "APK Signature Scheme v3.1"},
	V4:  {"v4", "APK Signature Scheme v4"},
}

// String returns the short name, e.g. "v3.1"
func (s Scheme) String() string {
	if n, ok := schemeNames[s]; ok {
		return n.short
	}
	return "unknown"
}

// DisplayName returns the descriptive name, e.g. "APK Signature Scheme v2"
func (s Scheme) DisplayName() string {
	if n, ok := schemeNames[s]; ok {
		return n.display
	}
	return "Unknown scheme"
}

// BlockID returns the signing block pair ID of a block-based scheme
func (s Scheme) BlockID() (uint32, bool) {
	switch s {
	case V2:
		return sigApkV2, true
	case V3:
		return sigApkV3, true
	case V31:
		return sigApkV31, true
	default:
		return 0, false
	}
}

// SchemeForID maps a signing block pair ID to its scheme
func SchemeForID(id uint32) (Scheme, bool) {
	switch id {
	case sigApkV2:
		return V2, true
	case sigApkV3:
		return V3, true
	case sigApkV31:
		return V31, true
	default:
		return 0, false
	}
}

// SchemeSet is a set of schemes
type SchemeSet uint8

func (s SchemeSet) Has(scheme Scheme) bool {
	return s&(1<<uint(scheme)) != 0
}

func (s SchemeSet) With(scheme Scheme) SchemeSet {
	return s | 1<<uint(scheme)
}

func (s SchemeSet) Union(o SchemeSet) SchemeSet {
	return s | o
}

func (s SchemeSet) Empty() bool { return s == 0 }

// List returns the members in ascending order
func (s SchemeSet) List() []Scheme {
	var out []Scheme
	for _, scheme := range allSchemes {
		if s.Has(scheme) {
			out = append(out, scheme)
		}
	}
	return out
}

func (s SchemeSet) String() string {
	var names []string
	for _, scheme := range s.List() {
		names = append(names, scheme.String())
	}
	return strings.Join(names, ",")
}

// MarshalText renders the set as its comma-separated short names
func (s SchemeSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BlockSchemes classifies signing block pairs. IDs that belong to no known
// scheme, such as padding or vendor data, are ignored.
func BlockSchemes(pairs []Pair) SchemeSet {
	var set SchemeSet
	for _, p := range pairs {
		if scheme, ok := SchemeForID(p.ID); ok {
			set = set.With(scheme)
		}
	}
	return set
}

// NameSchemes reports V1 if any of the archive entry names is a JAR
// signature file
func NameSchemes(names []string) SchemeSet {
	for _, name := range names {
		if signjar.IsSignatureFile(name) {
			return SchemeSet(0).With(V1)
		}
	}
	return 0
}

// DetectSchemes unions the schemes found in the signing block of r with V1 as
// indicated by the archive's entry names. A missing block is not an error.
func DetectSchemes(r io.ReaderAt, size int64, names []string) (SchemeSet, error) {
	set := NameSchemes(names)
	block, err := LocateSigningBlock(r, size)
	if err != nil || block == nil {
		return set, err
	}
	pairs, err := ReadPairs(r, block)
	return set.Union(BlockSchemes(pairs)), err
}

// DetectSchemesPath is DetectSchemes for a file on disk, additionally
// reporting V4 when a v4 signature file sits next to it.
func DetectSchemesPath(path string, names []string) (SchemeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	set, err := DetectSchemes(f, st.Size(), names)
	if hasIdsig(path) {
		set = set.With(V4)
	}
	return set, err
}

func hasIdsig(apkPath string) bool {
	f, err := os.Open(apkPath + ".idsig")
	if err != nil {
		return false
	}
	defer f.Close()
	var version uint32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return false
	}
	return version == idsigVersion
}
