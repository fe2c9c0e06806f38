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

// Package axml decodes Android's compiled binary XML ("AXML") as found in
// AndroidManifest.xml and res/*.xml inside an APK, and renders it as an
// indented text tree.
//
// The decoder is deliberately forgiving: truncated or inconsistent input
// produces a partial tree rather than an error.
package axml

// Chunk type words. The low half is the chunk type and the high half the
// header size, but dispatch is on the whole word.
// See frameworks/base/libs/androidfw/include/androidfw/ResourceTypes.h
const (
	chunkXML         uint32 = 0x00080003
	chunkStringPool  uint32 = 0x001C0001
	chunkResourceMap uint32 = 0x00080180
	chunkNsStart     uint32 = 0x00100100
	chunkNsEnd       uint32 = 0x00100101
	chunkTagStart    uint32 = 0x00100102
	chunkTagEnd      uint32 = 0x00100103
	chunkText        uint32 = 0x00100104

	chunkHeaderSize = 8
	// line number + comment index
	nodeHeaderSize = 8
	attributeSize  = 20

	// no string
	noIndex uint32 = 0xFFFFFFFF
)

// IsAXML reports whether blob starts with a binary XML document header
func IsAXML(blob []byte) bool {
	return len(blob) >= 4 && blob[0] == 0x03 && blob[1] == 0x00 && blob[2] == 0x08 && blob[3] == 0x00
}
