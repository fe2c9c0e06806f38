/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package magic identifies the input formats apkinspect accepts by their
// leading bytes
package magic

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeZIP
	FileTypeJAR
	FileTypeAPK
	FileTypeAXML
)

func (t FileType) String() string {
	switch t {
	case FileTypeZIP:
		return "zip"
	case FileTypeJAR:
		return "jar"
	case FileTypeAPK:
		return "apk"
	case FileTypeAXML:
		return "axml"
	default:
		return "unknown"
	}
}

const (
	peekSize    = 1024
	localHdrLen = 30
)

var (
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
	axmlMagic = []byte{0x03, 0x00, 0x08, 0x00}
)

// DetectReader classifies the start of r without consuming it. The returned
// reader must be used in place of r.
func DetectReader(r io.Reader) (FileType, io.Reader) {
	br := bufio.NewReaderSize(r, peekSize)
	blob, _ := br.Peek(peekSize)
	return detect(blob), br
}

func detect(blob []byte) FileType {
	switch {
	case bytes.HasPrefix(blob, axmlMagic):
		return FileTypeAXML
	case bytes.HasPrefix(blob, zipMagic):
		if len(blob) >= localHdrLen {
			fnLen := int(binary.LittleEndian.Uint16(blob[26:28]))
			if end := localHdrLen + fnLen; end <= len(blob) {
				if string(blob[localHdrLen:end]) == "AndroidManifest.xml" {
					return FileTypeAPK
				}
				// JAR marker in the first entry's extra field
				if end+2 <= len(blob) && blob[end] == 0xfe && blob[end+1] == 0xca {
					return FileTypeJAR
				}
			}
		}
		if bytes.Contains(blob, []byte("AndroidManifest.xml")) {
			return FileTypeAPK
		}
		if bytes.Contains(blob, []byte("META-INF/")) {
			return FileTypeJAR
		}
		return FileTypeZIP
	}
	return FileTypeUnknown
}
