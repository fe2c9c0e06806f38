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
	"errors"
	"io"
)

var errTrailingData = errors.New("trailing data after structure")

// prefixed walks the v2 and v3 scheme block encoding, where every sequence
// and byte string carries a little-endian uint32 length prefix
// https://source.android.com/security/apksigning/v2#apk-signature-scheme-v2-block-format
// https://source.android.com/security/apksigning/v3#format
type prefixed struct {
	buf []byte
}

func (p *prefixed) more() bool {
	return len(p.buf) > 0
}

func (p *prefixed) u32() (uint32, error) {
	if len(p.buf) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(p.buf)
	p.buf = p.buf[4:]
	return v, nil
}

// bytes consumes one length-prefixed byte string
func (p *prefixed) bytes() ([]byte, error) {
	n, err := p.u32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(p.buf)) {
		return nil, io.ErrUnexpectedEOF
	}
	v := p.buf[:n:n]
	p.buf = p.buf[n:]
	return v, nil
}

// nested consumes one length-prefixed item and returns a walker over its body
func (p *prefixed) nested() (*prefixed, error) {
	body, err := p.bytes()
	if err != nil {
		return nil, err
	}
	return &prefixed{buf: body}, nil
}

// items consumes a length-prefixed sequence and returns the body of each
// element
func (p *prefixed) items() ([][]byte, error) {
	seq, err := p.nested()
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for seq.more() {
		item, err := seq.bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (p *prefixed) end() error {
	if p.more() {
		return errTrailingData
	}
	return nil
}
