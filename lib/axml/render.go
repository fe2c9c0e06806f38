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

package axml

import (
	"fmt"
	"io"
	"strings"
)

const indentUnit = "    "

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
)

// Render drains p and returns the indented text tree
func Render(p *Parser) string {
	var sb strings.Builder
	depth := 0
	indent := func(extra int) {
		for i := 0; i < depth+extra; i++ {
			sb.WriteString(indentUnit)
		}
	}
	for {
		ev, ok := p.Next()
		if !ok {
			break
		}
		switch ev.Type {
		case StartTag:
			indent(0)
			sb.WriteString("<")
			sb.WriteString(ev.QualifiedName())
			for _, ns := range ev.Namespaces {
				sb.WriteString("\n")
				indent(1)
				if ns.Prefix == "" {
					sb.WriteString("xmlns=\"")
				} else {
					sb.WriteString("xmlns:" + ns.Prefix + "=\"")
				}
				sb.WriteString(attrEscaper.Replace(ns.URI))
				sb.WriteString("\"")
			}
			for _, attr := range ev.Attributes {
				sb.WriteString("\n")
				indent(1)
				sb.WriteString(attr.QualifiedName())
				sb.WriteString("=\"")
				sb.WriteString(attrEscaper.Replace(FormatValue(attr)))
				sb.WriteString("\"")
			}
			sb.WriteString(">\n")
			depth++
		case EndTag:
			if depth > 0 {
				depth--
			}
			indent(0)
			sb.WriteString("</")
			sb.WriteString(ev.QualifiedName())
			sb.WriteString(">\n")
		case Text:
			text := strings.TrimSpace(ev.Text)
			if text == "" {
				continue
			}
			indent(0)
			sb.WriteString(attrEscaper.Replace(text))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Decode renders a binary XML document held in memory
func Decode(blob []byte, opts ...Option) string {
	return Render(NewParser(blob, opts...))
}

// DecodeReader reads a whole binary XML document from r and renders it. Only
// read errors are reported; malformed content yields a partial tree.
func DecodeReader(r io.Reader, opts ...Option) (string, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading binary xml: %w", err)
	}
	return Decode(blob, opts...), nil
}
