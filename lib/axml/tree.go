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
	"strings"

	"github.com/beevik/etree"
)

// Tree drains p into an element tree. Attribute values are formatted as
// Render formats them. End tags without a matching start are dropped.
func Tree(p *Parser) *etree.Document {
	doc := etree.NewDocument()
	var stack []*etree.Element
	for {
		ev, ok := p.Next()
		if !ok {
			break
		}
		switch ev.Type {
		case StartTag:
			var el *etree.Element
			if len(stack) == 0 {
				el = doc.CreateElement(ev.QualifiedName())
			} else {
				el = stack[len(stack)-1].CreateElement(ev.QualifiedName())
			}
			for _, ns := range ev.Namespaces {
				if ns.Prefix == "" {
					el.CreateAttr("xmlns", ns.URI)
				} else {
					el.CreateAttr("xmlns:"+ns.Prefix, ns.URI)
				}
			}
			for _, attr := range ev.Attributes {
				el.CreateAttr(attr.QualifiedName(), FormatValue(attr))
			}
			stack = append(stack, el)
		case EndTag:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case Text:
			text := strings.TrimSpace(ev.Text)
			if text != "" && len(stack) > 0 {
				stack[len(stack)-1].CreateText(text)
			}
		}
	}
	return doc
}

// DecodeTree builds the element tree of a binary XML document held in memory
func DecodeTree(blob []byte, opts ...Option) *etree.Document {
	return Tree(NewParser(blob, opts...))
}
