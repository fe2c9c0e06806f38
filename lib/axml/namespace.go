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

// Namespace is one xmlns binding
type Namespace struct {
	Prefix string
	URI    string
}

// NamespaceStack tracks the bindings currently in scope
type NamespaceStack struct {
	items []Namespace
}

func (s *NamespaceStack) Push(ns Namespace) {
	s.items = append(s.items, ns)
}

// Pop removes the innermost binding. It returns false if the stack was empty.
func (s *NamespaceStack) Pop() (Namespace, bool) {
	if len(s.items) == 0 {
		return Namespace{}, false
	}
	ns := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return ns, true
}

func (s *NamespaceStack) Len() int { return len(s.items) }

// PrefixFor returns the prefix of the innermost binding for uri
func (s *NamespaceStack) PrefixFor(uri string) (string, bool) {
	if uri == "" {
		return "", false
	}
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].URI == uri {
			return s.items[i].Prefix, true
		}
	}
	return "", false
}
