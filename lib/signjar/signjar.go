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
	"path"
	"strings"
)

// signature block extensions, one per key algorithm
var blockExtensions = []string{".RSA", ".DSA", ".EC"}

// IsSignatureFile reports whether name is a JAR signature file or signature
// block under META-INF, ignoring case
func IsSignatureFile(name string) bool {
	name = strings.ToUpper(name)
	if !strings.HasPrefix(name, metaInf) {
		return false
	}
	return strings.HasSuffix(name, ".SF") || isBlockName(name)
}

// isBlockName expects an upper-cased name
func isBlockName(name string) bool {
	if !strings.HasPrefix(name, metaInf) {
		return false
	}
	ext := path.Ext(name)
	for _, e := range blockExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
