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

package x509tools

import (
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"crypto/x509"
	"fmt"
	"strings"
)

// HashNames maps digests to the names used in reports
var HashNames = map[crypto.Hash]string{
	crypto.MD5:    "MD5",
	crypto.SHA1:   "SHA1",
	crypto.SHA256: "SHA256",
}

// Fingerprint digests der with hash and formats the result as colon
// separated upper-case hex pairs
func Fingerprint(der []byte, hash crypto.Hash) (string, error) {
	if !hash.Available() {
		return "", fmt.Errorf("digest algorithm %s is not available", hash)
	}
	d := hash.New()
	d.Write(der)
	return FormatHex(d.Sum(nil)), nil
}

// FormatHex formats bytes as "AB:CD:..."
func FormatHex(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

// CertFingerprints returns the MD5, SHA-1 and SHA-256 fingerprints of cert
func CertFingerprints(cert *x509.Certificate) (md5, sha1, sha256 string, err error) {
	if md5, err = Fingerprint(cert.Raw, crypto.MD5); err != nil {
		return
	}
	if sha1, err = Fingerprint(cert.Raw, crypto.SHA1); err != nil {
		return
	}
	sha256, err = Fingerprint(cert.Raw, crypto.SHA256)
	return
}
