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
	"crypto/x509"
	"errors"
	"fmt"
	"io"
)

var ErrNoCertificate = errors.New("no certificate found")

// Archive gives access to the entries of a signed archive. Certificates for
// an entry are only reported after that entry was read to EOF.
type Archive interface {
	Names() []string
	Open(name string) (io.ReadCloser, error)
	Certificates(name string) []*x509.Certificate
}

// ExtractCertificate reads entry to the end and returns the first
// certificate that signed it
func ExtractCertificate(a Archive, entry string) (*x509.Certificate, error) {
	rc, err := a.Open(entry)
	if err != nil {
		return nil, err
	}
	_, err = io.Copy(io.Discard, rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", entry, err)
	}
	certs := a.Certificates(entry)
	if len(certs) == 0 {
		return nil, fmt.Errorf("%s: %w", entry, ErrNoCertificate)
	}
	return certs[0], nil
}
