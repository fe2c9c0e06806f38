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

// blockSigner is the part of a v2, v3 or v3.1 signer needed to report it.
// Digests, signatures and attributes are checked for framing only.
type blockSigner struct {
	Certificates [][]byte
	PublicKey    []byte
	MinSDK       uint32
	MaxSDK       uint32
}

// preference order when taking a certificate from the signing block
var blockSchemePreference = []Scheme{V31, V3, V2}

// parseFirstSigner decodes the first signer in the value of a v2, v3 or v3.1
// pair
func parseFirstSigner(scheme Scheme, value []byte) (*blockSigner, error) {
	if scheme != V2 && scheme != V3 && scheme != V31 {
		return nil, fmt.Errorf("scheme %s has no signing block", scheme)
	}
	top := &prefixed{buf: value}
	signers, err := top.items()
	if err == nil {
		err = top.end()
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s signer: %w", scheme, err)
	} else if len(signers) == 0 {
		return nil, errors.New("empty APK signing block")
	}
	signer := new(blockSigner)
	if err := signer.parse(&prefixed{buf: signers[0]}, scheme != V2); err != nil {
		return nil, fmt.Errorf("parsing %s signer: %w", scheme, err)
	}
	return signer, nil
}

func (s *blockSigner) parse(p *prefixed, sdkRange bool) error {
	signedData, err := p.nested()
	if err != nil {
		return err
	}
	if sdkRange {
		if s.MinSDK, err = p.u32(); err != nil {
			return err
		}
		if s.MaxSDK, err = p.u32(); err != nil {
			return err
		}
	}
	if _, err := p.items(); err != nil {
		return err
	}
	if s.PublicKey, err = p.bytes(); err != nil {
		return err
	}
	if err := p.end(); err != nil {
		return err
	}
	if err := s.parseSignedData(signedData, sdkRange); err != nil {
		return fmt.Errorf("signed data: %w", err)
	}
	return nil
}

func (s *blockSigner) parseSignedData(p *prefixed, sdkRange bool) error {
	// digests
	if _, err := p.items(); err != nil {
		return err
	}
	var err error
	if s.Certificates, err = p.items(); err != nil {
		return err
	}
	if sdkRange {
		// repeated from the signer
		for i := 0; i < 2; i++ {
			if _, err := p.u32(); err != nil {
				return err
			}
		}
	}
	// additional attributes
	if _, err := p.items(); err != nil {
		return err
	}
	return p.end()
}

// blockCertificates parses the certificate chain of the first signer in the
// value of a v2, v3 or v3.1 pair
func blockCertificates(scheme Scheme, value []byte) ([]*x509.Certificate, error) {
	signer, err := parseFirstSigner(scheme, value)
	if err != nil {
		return nil, err
	}
	certs := make([]*x509.Certificate, len(signer.Certificates))
	for i, der := range signer.Certificates {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("parsing %s certificate: %w", scheme, err)
		}
		certs[i] = cert
	}
	return certs, nil
}

// BlockCertificate returns the first certificate of the first signer of the
// most recent scheme present among pairs, along with that scheme
func BlockCertificate(r io.ReaderAt, pairs []Pair) (*x509.Certificate, Scheme, error) {
	byScheme := make(map[Scheme]Pair)
	for _, p := range pairs {
		if scheme, ok := SchemeForID(p.ID); ok {
			if _, seen := byScheme[scheme]; !seen {
				byScheme[scheme] = p
			}
		}
	}
	var firstErr error
	for _, scheme := range blockSchemePreference {
		p, ok := byScheme[scheme]
		if !ok {
			continue
		}
		value, err := ReadValue(r, p)
		if err == nil {
			var certs []*x509.Certificate
			certs, err = blockCertificates(scheme, value)
			if err == nil && len(certs) > 0 {
				return certs[0], scheme, nil
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return nil, 0, firstErr
}
