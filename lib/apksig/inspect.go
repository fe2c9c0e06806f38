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
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Linmuge/apkextractor-sub000/lib/signjar"
	"github.com/Linmuge/apkextractor-sub000/lib/x509tools"
)

const DefaultManifestEntry = "AndroidManifest.xml"

// Info is the signature report for one APK. Failures are reported through
// Error; whatever could be determined before the failure is still filled in.
type Info struct {
	Path         string    `json:"path,omitempty" yaml:"path,omitempty"`
	Schemes      SchemeSet `json:"schemes" yaml:"schemes"`
	Subject      string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Issuer       string    `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	SerialNumber string    `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	NotBefore    time.Time `json:"not_before" yaml:"not_before"`
	NotAfter     time.Time `json:"not_after" yaml:"not_after"`
	MD5          string    `json:"md5,omitempty" yaml:"md5,omitempty"`
	SHA1         string    `json:"sha1,omitempty" yaml:"sha1,omitempty"`
	SHA256       string    `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Valid        bool      `json:"valid" yaml:"valid"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	// CertificateSource names the scheme the certificate was taken from
	CertificateSource string `json:"certificate_source,omitempty" yaml:"certificate_source,omitempty"`
	// FileDigest is filled in by callers that digest the whole file
	FileDigest string `json:"file_digest,omitempty" yaml:"file_digest,omitempty"`
}

// Inspector produces signature reports. The zero value is ready to use.
type Inspector struct {
	Logger zerolog.Logger
	// ManifestEntry is the signed entry whose certificate is reported
	ManifestEntry string
	// NameStyle selects how subject and issuer are formatted
	NameStyle x509tools.NameStyle
}

// Inspect reports on the APK at path using default settings
func Inspect(path string) Info {
	var i Inspector
	return i.Inspect(path)
}

// Inspect reports on the APK at path. V4 is included when a v4 signature
// file accompanies the APK.
func (i *Inspector) Inspect(path string) Info {
	f, err := os.Open(path)
	if err != nil {
		return Info{Path: path, Error: err.Error()}
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return Info{Path: path, Error: err.Error()}
	}
	info := i.InspectReader(f, st.Size(), path)
	if hasIdsig(path) {
		info.Schemes = info.Schemes.With(V4)
	}
	return info
}

// InspectReader reports on an APK of the given size read from r. It never
// panics; unexpected faults are reported in Info.Error.
func (i *Inspector) InspectReader(r io.ReaderAt, size int64, name string) (info Info) {
	log := i.Logger.With().Str("apk", name).Logger()
	defer func() {
		if caught := recover(); caught != nil {
			const stackSize = 16 << 10
			buf := make([]byte, stackSize)
			buf = buf[:runtime.Stack(buf, false)]
			log.Error().Interface("panic", caught).Str("stack", string(buf)).Msg("inspecting apk")
			info.Valid = false
			info.Error = fmt.Sprintf("internal error: %v", caught)
		}
	}()
	info.Path = name

	var errs []string
	block, err := LocateSigningBlock(r, size)
	if err != nil {
		log.Debug().Err(err).Msg("locating signing block")
		errs = append(errs, err.Error())
	}
	pairs, err := ReadPairs(r, block)
	if err != nil {
		errs = append(errs, err.Error())
	}
	info.Schemes = BlockSchemes(pairs)
	// a damaged central directory still leaves the block schemes usable
	var archive Archive
	if jar, err := signjar.NewArchive(r, size); err != nil {
		log.Debug().Err(err).Msg("opening archive")
		errs = append(errs, err.Error())
	} else {
		archive = jar
		info.Schemes = info.Schemes.Union(NameSchemes(jar.Names()))
	}
	log.Debug().Stringer("schemes", info.Schemes).Int("pairs", len(pairs)).Msg("detected signature schemes")

	cert, source, err := i.certificate(r, archive, info.Schemes, pairs)
	if err != nil {
		errs = append(errs, err.Error())
	}
	if cert != nil {
		if err := fillCertificate(&info, cert, i.NameStyle); err != nil {
			errs = append(errs, err.Error())
		} else {
			info.Valid = true
			info.CertificateSource = source.String()
		}
	}
	info.Error = strings.Join(errs, "; ")
	return info
}

// certificate prefers the v1 signer of the manifest entry and falls back to
// the newest signing block scheme
func (i *Inspector) certificate(r io.ReaderAt, a Archive, schemes SchemeSet, pairs []Pair) (*x509.Certificate, Scheme, error) {
	entry := i.ManifestEntry
	if entry == "" {
		entry = DefaultManifestEntry
	}
	var v1Err error
	if a != nil && schemes.Has(V1) {
		cert, err := ExtractCertificate(a, entry)
		if err == nil {
			return cert, V1, nil
		}
		i.Logger.Debug().Err(err).Msg("no v1 certificate")
		v1Err = err
	}
	cert, scheme, err := BlockCertificate(r, pairs)
	if err != nil {
		return nil, 0, err
	} else if cert != nil {
		return cert, scheme, nil
	}
	if v1Err != nil && !errors.Is(v1Err, ErrNoCertificate) {
		return nil, 0, v1Err
	}
	return nil, 0, ErrNoCertificate
}

func fillCertificate(info *Info, cert *x509.Certificate, style x509tools.NameStyle) error {
	md5, sha1, sha256, err := x509tools.CertFingerprints(cert)
	if err != nil {
		return err
	}
	info.Subject = x509tools.FormatSubject(cert, style)
	info.Issuer = x509tools.FormatIssuer(cert, style)
	if cert.SerialNumber != nil {
		info.SerialNumber = cert.SerialNumber.String()
	}
	info.NotBefore = cert.NotBefore
	info.NotAfter = cert.NotAfter
	info.MD5 = md5
	info.SHA1 = sha1
	info.SHA256 = sha256
	return nil
}
