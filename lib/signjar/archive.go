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
	"archive/zip"
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/fullsailor/pkcs7"
)

// Archive reads a signed JAR or APK. Like java.util.jar.JarFile, the signer
// certificates of an entry only become available once the entry has been
// read to EOF and its content matched the manifest digest.
type Archive struct {
	zr       *zip.Reader
	files    map[string]*zip.File
	verified map[string]bool

	loaded   bool
	manifest *Manifest
	signers  []*x509.Certificate
	loadErr  error
}

func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a := &Archive{
		zr:       zr,
		files:    make(map[string]*zip.File, len(zr.File)),
		verified: make(map[string]bool),
	}
	for _, f := range zr.File {
		a.files[f.Name] = f
	}
	return a, nil
}

// Names lists the archive entries in directory order
func (a *Archive) Names() []string {
	names := make([]string, len(a.zr.File))
	for i, f := range a.zr.File {
		names[i] = f.Name
	}
	return names
}

// Open returns a stream over an entry's contents
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	f := a.files[name]
	if f == nil {
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	er := &entryReader{ReadCloser: rc, archive: a, name: name}
	if err := a.load(); err == nil {
		er.digests = a.manifest.EntryDigests(name)
		er.hashers = make(map[crypto.Hash]hash.Hash, len(er.digests))
		for h := range er.digests {
			er.hashers[h] = h.New()
		}
	}
	return er, nil
}

// Certificates returns the signer certificates covering an entry. It is
// empty until the entry has been fully read through Open.
func (a *Archive) Certificates(name string) []*x509.Certificate {
	if !a.verified[name] {
		return nil
	}
	return a.signers
}

func (a *Archive) load() error {
	if a.loaded {
		return a.loadErr
	}
	a.loaded = true
	a.loadErr = a.loadSignatures()
	return a.loadErr
}

func (a *Archive) readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	defer rc.Close()
	blob, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return blob, nil
}

func (a *Archive) loadSignatures() error {
	mf := a.files[manifestName]
	if mf == nil {
		return errors.New("archive has no manifest")
	}
	blob, err := a.readAll(mf)
	if err != nil {
		return err
	}
	manifest, err := ParseManifest(blob)
	if err != nil {
		return err
	}
	a.manifest = manifest
	// signature blocks in name order so the choice of signer is stable
	var blocks []*zip.File
	for _, f := range a.zr.File {
		if isBlockName(strings.ToUpper(f.Name)) {
			blocks = append(blocks, f)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Name < blocks[j].Name })
	for _, f := range blocks {
		blob, err := a.readAll(f)
		if err != nil {
			return err
		}
		p7, err := pkcs7.Parse(blob)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		if cert := p7.GetOnlySigner(); cert != nil {
			a.signers = append(a.signers, cert)
		} else if len(p7.Certificates) != 0 {
			a.signers = append(a.signers, p7.Certificates[0])
		}
	}
	if len(a.signers) == 0 {
		return errors.New("archive has no signature block")
	}
	return nil
}

type entryReader struct {
	io.ReadCloser
	archive *Archive
	name    string
	digests map[crypto.Hash]string
	hashers map[crypto.Hash]hash.Hash
	done    bool
}

func (r *entryReader) Read(d []byte) (int, error) {
	n, err := r.ReadCloser.Read(d)
	for _, h := range r.hashers {
		h.Write(d[:n])
	}
	if err == io.EOF && !r.done {
		r.done = true
		r.finish()
	}
	return n, err
}

// finish marks the entry verified if it is covered by the manifest and every
// recorded digest matches what was read
func (r *entryReader) finish() {
	if len(r.digests) == 0 {
		return
	}
	for h, want := range r.digests {
		got := base64.StdEncoding.EncodeToString(r.hashers[h].Sum(nil))
		if got != want {
			return
		}
	}
	r.archive.verified[r.name] = true
}
