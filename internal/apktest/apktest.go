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

// Package apktest builds synthetic APK files for tests
package apktest

import (
	"archive/zip"
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/binary"
	"math/big"
	"testing"
	"time"

	"github.com/fullsailor/pkcs7"
	"github.com/stretchr/testify/require"

	"github.com/Linmuge/apkextractor-sub000/lib/zipslicer"
)

const (
	IDv2  uint32 = 0x7109871a
	IDv3  uint32 = 0xf05368c0
	IDv31 uint32 = 0x1b93ad61

	sigMagic = "APK Sig Block 42"
)

type Entry struct {
	Name string
	Data []byte
}

type Pair struct {
	ID    uint32
	Value []byte
}

// Signer is a self-signed certificate and its key
type Signer struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

type Options struct {
	Entries []Entry
	// V1 signs the archive as a JAR with this signer
	V1 *Signer
	// Pairs are placed in an APK Signing Block before the central directory
	Pairs   []Pair
	Comment string
}

// NewSigner creates a self-signed RSA certificate for commonName
func NewSigner(t testing.TB, commonName string, serial int64) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	name := pkix.Name{
		CommonName:   commonName,
		Organization: []string{"Example Org"},
		Country:      []string{"US"},
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      name,
		Issuer:       name,
		NotBefore:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &Signer{Cert: cert, Key: key}
}

// DefaultEntries is a minimal set of APK contents
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "AndroidManifest.xml", Data: SimpleAXML("manifest")},
		{Name: "classes.dex", Data: bytes.Repeat([]byte("dex\n035\x00"), 64)},
		{Name: "res/layout/main.xml", Data: []byte("layout")},
	}
}

// SimpleAXML encodes a binary XML document holding one empty element
func SimpleAXML(root string) []byte {
	const (
		chunkXML        = 0x00080003
		chunkStringPool = 0x001C0001
		chunkTagStart   = 0x00100102
		chunkTagEnd     = 0x00100103
		noIndex         = 0xFFFFFFFF
		utf8Flag        = 1 << 8
	)
	// UTF-8 pool with a single string
	data := append([]byte{byte(len(root)), byte(len(root))}, root...)
	data = append(data, 0)
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	var pool bytes.Buffer
	for _, v := range []uint32{chunkStringPool, uint32(32 + len(data)), 1, 0, utf8Flag, 32, 0, 0} {
		_ = binary.Write(&pool, binary.LittleEndian, v)
	}
	pool.Write(data)

	var body bytes.Buffer
	w := func(vs ...interface{}) {
		for _, v := range vs {
			_ = binary.Write(&body, binary.LittleEndian, v)
		}
	}
	w(uint32(chunkTagStart), uint32(36), uint32(1), uint32(noIndex), uint32(noIndex), uint32(0))
	w(uint16(0x14), uint16(20), uint16(0), uint16(0), uint16(0), uint16(0))
	w(uint32(chunkTagEnd), uint32(24), uint32(1), uint32(noIndex), uint32(noIndex), uint32(0))

	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, uint32(chunkXML))
	_ = binary.Write(&out, binary.LittleEndian, uint32(8+pool.Len()+body.Len()))
	out.Write(pool.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

// Build writes a ZIP archive according to opts
func Build(t testing.TB, opts Options) []byte {
	t.Helper()
	entries := opts.Entries
	if entries == nil {
		entries = DefaultEntries()
	}
	if opts.V1 != nil {
		entries = append(append([]Entry(nil), entries...), jarSign(t, entries, opts.V1)...)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.Name)
		require.NoError(t, err)
		_, err = f.Write(e.Data)
		require.NoError(t, err)
	}
	if opts.Comment != "" {
		require.NoError(t, w.SetComment(opts.Comment))
	}
	require.NoError(t, w.Close())
	blob := buf.Bytes()
	if len(opts.Pairs) == 0 {
		return blob
	}
	return InsertBlock(t, blob, SigningBlock(opts.Pairs))
}

// SigningBlock encodes pairs as an APK Signing Block
func SigningBlock(pairs []Pair) []byte {
	var body bytes.Buffer
	for _, p := range pairs {
		_ = binary.Write(&body, binary.LittleEndian, uint64(4+len(p.Value)))
		_ = binary.Write(&body, binary.LittleEndian, p.ID)
		body.Write(p.Value)
	}
	size := uint64(body.Len() + 8 + len(sigMagic))
	var block bytes.Buffer
	_ = binary.Write(&block, binary.LittleEndian, size)
	block.Write(body.Bytes())
	_ = binary.Write(&block, binary.LittleEndian, size)
	block.WriteString(sigMagic)
	return block.Bytes()
}

// InsertBlock splices a signing block in front of the central directory and
// fixes up the end record
func InsertBlock(t testing.TB, zipBlob, block []byte) []byte {
	t.Helper()
	rec, err := zipslicer.FindEndRecord(bytes.NewReader(zipBlob), int64(len(zipBlob)))
	require.NoError(t, err)
	out := make([]byte, 0, len(zipBlob)+len(block))
	out = append(out, zipBlob[:rec.CDOffset]...)
	out = append(out, block...)
	out = append(out, zipBlob[rec.CDOffset:]...)
	eocd := rec.Offset + int64(len(block))
	binary.LittleEndian.PutUint32(out[eocd+16:], uint32(rec.CDOffset)+uint32(len(block)))
	return out
}

// V2Value encodes a v2 scheme block with one signer carrying certs
func V2Value(certs ...*x509.Certificate) []byte {
	signedData := lp(lp(), certList(certs), lp())
	signer := cat(signedData, lp(), lp())
	return lp(lp(signer))
}

// V3Value encodes a v3 or v3.1 scheme block with one signer carrying certs
func V3Value(certs ...*x509.Certificate) []byte {
	signedData := lp(lp(), certList(certs), u32(24), u32(0x7fffffff), lp())
	signer := cat(signedData, u32(24), u32(0x7fffffff), lp(), lp())
	return lp(lp(signer))
}

func certList(certs []*x509.Certificate) []byte {
	var items [][]byte
	for _, c := range certs {
		items = append(items, lp(c.Raw))
	}
	return lp(items...)
}

// lp concatenates parts behind a uint32 length prefix
func lp(parts ...[]byte) []byte {
	body := cat(parts...)
	return append(u32(uint32(len(body))), body...)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func u32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// jarSign produces the META-INF entries of a v1 signature
func jarSign(t testing.TB, entries []Entry, signer *Signer) []Entry {
	t.Helper()
	var mf bytes.Buffer
	mf.WriteString("Manifest-Version: 1.0\r\nCreated-By: apktest\r\n\r\n")
	for _, e := range entries {
		sum := sha256.Sum256(e.Data)
		mf.WriteString("Name: " + e.Name + "\r\n")
		mf.WriteString("SHA-256-Digest: " + base64.StdEncoding.EncodeToString(sum[:]) + "\r\n\r\n")
	}
	mfSum := sha256.Sum256(mf.Bytes())
	sf := []byte("Signature-Version: 1.0\r\nSHA-256-Digest-Manifest: " +
		base64.StdEncoding.EncodeToString(mfSum[:]) + "\r\n\r\n")
	sd, err := pkcs7.NewSignedData(sf)
	require.NoError(t, err)
	require.NoError(t, sd.AddSigner(signer.Cert, signer.Key, pkcs7.SignerInfoConfig{}))
	sd.Detach()
	block, err := sd.Finish()
	require.NoError(t, err)
	return []Entry{
		{Name: "META-INF/MANIFEST.MF", Data: mf.Bytes()},
		{Name: "META-INF/CERT.SF", Data: sf},
		{Name: "META-INF/CERT.RSA", Data: block},
	}
}
