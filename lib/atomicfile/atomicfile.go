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

// Package atomicfile writes output files by renaming a completed temporary
// file over the destination, so readers never see a partial report.
package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

type AtomicFile interface {
	io.WriteCloser
	// Commit makes the written content visible under the destination name.
	// Close without Commit discards it.
	Commit() error
}

type atomicFile struct {
	name     string
	tempfile *os.File
}

func New(name string) (AtomicFile, error) {
	tempfile, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".tmp")
	if err != nil {
		return nil, err
	}
	return &atomicFile{name: name, tempfile: tempfile}, nil
}

func (f *atomicFile) Write(d []byte) (int, error) {
	if f.tempfile == nil {
		return 0, os.ErrClosed
	}
	return f.tempfile.Write(d)
}

func (f *atomicFile) Close() error {
	if f.tempfile == nil {
		return nil
	}
	f.tempfile.Close()
	os.Remove(f.tempfile.Name())
	f.tempfile = nil
	return nil
}

func (f *atomicFile) Commit() error {
	if f.tempfile == nil {
		return errors.New("file is closed")
	}
	mode := os.FileMode(0o644)
	if st, err := os.Stat(f.name); err == nil {
		mode = st.Mode().Perm()
	}
	if err := f.tempfile.Chmod(mode); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Close(); err != nil {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	// rename can't overwrite on windows
	if err := os.Remove(f.name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Rename(f.tempfile.Name(), f.name); err != nil {
		return err
	}
	f.tempfile = nil
	return nil
}

type directFile struct {
	*os.File
	owned bool
}

func (d directFile) Commit() error {
	if d.owned {
		return d.File.Close()
	}
	return nil
}

func (d directFile) Close() error {
	if d.owned {
		// already closed by Commit is fine
		d.File.Close()
	}
	return nil
}

func isSpecial(path string) bool {
	if stat, err := os.Stat(path); err == nil {
		if !stat.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// WriteAny picks the strategy for writing to path. "-" is stdout, pipes and
// devices are written directly and regular files use write-rename.
func WriteAny(path string) (AtomicFile, error) {
	if path == "-" {
		return directFile{File: os.Stdout}, nil
	}
	if isSpecial(path) {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return nil, err
		}
		return directFile{File: f, owned: true}, nil
	}
	return New(path)
}
