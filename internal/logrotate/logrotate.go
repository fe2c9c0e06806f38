// Copyright © SAS Institute Inc.
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

// Package logrotate is a log file writer that follows external rotation. When
// the file at the configured path is renamed or removed, the next write
// reopens the path.
package logrotate

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

type Writer struct {
	path string
	f    *os.File
	fi   os.FileInfo
	mu   sync.Mutex
}

func NewWriter(path string) (*Writer, error) {
	w := &Writer{path: path}
	return w, w.openLocked()
}

func (w *Writer) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	// inode to compare against later
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if w.f != nil {
		w.f.Close()
	}
	w.f = f
	w.fi = fi
	return nil
}

func (w *Writer) reopenLocked() error {
	if w.f != nil {
		fi, err := os.Stat(w.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if fi != nil && os.SameFile(fi, w.fi) {
			return nil
		}
	}
	return w.openLocked()
}

func (w *Writer) Write(d []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.reopenLocked(); err != nil {
		return 0, err
	}
	return w.f.Write(d)
}

// Path returns the file being written
func (w *Writer) Path() string { return w.path }

func (w *Writer) Close() (err error) {
	w.mu.Lock()
	if w.f != nil {
		err = w.f.Close()
		w.f = nil
	}
	w.mu.Unlock()
	return
}
