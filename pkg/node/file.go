// Copyright 2025 walteh LLC
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

package node

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// 📄 File is a regular file node.
type File struct {
	base

	once    sync.Once
	content *Content
}

func (f *File) IsDir() bool { return false }

// Retrieve returns the content accessor for f. The same accessor is returned
// on every call so its caches are shared.
func (f *File) Retrieve() *Content {
	f.once.Do(func() {
		f.content = &Content{fs: f.fs, name: f.path.String()}
	})
	return f.content
}

// Content reads a file lazily. Bytes, Text and JSON read the file once and
// cache the result (or the error). Stream opens the file on every call.
type Content struct {
	fs   afero.Fs
	name string

	bytesOnce sync.Once
	bytes     []byte
	bytesErr  error

	jsonOnce sync.Once
	decoded  any
	jsonErr  error
}

func (c *Content) Bytes() ([]byte, error) {
	c.bytesOnce.Do(func() {
		b, err := afero.ReadFile(c.fs, c.name)
		if err != nil {
			c.bytesErr = errors.Errorf("reading %s: %w", c.name, err)
			return
		}
		c.bytes = b
	})
	return c.bytes, c.bytesErr
}

func (c *Content) Text() (string, error) {
	b, err := c.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// JSON decodes the file into generic maps, slices and scalars.
func (c *Content) JSON() (any, error) {
	c.jsonOnce.Do(func() {
		b, err := c.Bytes()
		if err != nil {
			c.jsonErr = err
			return
		}
		if err := json.Unmarshal(b, &c.decoded); err != nil {
			c.jsonErr = errors.Errorf("decoding %s as json: %w", c.name, err)
		}
	})
	return c.decoded, c.jsonErr
}

// Stream opens a fresh reader. The caller closes it.
func (c *Content) Stream() (io.ReadCloser, error) {
	f, err := c.fs.Open(c.name)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", c.name, err)
	}
	return f, nil
}
