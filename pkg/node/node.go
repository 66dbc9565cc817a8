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

// Package node classifies filesystem paths as files or directories and
// lazily retrieves their contents.
//
// Every operation goes through an afero.Fs so callers can swap the real
// filesystem for an in-memory one.
//
//	FromPath(fs, /home/me/.config)
//	     │
//	     ├── *Directory ── Retrieve() ──► []Node (memoized, one level)
//	     │        └────── DescendantFiles(Exclusion) ──► []AbsolutePath
//	     │
//	     └── *File ────── Retrieve() ──► *Content (Bytes/Text/JSON cached, Stream fresh)
package node

import (
	"os"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/path"
)

// ErrUnsupportedKind is returned for entries that are neither regular files
// nor directories (symlinks, sockets, devices).
var ErrUnsupportedKind = errors.New("unsupported file kind")

// 📦 Node is a *File or a *Directory.
type Node interface {
	Path() path.AbsolutePath
	Inode() uint64
	IsDir() bool
}

type base struct {
	fs    afero.Fs
	path  path.AbsolutePath
	inode uint64
}

func (b base) Path() path.AbsolutePath { return b.path }
func (b base) Inode() uint64           { return b.inode }

// lstat does not follow a final symlink when the filesystem supports it.
func lstat(fs afero.Fs, p path.AbsolutePath) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		fi, _, err := l.LstatIfPossible(p.String())
		return fi, err
	}
	return fs.Stat(p.String())
}

// 🔍 FromPath stats p and returns the matching Node. A missing path yields a
// nil Node and a nil error; any other stat failure is returned.
func FromPath(fs afero.Fs, p path.AbsolutePath) (Node, error) {
	fi, err := lstat(fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Errorf("stating %s: %w", p, err)
	}
	return fromInfo(fs, p, fi)
}

func fromInfo(fs afero.Fs, p path.AbsolutePath, fi os.FileInfo) (Node, error) {
	b := base{fs: fs, path: p, inode: inodeOf(fi)}
	switch {
	case fi.Mode().IsRegular():
		return &File{base: b}, nil
	case fi.IsDir():
		return &Directory{base: b}, nil
	default:
		return nil, errors.Errorf("%w: %s is %s", ErrUnsupportedKind, p, fi.Mode().Type())
	}
}

// Exists reports whether p exists. Symlinks are followed, so a dangling link
// is false. Not-found is false; other errors propagate.
func Exists(fs afero.Fs, p path.AbsolutePath) (bool, error) {
	_, err := fs.Stat(p.String())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("stating %s: %w", p, err)
}

// AsDirectory returns p as a Directory, failing when it is missing or a file.
func AsDirectory(fs afero.Fs, p path.AbsolutePath) (*Directory, error) {
	n, err := FromPath(fs, p)
	if err != nil {
		return nil, err
	}
	d, ok := n.(*Directory)
	if !ok {
		return nil, errors.Errorf("%s is not a directory", p)
	}
	return d, nil
}
