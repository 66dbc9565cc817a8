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

package store

import (
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/node"
	"github.com/walteh/metafiles/pkg/path"
)

const (
	// MetaDir holds store bookkeeping and the mirror subtree.
	MetaDir = ".files"

	// MirrorFSRoot is the mirror subtree name written by current stores.
	MirrorFSRoot = "fsroot"

	// MirrorRootFS is the historical mirror subtree name.
	MirrorRootFS = "rootfs"
)

// 🏪 Store is a directory tree that mirrors tracked host files. Files under
// Home are kept at their home-relative location; everything else is kept
// under the mirror subtree at its absolute location.
type Store struct {
	Root   path.AbsolutePath
	Home   path.AbsolutePath
	Mirror string
}

// New builds a Store. An empty mirror means MirrorFSRoot.
func New(root, home path.AbsolutePath, mirror string) *Store {
	if mirror == "" {
		mirror = MirrorFSRoot
	}
	return &Store{Root: root, Home: home, Mirror: mirror}
}

// MirrorRoot is Root/.files/<mirror>.
func (s *Store) MirrorRoot() path.AbsolutePath {
	return s.Root.Join(path.MustRelative(MetaDir, s.Mirror))
}

// MetaRoot is Root/.files.
func (s *Store) MetaRoot() path.AbsolutePath {
	return s.Root.Join(path.MustRelative(MetaDir))
}

// 📍 Location projects a host path into the store.
func (s *Store) Location(host path.AbsolutePath) path.AbsolutePath {
	if host.HasPrefix(s.Home) {
		return s.Root.Join(s.Home.Rel(host))
	}
	return s.MirrorRoot().Join(path.Root.Rel(host))
}

// Reserved reports whether host would land inside the store's own .files
// subtree. Such a path cannot be stored: it would shadow the mirror or the
// store README, and HostPath would not map it back to host.
func (s *Store) Reserved(host path.AbsolutePath) bool {
	return host.HasPrefix(s.Home) && s.Location(host).HasPrefix(s.MetaRoot())
}

// File returns the StoreFile at rel inside the store.
func (s *Store) File(rel path.RelativePath) StoreFile {
	return StoreFile{rel: rel, store: s}
}

// FileAt returns the StoreFile for an absolute path inside the store.
func (s *Store) FileAt(p path.AbsolutePath) (StoreFile, error) {
	if !p.HasPrefix(s.Root) || p.Equal(s.Root) {
		return StoreFile{}, errors.Errorf("%s is not inside store %s", p, s.Root)
	}
	return s.File(s.Root.Rel(p)), nil
}

// StoreFile is a path known relative to a specific Store.
type StoreFile struct {
	rel   path.RelativePath
	store *Store
}

// Rel is the path relative to the store root.
func (f StoreFile) Rel() path.RelativePath { return f.rel }

// Path is the physical location inside the store.
func (f StoreFile) Path() path.AbsolutePath {
	return f.store.Root.Join(f.rel)
}

// IsMirrored reports whether the file lives in the mirror subtree.
func (f StoreFile) IsMirrored() bool {
	return f.Path().HasPrefix(f.store.MirrorRoot())
}

// HostPath is the inverse of Store.Location.
func (f StoreFile) HostPath() path.AbsolutePath {
	if f.IsMirrored() {
		return path.Root.Join(f.store.MirrorRoot().Rel(f.Path()))
	}
	return f.store.Home.Join(f.rel)
}

// DetectMirror picks the mirror subtree name for the store rooted at root.
// The historical name is used only when it is the only one present.
func DetectMirror(fs afero.Fs, root path.AbsolutePath) (string, error) {
	meta := root.Join(path.MustRelative(MetaDir))

	current, err := node.Exists(fs, meta.Join(path.MustRelative(MirrorFSRoot)))
	if err != nil {
		return "", err
	}
	if current {
		return MirrorFSRoot, nil
	}

	legacy, err := node.Exists(fs, meta.Join(path.MustRelative(MirrorRootFS)))
	if err != nil {
		return "", err
	}
	if legacy {
		return MirrorRootFS, nil
	}
	return MirrorFSRoot, nil
}
