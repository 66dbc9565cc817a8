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
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/path"
)

// 📁 Directory is a directory node whose children are listed on demand.
type Directory struct {
	base

	mu       sync.Mutex
	children []Node
	loaded   bool
}

func (d *Directory) IsDir() bool { return true }

// Retrieve lists the immediate children in name order. Only files and
// directories are kept. The listing is read once and reused afterwards.
func (d *Directory) Retrieve() ([]Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return d.children, nil
	}

	infos, err := afero.ReadDir(d.fs, d.path.String())
	if err != nil {
		return nil, errors.Errorf("reading directory %s: %w", d.path, err)
	}

	children := make([]Node, 0, len(infos))
	for _, fi := range infos {
		if !fi.Mode().IsRegular() && !fi.IsDir() {
			continue
		}
		child, err := d.path.JoinString(fi.Name())
		if err != nil {
			return nil, err
		}
		n, err := fromInfo(d.fs, child, fi)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}

	d.children = children
	d.loaded = true
	return children, nil
}

// Exclusion filters entries during a descendant walk. Paths and Globs are
// matched against the entry's path relative to the walk root; Names are
// matched against the trailing components of that relative path.
type Exclusion struct {
	Paths []path.RelativePath
	Names []string
	Globs []string
}

// Excludes reports whether rel (relative to the walk root) is filtered out.
func (e Exclusion) Excludes(rel path.RelativePath) bool {
	for _, p := range e.Paths {
		if rel.HasPrefix(p) {
			return true
		}
	}

	comps := rel.Components()
	for _, name := range e.Names {
		suffix := path.MustRelative(name).Components()
		if len(suffix) > len(comps) {
			continue
		}
		tail := comps[len(comps)-len(suffix):]
		match := true
		for i := range suffix {
			if tail[i] != suffix[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}

	for _, g := range e.Globs {
		if ok, _ := doublestar.Match(g, rel.String()); ok {
			return true
		}
	}
	return false
}

// 🔍 DescendantFiles walks the whole subtree and returns every file not
// excluded. Files of a directory come before the files of its
// subdirectories.
func (d *Directory) DescendantFiles(excl Exclusion) ([]path.AbsolutePath, error) {
	var out []path.AbsolutePath
	if err := d.walk(d.path, excl, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Directory) walk(root path.AbsolutePath, excl Exclusion, out *[]path.AbsolutePath) error {
	children, err := d.Retrieve()
	if err != nil {
		return err
	}

	var dirs []*Directory
	for _, c := range children {
		if excl.Excludes(root.Rel(c.Path())) {
			continue
		}
		switch n := c.(type) {
		case *File:
			*out = append(*out, n.Path())
		case *Directory:
			dirs = append(dirs, n)
		}
	}

	for _, sub := range dirs {
		if err := sub.walk(root, excl, out); err != nil {
			return err
		}
	}
	return nil
}
