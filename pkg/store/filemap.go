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
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/metafiles/pkg/node"
	"github.com/walteh/metafiles/pkg/path"
)

// Mapping pairs a host file with its location in a store.
type Mapping struct {
	LocalFile path.AbsolutePath
	StoreFile path.AbsolutePath
}

// FileMap is an ordered set of mappings.
type FileMap []Mapping

// Reverse swaps the direction of every mapping, turning a transcription map
// into a deployment map.
func (m FileMap) Reverse() FileMap {
	out := make(FileMap, len(m))
	for i, e := range m {
		out[i] = Mapping{LocalFile: e.StoreFile, StoreFile: e.LocalFile}
	}
	return out
}

// Merge appends the mappings of other whose store file is not already
// present in m.
func (m FileMap) Merge(other FileMap) FileMap {
	seen := make(map[string]struct{}, len(m))
	for _, e := range m {
		seen[e.StoreFile.String()] = struct{}{}
	}
	out := append(FileMap{}, m...)
	for _, e := range other {
		if _, ok := seen[e.StoreFile.String()]; ok {
			continue
		}
		seen[e.StoreFile.String()] = struct{}{}
		out = append(out, e)
	}
	return out
}

// DefaultExclusion filters version control metadata, the store readme and
// macOS folder artifacts at any depth.
func DefaultExclusion() node.Exclusion {
	return node.Exclusion{
		Names: []string{".git", MetaDir + "/README.md", ".DS_Store"},
	}
}

// WithGlobs returns DefaultExclusion extended with extra ignore globs.
func WithGlobs(globs ...string) node.Exclusion {
	e := DefaultExclusion()
	e.Globs = append(e.Globs, globs...)
	return e
}

// 🗺️ GenerateFileMap walks from and maps every file it holds to its host path
// and to that host path's location in relativeTo (from when nil).
//
// Files of a directory keep their listing order and precede the results of
// its subdirectories, which are walked concurrently and appended in sibling
// order.
func GenerateFileMap(ctx context.Context, fs afero.Fs, from, relativeTo *Store, excl node.Exclusion) (FileMap, error) {
	if relativeTo == nil {
		relativeTo = from
	}

	zerolog.Ctx(ctx).Debug().
		Str("from", from.Root.String()).
		Str("relative_to", relativeTo.Root.String()).
		Msg("generating file map")

	root, err := node.AsDirectory(fs, from.Root)
	if err != nil {
		return nil, err
	}
	return mapDirectory(ctx, from, relativeTo, root, excl)
}

func mapDirectory(ctx context.Context, from, to *Store, dir *node.Directory, excl node.Exclusion) (FileMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	children, err := dir.Retrieve()
	if err != nil {
		return nil, err
	}

	var list FileMap
	var subdirs []*node.Directory
	for _, c := range children {
		rel := from.Root.Rel(c.Path())
		if excl.Excludes(rel) {
			continue
		}
		switch n := c.(type) {
		case *node.File:
			host := from.File(rel).HostPath()
			list = append(list, Mapping{LocalFile: host, StoreFile: to.Location(host)})
		case *node.Directory:
			subdirs = append(subdirs, n)
		}
	}

	results := make([]FileMap, len(subdirs))
	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subdirs {
		g.Go(func() error {
			fm, err := mapDirectory(gctx, from, to, sub, excl)
			if err != nil {
				return err
			}
			results[i] = fm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		list = append(list, r...)
	}
	return list, nil
}
