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

package actor

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/engine"
	"github.com/walteh/metafiles/pkg/log"
	"github.com/walteh/metafiles/pkg/node"
	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/store"
)

// ➕ fileAdder copies a host file, or every file below a host directory, into
// the shadow store and commits it.
type fileAdder struct{ d *Deps }

func (a *fileAdder) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	p := in.AddFilePath
	if p.IsZero() {
		return engine.Fail(errors.New("no path to add"))
	}
	if p.HasPrefix(a.d.Config.FilesDir) {
		return engine.Fail(errors.Errorf("%s is inside the files directory %s", p, a.d.Config.FilesDir))
	}

	files, err := a.collect(p)
	if err != nil {
		return engine.Fail(err)
	}
	if len(files) == 0 {
		return engine.Fail(errors.Errorf("%s holds no files to add", p))
	}

	shadow, err := a.d.shadow()
	if err != nil {
		return engine.Fail(err)
	}

	fm := make(store.FileMap, 0, len(files))
	for _, f := range files {
		if shadow.Reserved(f) {
			return engine.Fail(errors.Errorf("%s is reserved for store metadata and cannot be added", f))
		}
		fm = append(fm, store.Mapping{LocalFile: f, StoreFile: shadow.Location(f)})
	}

	res := store.SyncStore(ctx, a.d.Fs, fm, store.SyncOptions{
		Concurrency: a.d.Config.Concurrency,
		OnCopy: func(m store.Mapping, err error) {
			if a.d.Console != nil {
				a.d.Console.LogFileOperation(ctx, log.FileOperation{Path: m.LocalFile.String(), Kind: "add", Err: err})
			}
		},
	})
	if err := ctx.Err(); err != nil {
		return engine.Fail(err)
	}
	if err := res.Err(); err != nil {
		return engine.Fail(errors.Errorf("adding %s: %w", p, err))
	}

	b, err := a.d.backend("")
	if err != nil {
		return engine.Fail(err)
	}
	if _, err := b.Commit(ctx, "add "+p.String()); err != nil {
		return engine.Fail(errors.Errorf("committing %s: %w", p, err))
	}
	return engine.Succeed()
}

func (a *fileAdder) collect(p path.AbsolutePath) ([]path.AbsolutePath, error) {
	n, err := node.FromPath(a.d.Fs, p)
	if err != nil {
		return nil, err
	}

	switch n := n.(type) {
	case nil:
		return nil, errors.Errorf("%s does not exist", p)
	case *node.File:
		return []path.AbsolutePath{p}, nil
	case *node.Directory:
		return n.DescendantFiles(a.d.Config.Exclusion())
	default:
		return nil, errors.Errorf("%s cannot be added", p)
	}
}
